package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cartfold/cartfold-backend/api/responses"
	"github.com/cartfold/cartfold-backend/pkg/config"
	"github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
	"github.com/cartfold/cartfold-backend/pkg/redis"
)

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// AuthRateLimit throttles login and register attempts per email and per IP
// with fixed redis windows. The email comes from peeking at the body, which
// is restored for the handler.
func AuthRateLimit(store counterStore, cfg config.AuthRateLimitConfig, scope string, logg *logger.Logger) func(http.Handler) http.Handler {
	window := cfg.LoginWindow
	emailLimit := cfg.LoginEmailLimit
	ipLimit := cfg.LoginIPLimit
	if scope == "register" {
		window = cfg.RegisterWindow
		emailLimit = cfg.RegisterEmailLimit
		ipLimit = cfg.RegisterIPLimit
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if ip != "" && ipLimit > 0 {
				count, err := store.IncrWithTTL(r.Context(), redis.RateLimitKey(scope+":ip", ip), window)
				if err != nil {
					responses.Error(r.Context(), w, logg, errors.Wrap(errors.CodeDependency, err, "rate limit check"))
					return
				}
				if count > int64(ipLimit) {
					responses.Error(r.Context(), w, logg, errors.New(errors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			if email := peekEmail(r); email != "" && emailLimit > 0 {
				count, err := store.IncrWithTTL(r.Context(), redis.RateLimitKey(scope+":email", email), window)
				if err != nil {
					responses.Error(r.Context(), w, logg, errors.Wrap(errors.CodeDependency, err, "rate limit check"))
					return
				}
				if count > int64(emailLimit) {
					responses.Error(r.Context(), w, logg, errors.New(errors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}
