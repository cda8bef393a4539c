package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cartfold/cartfold-backend/api/responses"
	"github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
	"github.com/cartfold/cartfold-backend/pkg/redis"
)

const (
	idempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour

	// pendingTTL bounds how long a reservation can outlive a request that
	// never stored its response (process crash mid-handler).
	pendingTTL = time.Minute
)

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

type cachedResponse struct {
	Status      int    `json:"status"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
	Pending     bool   `json:"pending,omitempty"`
}

// Idempotency replays the stored response when a mutating request repeats
// an Idempotency-Key with the same body. Reusing a key with a different
// body is refused, as is a key whose first request is still in flight. The
// reservation is released when the response cannot be stored or the handler
// panics, so a failed first attempt does not block retries. Requests
// without the header pass through untouched.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(idempotencyHeader)
			if key == "" || r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.Error(r.Context(), w, logg, errors.Wrap(errors.CodeValidation, err, "reading request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			requestHash := hashBody(body)

			redisKey := redis.IdempotencyKey(userID.String(), key)

			marker, err := json.Marshal(cachedResponse{Pending: true, RequestHash: requestHash})
			if err != nil {
				responses.Error(r.Context(), w, logg, errors.Wrap(errors.CodeInternal, err, "encoding idempotency marker"))
				return
			}
			reserved, err := store.SetNX(r.Context(), redisKey, string(marker), pendingTTL)
			if err != nil {
				responses.Error(r.Context(), w, logg, errors.Wrap(errors.CodeDependency, err, "reserving idempotency key"))
				return
			}

			if !reserved {
				value, found, err := store.Get(r.Context(), redisKey)
				if err != nil {
					responses.Error(r.Context(), w, logg, errors.Wrap(errors.CodeDependency, err, "loading idempotency record"))
					return
				}
				if !found {
					responses.Error(r.Context(), w, logg,
						errors.New(errors.CodeIdempotency, "request with this idempotency key is still in progress"))
					return
				}

				var cached cachedResponse
				if err := json.Unmarshal([]byte(value), &cached); err != nil {
					responses.Error(r.Context(), w, logg, errors.Wrap(errors.CodeInternal, err, "decoding idempotency record"))
					return
				}
				if cached.RequestHash != requestHash {
					responses.Error(r.Context(), w, logg,
						errors.New(errors.CodeIdempotency, "idempotency key reused with a different request body"))
					return
				}
				if cached.Pending {
					responses.Error(r.Context(), w, logg,
						errors.New(errors.CodeIdempotency, "request with this idempotency key is still in progress"))
					return
				}
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(cached.Status)
				_, _ = w.Write(cached.Body)
				return
			}

			// Release the reservation unless the response was stored, so a
			// panic or a failed store does not brick the key.
			stored := false
			defer func() {
				if !stored {
					if delErr := store.Del(r.Context(), redisKey); delErr != nil {
						logg.Warn(logg.WithField(r.Context(), "idempotency_key", key), "releasing idempotency key failed")
					}
				}
			}()

			recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			payload, err := json.Marshal(cachedResponse{
				Status:      recorder.status,
				Body:        recorder.body.Bytes(),
				RequestHash: requestHash,
			})
			if err != nil {
				logg.Warn(logg.WithField(r.Context(), "idempotency_key", key), "encoding idempotency record failed")
				return
			}
			if err := store.Set(r.Context(), redisKey, string(payload), idempotencyTTL); err != nil {
				logg.Warn(logg.WithField(r.Context(), "idempotency_key", key), "storing idempotency record failed")
				return
			}
			stored = true
		})
	}
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type responseRecorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.ResponseWriter.Write(p)
}
