package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cartfold/cartfold-backend/api/responses"
	pkgauth "github.com/cartfold/cartfold-backend/pkg/auth"
	"github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

// sessionChecker reports whether an access token ID is still live.
type sessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Auth validates the bearer token and checks the session is still live,
// so logged-out tokens stop working before expiry.
func Auth(issuer *pkgauth.TokenIssuer, sessions sessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				responses.Error(r.Context(), w, logg, errors.New(errors.CodeUnauthorized, "missing authorization header"))
				return
			}

			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				responses.Error(r.Context(), w, logg, errors.New(errors.CodeUnauthorized, "malformed authorization header"))
				return
			}

			claims, err := issuer.Parse(raw)
			if err != nil {
				responses.Error(r.Context(), w, logg, errors.Wrap(errors.CodeUnauthorized, err, "invalid access token"))
				return
			}

			live, err := sessions.HasSession(r.Context(), claims.ID)
			if err != nil {
				responses.Error(r.Context(), w, logg, errors.Wrap(errors.CodeDependency, err, "checking session"))
				return
			}
			if !live {
				responses.Error(r.Context(), w, logg, errors.New(errors.CodeUnauthorized, "session expired"))
				return
			}

			ctx := WithIdentity(r.Context(), claims.UserID, claims.Role, claims.ID)
			ctx = logg.WithUserID(ctx, claims.UserID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
