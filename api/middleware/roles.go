package middleware

import (
	"net/http"

	"github.com/cartfold/cartfold-backend/api/responses"
	"github.com/cartfold/cartfold-backend/pkg/enums"
	"github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

// RequireRole rejects authenticated requests whose role is not in allowed.
// Must run after Auth.
func RequireRole(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				responses.Error(r.Context(), w, logg, errors.New(errors.CodeUnauthorized, "authentication required"))
				return
			}
			for _, candidate := range allowed {
				if role == candidate {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.Error(r.Context(), w, logg, errors.New(errors.CodeForbidden, "insufficient role"))
		})
	}
}
