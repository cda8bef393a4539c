package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cartfold/cartfold-backend/pkg/logger"
)

// Logging emits one structured line per request with method, path, status,
// byte count and latency. The context logger picks up the request ID.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx := r.Context()
			if requestID, ok := RequestIDFromContext(ctx); ok {
				ctx = logg.WithRequestID(ctx, requestID)
			}

			next.ServeHTTP(ww, r.WithContext(ctx))

			ctx = logg.WithFields(ctx, map[string]any{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"latency_ms": time.Since(start).Milliseconds(),
			})
			if ww.Status() >= http.StatusInternalServerError {
				logg.Error(ctx, "request completed", nil)
				return
			}
			logg.Info(ctx, "request completed")
		})
	}
}
