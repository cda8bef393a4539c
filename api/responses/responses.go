package responses

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
	"github.com/cartfold/cartfold-backend/pkg/types"
)

// JSON writes a success envelope with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, types.SuccessEnvelope{Data: data})
}

// JSONPage writes a success envelope with pagination metadata.
func JSONPage(w http.ResponseWriter, status int, data any, meta types.PageMeta) {
	write(w, status, types.SuccessEnvelope{Data: data, Meta: &meta})
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error maps err onto the public error envelope. Typed errors use their
// code's HTTP metadata; anything else becomes an opaque 500. Server-side
// failures are logged with full diagnostics before the response goes out.
func Error(ctx context.Context, w http.ResponseWriter, logg *logger.Logger, err error) {
	typed := errors.As(err)
	if typed == nil {
		typed = errors.Wrap(errors.CodeInternal, err, "unexpected error")
	}

	meta := errors.MetadataFor(typed.Code())
	if meta.HTTPStatus >= http.StatusInternalServerError && logg != nil {
		dump := errors.Dump(err)
		fields := map[string]any{"error_code": string(typed.Code())}
		if dump.PGCode != "" {
			fields["pg_code"] = dump.PGCode
			fields["pg_constraint"] = dump.PGConstraint
		}
		logg.Error(logg.WithFields(ctx, fields), "request failed", err)
	}

	apiErr := types.APIError{
		Code:    string(typed.Code()),
		Message: typed.Message(),
	}
	if apiErr.Message == "" {
		apiErr.Message = meta.PublicMessage
	}
	if meta.DetailsAllowed {
		apiErr.Details = typed.Details()
	}
	if meta.HTTPStatus >= http.StatusInternalServerError {
		// Never leak internals in 5xx bodies.
		apiErr.Message = meta.PublicMessage
		apiErr.Details = nil
	}

	write(w, meta.HTTPStatus, types.ErrorEnvelope{Error: apiErr})
}

func write(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
