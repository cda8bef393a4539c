package validators

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/pagination"
)

// QueryInt parses an optional integer query parameter, returning fallback
// when absent.
func QueryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(errors.CodeValidation, "invalid query parameter").
			WithDetails(map[string]string{name: "must be an integer"})
	}
	return value, nil
}

// QueryUUID parses an optional UUID query parameter, returning uuid.Nil
// when absent.
func QueryUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New(errors.CodeValidation, "invalid query parameter").
			WithDetails(map[string]string{name: "must be a valid UUID"})
	}
	return id, nil
}

// QueryCursor parses an optional pagination cursor query parameter.
func QueryCursor(r *http.Request, name string) (*pagination.Cursor, error) {
	cursor, err := pagination.Decode(r.URL.Query().Get(name))
	if err != nil {
		return nil, errors.New(errors.CodeValidation, "invalid query parameter").
			WithDetails(map[string]string{name: err.Error()})
	}
	return cursor, nil
}

// PathUUID parses a required UUID path parameter.
func PathUUID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New(errors.CodeValidation, "invalid path parameter").
			WithDetails(map[string]string{name: "must be a valid UUID"})
	}
	return id, nil
}
