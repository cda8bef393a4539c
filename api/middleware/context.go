package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/cartfold/cartfold-backend/pkg/enums"
	"github.com/cartfold/cartfold-backend/pkg/errors"
)

// ErrMissingIdentity is returned by handlers reached without the Auth
// middleware having stored an identity.
var ErrMissingIdentity = errors.New(errors.CodeUnauthorized, "authentication required")

type contextKey string

const (
	userIDKey   contextKey = "user_id"
	userRoleKey contextKey = "user_role"
	accessIDKey contextKey = "access_id"
)

// WithIdentity stores the authenticated identity on the context.
func WithIdentity(ctx context.Context, userID uuid.UUID, role enums.UserRole, accessID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, userRoleKey, role)
	ctx = context.WithValue(ctx, accessIDKey, accessID)
	return ctx
}

// UserIDFromContext returns the authenticated user ID, if present.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// RoleFromContext returns the authenticated role, if present.
func RoleFromContext(ctx context.Context) (enums.UserRole, bool) {
	role, ok := ctx.Value(userRoleKey).(enums.UserRole)
	return role, ok
}

// AccessIDFromContext returns the access token ID, if present.
func AccessIDFromContext(ctx context.Context) (string, bool) {
	accessID, ok := ctx.Value(accessIDKey).(string)
	return accessID, ok
}
