package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cartfold/cartfold-backend/pkg/enums"
)

// AccessTokenClaims is the payload minted into access tokens. The JWT ID
// doubles as the session key in redis.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"uid"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
