package auth

import (
	"time"

	"github.com/cartfold/cartfold-backend/pkg/db/models"
)

// RegisterInput is the validated registration payload. Vendor fields are
// required only when Role is vendor.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"max=32"`
	Address   string `json:"address" validate:"max=500"`
	Role      string `json:"role" validate:"required,oneof=customer vendor"`

	CompanyName        string `json:"company_name" validate:"max=200"`
	VerificationDocURL string `json:"verification_doc_url" validate:"omitempty,url"`
}

// LoginInput is the validated login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is returned from login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *UserDTO  `json:"user,omitempty"`
}

// UserDTO is the public user shape.
type UserDTO struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone,omitempty"`
	Address     string     `json:"address,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	CompanyName        string `json:"company_name,omitempty"`
	VerificationDocURL string `json:"verification_doc_url,omitempty"`
}

func toUserDTO(user *models.User) *UserDTO {
	dto := &UserDTO{
		ID:          user.ID.String(),
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Phone:       user.Phone,
		Address:     user.Address,
		Role:        user.Role.String(),
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
	if user.VendorProfile != nil {
		dto.CompanyName = user.VendorProfile.CompanyName
		dto.VerificationDocURL = user.VendorProfile.VerificationDocURL
	}
	return dto
}
