package auth

import (
	"context"

	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/pkg/db"
	"github.com/cartfold/cartfold-backend/pkg/db/models"
	"github.com/cartfold/cartfold-backend/pkg/enums"
	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
)

// Register creates the account, and for vendors the profile row, in one
// transaction. Duplicate emails surface as a conflict.
func (s *service) Register(ctx context.Context, input RegisterInput) (*UserDTO, error) {
	role, err := enums.ParseUserRole(input.Role)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").
			WithDetails(map[string]string{"role": "must be one of: customer vendor"})
	}
	if role == enums.RoleVendor && input.CompanyName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").
			WithDetails(map[string]string{"company_name": "is required for vendor accounts"})
	}

	email := normalizeEmail(input.Email)

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Address:      input.Address,
		Role:         role,
		IsActive:     true,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.users.WithTx(tx)

		existing, err := repo.FindByEmail(ctx, email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking email")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		if err := repo.Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating user")
		}

		if role == enums.RoleVendor {
			profile := &models.VendorProfile{
				UserID:             user.ID,
				CompanyName:        input.CompanyName,
				VerificationDocURL: input.VerificationDocURL,
			}
			if err := repo.CreateVendorProfile(ctx, profile); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating vendor profile")
			}
			user.VendorProfile = profile
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return toUserDTO(user), nil
}
