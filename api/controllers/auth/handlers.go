package auth

import (
	"net/http"

	"github.com/cartfold/cartfold-backend/api/responses"
	"github.com/cartfold/cartfold-backend/api/validators"
	authsvc "github.com/cartfold/cartfold-backend/internal/auth"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Register creates an account.
func Register(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input authsvc.RegisterInput
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		user, err := svc.Register(r.Context(), input)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusCreated, user)
	}
}

// Login exchanges credentials for a token pair.
func Login(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input authsvc.LoginInput
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		pair, err := svc.Login(r.Context(), input)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, pair)
	}
}

// Refresh rotates a refresh token.
func Refresh(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input refreshRequest
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		pair, err := svc.Refresh(r.Context(), input.RefreshToken)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, pair)
	}
}

// Logout revokes a refresh token.
func Logout(svc authsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input refreshRequest
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		if err := svc.Logout(r.Context(), input.RefreshToken); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.NoContent(w)
	}
}
