package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cartfold/cartfold-backend/api/middleware"
	"github.com/cartfold/cartfold-backend/api/responses"
	"github.com/cartfold/cartfold-backend/api/validators"
	cartsvc "github.com/cartfold/cartfold-backend/internal/cart"
	"github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// Get returns the caller's cart, empty if none exists yet.
func Get(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}

		dto, err := svc.GetCart(r.Context(), userID)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, dto)
	}
}

// AddItem reserves stock and adds or merges a cart line.
func AddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}

		var input addItemRequest
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		productID, err := uuid.Parse(input.ProductID)
		if err != nil {
			responses.Error(r.Context(), w, logg,
				errors.New(errors.CodeValidation, "invalid product id"))
			return
		}

		dto, err := svc.AddItem(r.Context(), userID, productID, input.Quantity)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, dto)
	}
}

// RemoveItem drops a cart line. Reserved stock is not returned.
func RemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}
		productID, err := validators.PathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		dto, err := svc.RemoveItem(r.Context(), userID, productID)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, dto)
	}
}

// Clear empties the caller's cart.
func Clear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}

		if err := svc.ClearCart(r.Context(), userID); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.NoContent(w)
	}
}
