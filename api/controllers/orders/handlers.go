package orders

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cartfold/cartfold-backend/api/middleware"
	"github.com/cartfold/cartfold-backend/api/responses"
	"github.com/cartfold/cartfold-backend/api/validators"
	ordersvc "github.com/cartfold/cartfold-backend/internal/orders"
	"github.com/cartfold/cartfold-backend/pkg/db/models"
	"github.com/cartfold/cartfold-backend/pkg/logger"
	"github.com/cartfold/cartfold-backend/pkg/pagination"
	"github.com/cartfold/cartfold-backend/pkg/types"
)

type placeOrderRequest struct {
	Address string `json:"address" validate:"required,max=500"`
}

// Place converts the caller's cart into a pending order.
func Place(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}

		var input placeOrderRequest
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), userID, input.Address)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusCreated, order)
	}
}

// List returns the caller's orders, newest first.
func List(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return pagedList(logg, func(r *http.Request, userID uuid.UUID, cursor *pagination.Cursor, limit int) (*ordersvc.ListResult, error) {
		return svc.ListOrders(r.Context(), userID, cursor, limit)
	})
}

// Latest returns the caller's most recent order.
func Latest(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}

		order, err := svc.LatestOrder(r.Context(), userID)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, order)
	}
}

// Cancel removes a pending order owned by the caller.
func Cancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		if err := svc.CancelOrder(r.Context(), userID, orderID); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.NoContent(w)
	}
}

// VendorList returns every order containing at least one of the vendor's
// products, whole.
func VendorList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return pagedList(logg, func(r *http.Request, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) (*ordersvc.ListResult, error) {
		return svc.ListVendorOrders(r.Context(), vendorID, cursor, limit)
	})
}

// Accept moves a pending order to accepted.
func Accept(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(logg, svc.Accept)
}

// Reject moves a pending order to rejected.
func Reject(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return decide(logg, svc.Reject)
}

func pagedList(logg *logger.Logger, list func(r *http.Request, id uuid.UUID, cursor *pagination.Cursor, limit int) (*ordersvc.ListResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}
		cursor, err := validators.QueryCursor(r, "cursor")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		limit, err := validators.QueryInt(r, "limit", 0)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		result, err := list(r, userID, cursor, limit)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSONPage(w, http.StatusOK, result.Items, types.PageMeta{
			NextCursor: result.NextCursor,
			HasMore:    result.HasMore,
		})
	}
}

func decide(logg *logger.Logger, apply func(ctx context.Context, orderID uuid.UUID) (*models.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(chi.URLParam(r, "orderID"), "orderID")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		order, err := apply(r.Context(), orderID)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, order)
	}
}
