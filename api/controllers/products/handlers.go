package products

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cartfold/cartfold-backend/api/middleware"
	"github.com/cartfold/cartfold-backend/api/responses"
	"github.com/cartfold/cartfold-backend/api/validators"
	prodsvc "github.com/cartfold/cartfold-backend/internal/products"
	"github.com/cartfold/cartfold-backend/pkg/logger"
	"github.com/cartfold/cartfold-backend/pkg/types"
)

// List returns the public catalog, filtered and cursor-paged.
func List(svc prodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categoryID, err := validators.QueryUUID(r, "category_id")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		vendorID, err := validators.QueryUUID(r, "vendor_id")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
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

		result, err := svc.List(r.Context(), prodsvc.ListFilter{
			CategoryID: categoryID,
			VendorID:   vendorID,
			ActiveOnly: true,
			Cursor:     cursor,
			Limit:      limit,
		})
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

// Get returns one product with its category preloaded.
func Get(svc prodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, product)
	}
}

// Create adds a product owned by the authenticated vendor.
func Create(svc prodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}

		var input prodsvc.CreateProductInput
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		product, err := svc.Create(r.Context(), vendorID, input)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusCreated, product)
	}
}

// Update applies a partial update to a vendor's own product.
func Update(svc prodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}
		id, err := validators.PathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		var input prodsvc.UpdateProductInput
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		product, err := svc.Update(r.Context(), vendorID, id, input)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, product)
	}
}

// Delete removes a vendor's own product.
func Delete(svc prodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}
		id, err := validators.PathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		if err := svc.Delete(r.Context(), vendorID, id); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.NoContent(w)
	}
}
