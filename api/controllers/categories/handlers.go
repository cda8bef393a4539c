package categories

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cartfold/cartfold-backend/api/responses"
	"github.com/cartfold/cartfold-backend/api/validators"
	catsvc "github.com/cartfold/cartfold-backend/internal/categories"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// List returns every category, name-ordered.
func List(svc catsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, items)
	}
}

// Create adds a category.
func Create(svc catsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input categoryRequest
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		category, err := svc.Create(r.Context(), input.Name)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusCreated, category)
	}
}

// Rename changes a category's name.
func Rename(svc catsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(chi.URLParam(r, "categoryID"), "categoryID")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		var input categoryRequest
		if err := validators.DecodeBody(w, r, &input); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		category, err := svc.Rename(r.Context(), id, input.Name)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, category)
	}
}

// Delete removes a category with no products attached.
func Delete(svc catsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(chi.URLParam(r, "categoryID"), "categoryID")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.NoContent(w)
	}
}
