package media

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cartfold/cartfold-backend/api/middleware"
	"github.com/cartfold/cartfold-backend/api/responses"
	"github.com/cartfold/cartfold-backend/api/validators"
	mediasvc "github.com/cartfold/cartfold-backend/internal/media"
	"github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type uploadResponse struct {
	URL string `json:"url"`
}

// UploadProductImage accepts a multipart "image" part and attaches the
// stored object's URL to the vendor's product.
func UploadProductImage(svc mediasvc.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, ok := middleware.UserIDFromContext(r.Context())
		if !ok {
			responses.Error(r.Context(), w, logg, middleware.ErrMissingIdentity)
			return
		}
		productID, err := validators.PathUUID(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}

		// The form cap leaves headroom over the image limit so the
		// service can report oversize files precisely.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		file, _, err := r.FormFile("image")
		if err != nil {
			responses.Error(r.Context(), w, logg,
				errors.New(errors.CodeValidation, "multipart field \"image\" is required"))
			return
		}
		defer file.Close()

		url, err := svc.UploadProductImage(r.Context(), vendorID, productID, file)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusCreated, uploadResponse{URL: url})
	}
}
