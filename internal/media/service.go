package media

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/cartfold/cartfold-backend/internal/products"
	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type uploader interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
}

// Service uploads product images and records their URLs on the product.
type Service interface {
	UploadProductImage(ctx context.Context, vendorID, productID uuid.UUID, file io.Reader) (string, error)
}

type service struct {
	storage  uploader
	products products.ProductRepository
	maxBytes int64
	logg     *logger.Logger
}

// NewService builds a media service backed by the provided stack.
func NewService(storage uploader, productRepo products.ProductRepository, maxBytes int64, logg *logger.Logger) (Service, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage client required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload size must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{storage: storage, products: productRepo, maxBytes: maxBytes, logg: logg}, nil
}

// UploadProductImage sniffs the image type, enforces the size cap, stores
// the object and appends its URL to the owning vendor's product.
func (s *service) UploadProductImage(ctx context.Context, vendorID, productID uuid.UUID, file io.Reader) (string, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if product == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.VendorID != vendorID {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading upload")
	}
	head = head[:n]

	contentType, extension, err := detectImageType(head)
	if err != nil {
		return "", err
	}

	// Re-join the sniffed bytes with the rest, capped one byte over the
	// limit so oversize uploads are detectable without buffering them.
	capped := io.LimitReader(io.MultiReader(bytes.NewReader(head), file), s.maxBytes+1)
	body, err := io.ReadAll(capped)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading upload")
	}
	if int64(len(body)) > s.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("image exceeds the %d byte limit", s.maxBytes))
	}

	objectName := fmt.Sprintf("products/%s/%s%s", productID, uuid.NewString(), extension)
	url, err := s.storage.Upload(ctx, objectName, contentType, bytes.NewReader(body))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "uploading image")
	}

	if err := s.products.AppendImageURL(ctx, productID, url); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording image url")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": productID.String(),
		"object":     objectName,
	}), "product image uploaded")
	return url, nil
}
