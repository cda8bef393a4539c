package media

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/internal/products"
	"github.com/cartfold/cartfold-backend/pkg/db/models"
	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

// pngHeader is the 8-byte PNG signature plus padding so sniffing sees a
// real image.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func pngPayload(size int) []byte {
	payload := make([]byte, size)
	copy(payload, pngHeader)
	return payload
}

type stubUploader struct {
	objects map[string][]byte
	fail    error
}

func newStubUploader() *stubUploader {
	return &stubUploader{objects: map[string][]byte{}}
}

func (s *stubUploader) Upload(_ context.Context, objectName, _ string, body io.Reader) (string, error) {
	if s.fail != nil {
		return "", s.fail
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.objects[objectName] = data
	return "https://storage.example.com/" + objectName, nil
}

type stubProductRepo struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductRepo) WithTx(*gorm.DB) products.ProductRepository { return s }

func (s *stubProductRepo) Create(_ context.Context, product *models.Product) error {
	s.products[product.ID] = product
	return nil
}

func (s *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	return s.products[id], nil
}

func (s *stubProductRepo) Update(_ context.Context, product *models.Product) error {
	s.products[product.ID] = product
	return nil
}

func (s *stubProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.products, id)
	return nil
}

func (s *stubProductRepo) List(context.Context, products.ListFilter) ([]models.Product, error) {
	return nil, nil
}

func (s *stubProductRepo) DecrementStock(context.Context, uuid.UUID, int) (bool, error) {
	return false, nil
}

func (s *stubProductRepo) AppendImageURL(_ context.Context, id uuid.UUID, url string) error {
	if product, ok := s.products[id]; ok {
		product.ImageURLs = append(product.ImageURLs, url)
	}
	return nil
}

func newTestService(t *testing.T) (Service, *stubUploader, *stubProductRepo, *models.Product) {
	t.Helper()

	uploader := newStubUploader()
	product := &models.Product{ID: uuid.New(), VendorID: uuid.New(), Name: "Widget"}
	repo := &stubProductRepo{products: map[uuid.UUID]*models.Product{product.ID: product}}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	svc, err := NewService(uploader, repo, 1024, logg)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc, uploader, repo, product
}

func TestUploadProductImage(t *testing.T) {
	t.Parallel()

	svc, uploader, _, product := newTestService(t)

	url, err := svc.UploadProductImage(context.Background(), product.VendorID, product.ID, bytes.NewReader(pngPayload(600)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url == "" {
		t.Fatal("expected url")
	}
	if len(uploader.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(uploader.objects))
	}
	for _, data := range uploader.objects {
		if len(data) != 600 {
			t.Fatalf("expected full payload stored, got %d bytes", len(data))
		}
	}
	if len(product.ImageURLs) != 1 || product.ImageURLs[0] != url {
		t.Fatalf("expected url recorded on product, got %v", product.ImageURLs)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	t.Parallel()

	svc, _, _, product := newTestService(t)

	_, err := svc.UploadProductImage(context.Background(), product.VendorID, product.ID,
		bytes.NewReader([]byte("%PDF-1.4 not an image")))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	t.Parallel()

	svc, _, _, product := newTestService(t)

	_, err := svc.UploadProductImage(context.Background(), product.VendorID, product.ID,
		bytes.NewReader(pngPayload(2048)))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUploadOwnerOnly(t *testing.T) {
	t.Parallel()

	svc, _, _, product := newTestService(t)

	_, err := svc.UploadProductImage(context.Background(), uuid.New(), product.ID, bytes.NewReader(pngPayload(100)))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	_, err = svc.UploadProductImage(context.Background(), product.VendorID, uuid.New(), bytes.NewReader(pngPayload(100)))
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
