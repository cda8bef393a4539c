package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/pkg/db"
	"github.com/cartfold/cartfold-backend/pkg/db/models"
	"github.com/cartfold/cartfold-backend/pkg/pagination"
)

// ListFilter narrows a catalog listing. Nil/zero fields are ignored.
type ListFilter struct {
	CategoryID uuid.UUID
	VendorID   uuid.UUID
	ActiveOnly bool
	Cursor     *pagination.Cursor
	Limit      int
}

// ProductRepository defines the persistence surface required by the
// product service.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]models.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID, by int) (bool, error)
	AppendImageURL(ctx context.Context, id uuid.UUID, url string) error
}

// Repository is the gorm-backed implementation.
type Repository struct {
	db *gorm.DB
}

func NewRepository(gormDB *gorm.DB) *Repository {
	return &Repository{db: gormDB}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindByID returns nil when no product matches.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("id = ?", id).
		First(&product).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// List pages products newest first, keyed by (created_at, id).
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Product, error) {
	limit := pagination.ClampLimit(filter.Limit)

	query := r.db.WithContext(ctx).
		Preload("Category").
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if filter.CategoryID != uuid.Nil {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.VendorID != uuid.Nil {
		query = query.Where("vendor_id = ?", filter.VendorID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}

	var items []models.Product
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DecrementStock atomically takes stock, reporting false when not enough
// remains.
func (r *Repository) DecrementStock(ctx context.Context, id uuid.UUID, by int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", id, by).
		Update("quantity", gorm.Expr("quantity - ?", by))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) AppendImageURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("image_urls", gorm.Expr("array_append(image_urls, ?)", url)).Error
}
