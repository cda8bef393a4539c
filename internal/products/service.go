package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/pkg/db/models"
	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
	"github.com/cartfold/cartfold-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type categoryLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

// ListResult carries one page of products plus the cursor for the next.
type ListResult struct {
	Items      []models.Product
	NextCursor string
	HasMore    bool
}

// Service exposes catalog operations. Mutations are owner-scoped: only the
// vendor that created a product may change or remove it.
type Service interface {
	Create(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, vendorID, id uuid.UUID, input UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, vendorID, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
}

type service struct {
	repo       ProductRepository
	categories categoryLoader
	tx         txRunner
	logg       *logger.Logger
}

// NewService builds a product service backed by the provided stack.
func NewService(repo ProductRepository, categories categoryLoader, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category loader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, categories: categories, tx: tx, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, vendorID uuid.UUID, input CreateProductInput) (*models.Product, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := validatePricing(input.Price, input.DiscountPercent); err != nil {
		return nil, err
	}

	categoryID, err := uuid.Parse(input.CategoryID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").
			WithDetails(map[string]string{"category_id": "must be a valid UUID"})
	}

	category, err := s.categories.FindByID(ctx, categoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
	}
	if category == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}

	product := &models.Product{
		VendorID:        vendorID,
		CategoryID:      categoryID,
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		Price:           input.Price,
		DiscountPercent: input.DiscountPercent,
		Quantity:        input.Quantity,
		ImageURLs:       input.ImageURLs,
		IsActive:        true,
	}
	product.ApplyDiscount()

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product created")
	return product, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, vendorID, id uuid.UUID, input UpdateProductInput) (*models.Product, error) {
	var product *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		product, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}
		if product == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if product.VendorID != vendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
		}

		if input.CategoryID != nil {
			categoryID, err := uuid.Parse(*input.CategoryID)
			if err != nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").
					WithDetails(map[string]string{"category_id": "must be a valid UUID"})
			}
			category, err := s.categories.FindByID(ctx, categoryID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
			}
			if category == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			product.CategoryID = categoryID
		}
		if input.Name != nil {
			product.Name = strings.TrimSpace(*input.Name)
		}
		if input.Description != nil {
			product.Description = *input.Description
		}
		if input.Price != nil {
			product.Price = *input.Price
		}
		if input.DiscountPercent != nil {
			product.DiscountPercent = *input.DiscountPercent
		}
		if input.Quantity != nil {
			product.Quantity = *input.Quantity
		}
		if input.IsActive != nil {
			product.IsActive = *input.IsActive
		}

		if err := validatePricing(product.Price, product.DiscountPercent); err != nil {
			return err
		}
		product.ApplyDiscount()

		if err := repo.Update(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, vendorID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}
		if product == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if product.VendorID != vendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
		}
		return nil
	})
}

// List pages the catalog, returning limit items and the cursor pointing at
// the next page.
func (s *service) List(ctx context.Context, filter ListFilter) (*ListResult, error) {
	limit := pagination.ClampLimit(filter.Limit)
	filter.Limit = limit

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.HasMore = true
		last := result.Items[limit-1]
		result.NextCursor = pagination.Encode(last.CreatedAt, last.ID)
	}
	return result, nil
}

var oneHundred = decimal.NewFromInt(100)

func validatePricing(price, discountPercent decimal.Decimal) error {
	details := map[string]string{}
	if price.LessThanOrEqual(decimal.Zero) {
		details["price"] = "must be greater than 0"
	}
	if discountPercent.LessThan(decimal.Zero) || discountPercent.GreaterThan(oneHundred) {
		details["discount_percent"] = "must be between 0 and 100"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").WithDetails(details)
	}
	return nil
}
