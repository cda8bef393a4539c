package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/pkg/db"
	"github.com/cartfold/cartfold-backend/pkg/db/models"
	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes category catalog operations.
type Service interface {
	Create(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Rename(ctx context.Context, id uuid.UUID, name string) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo CategoryRepository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds a category service backed by the provided stack.
func NewService(repo CategoryRepository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Create(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	category := &models.Category{Name: name}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindByName(ctx, name)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking category name")
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}

		if err := repo.Create(ctx, category); err != nil {
			if db.IsUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithField(ctx, "category_id", category.ID.String()), "category created")
	return category, nil
}

func (s *service) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}
	return categories, nil
}

func (s *service) Rename(ctx context.Context, id uuid.UUID, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category name is required")
	}

	var category *models.Category
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		category, err = repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
		}
		if category == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}

		clash, err := repo.FindByName(ctx, name)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking category name")
		}
		if clash != nil && clash.ID != id {
			return pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}

		category.Name = name
		if err := repo.Update(ctx, category); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating category")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes a category only when no product references it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		category, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
		}
		if category == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}

		count, err := repo.CountProducts(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting category products")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "category has products")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting category")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logg.Info(s.logg.WithField(ctx, "category_id", id.String()), "category deleted")
	return nil
}
