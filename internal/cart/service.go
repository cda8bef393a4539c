package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/internal/products"
	"github.com/cartfold/cartfold-backend/pkg/db/models"
	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CartItemDTO is one line of the public cart shape.
type CartItemDTO struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartDTO is the public cart shape. A user with no cart row gets the empty
// value.
type CartDTO struct {
	Items       []CartItemDTO   `json:"items"`
	NumOfItems  int             `json:"num_of_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// Service exposes the customer cart operations.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	repo     CartRepository
	products products.ProductRepository
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, productRepo products.ProductRepository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, products: productRepo, tx: tx, logg: logg}, nil
}

// GetCart returns the user's cart, or an empty cart when none exists yet.
func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if cart == nil {
		return emptyCart(), nil
	}
	return toCartDTO(cart.Items, cart.NumOfItems, cart.TotalAmount), nil
}

// AddItem puts quantity units of the product into the cart, merging with an
// existing line. Stock is taken immediately so the cart holds a
// reservation; removing the line later does not return it.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*CartDTO, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than 0")
	}

	var dto *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		products := s.products.WithTx(tx)

		product, err := products.FindByID(ctx, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}
		if product == nil || !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		taken, err := products.DecrementStock(ctx, productID, quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserving stock")
		}
		if !taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product")
		}

		cart, err := repo.FindByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if cart == nil {
			cart = &models.Cart{UserID: userID}
			if err := repo.Create(ctx, cart); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
			}
		}

		line, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
		}
		if line == nil {
			line = &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
			if err := repo.CreateItem(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adding cart line")
			}
		} else {
			line.Quantity += quantity
			if err := repo.SaveItem(ctx, line); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merging cart line")
			}
		}

		dto, err = s.recomputeTotals(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"product_id": productID.String(),
		"quantity":   quantity,
	}), "cart item added")
	return dto, nil
}

// RemoveItem drops the whole line for the product. The reserved stock is
// not returned.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	var dto *CartDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if cart == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		line, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart line")
		}
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		if err := repo.DeleteItem(ctx, line.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing cart line")
		}

		dto, err = s.recomputeTotals(ctx, repo, cart)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ClearCart empties the cart. A missing or already-empty cart is a no-op.
func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cart, err := repo.FindByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if cart == nil {
			return nil
		}

		if err := repo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
		}

		cart.NumOfItems = 0
		cart.TotalAmount = decimal.Zero
		if err := repo.Save(ctx, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resetting cart totals")
		}
		return nil
	})
}

// recomputeTotals re-reads the lines and reprices them from the current
// discounted prices, then persists the denormalized totals.
func (s *service) recomputeTotals(ctx context.Context, repo CartRepository, cart *models.Cart) (*CartDTO, error) {
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cart lines")
	}

	numOfItems := 0
	total := decimal.Zero
	for _, item := range items {
		numOfItems += item.Quantity
		if item.Product != nil {
			total = total.Add(item.Product.DiscountedPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}

	cart.NumOfItems = numOfItems
	cart.TotalAmount = total
	if err := repo.Save(ctx, cart); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving cart totals")
	}

	return toCartDTO(items, numOfItems, total), nil
}

func toCartDTO(items []models.CartItem, numOfItems int, total decimal.Decimal) *CartDTO {
	dto := &CartDTO{
		Items:       make([]CartItemDTO, 0, len(items)),
		NumOfItems:  numOfItems,
		TotalAmount: total,
	}
	for _, item := range items {
		line := CartItemDTO{ProductID: item.ProductID, Quantity: item.Quantity}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.UnitPrice = item.Product.DiscountedPrice
			line.LineTotal = item.Product.DiscountedPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}
		dto.Items = append(dto.Items, line)
	}
	return dto
}

func emptyCart() *CartDTO {
	return &CartDTO{Items: []CartItemDTO{}, TotalAmount: decimal.Zero}
}
