package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cartfold/cartfold-backend/internal/cart"
	"github.com/cartfold/cartfold-backend/pkg/db/models"
	"github.com/cartfold/cartfold-backend/pkg/enums"
	pkgerrors "github.com/cartfold/cartfold-backend/pkg/errors"
	"github.com/cartfold/cartfold-backend/pkg/logger"
	"github.com/cartfold/cartfold-backend/pkg/metrics"
	"github.com/cartfold/cartfold-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ListResult carries one page of orders plus the cursor for the next.
type ListResult struct {
	Items      []models.Order
	NextCursor string
	HasMore    bool
}

// Service exposes the order lifecycle: customers place, list and cancel;
// vendors accept or reject.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, address string) (*models.Order, error)
	LatestOrder(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) (*ListResult, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID) error
	ListVendorOrders(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) (*ListResult, error)
	Accept(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	Reject(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo     OrderRepository
	cartRepo cart.CartRepository
	tx       txRunner
	workflow *metrics.OrderWorkflow
	logg     *logger.Logger
}

// NewService builds an order service backed by the provided stack.
func NewService(
	repo OrderRepository,
	cartRepo cart.CartRepository,
	tx txRunner,
	workflow *metrics.OrderWorkflow,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if workflow == nil {
		return nil, fmt.Errorf("order workflow metrics required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, cartRepo: cartRepo, tx: tx, workflow: workflow, logg: logg}, nil
}

// PlaceOrder converts the cart into a pending order, snapshotting names and
// discounted prices, then empties the cart. One transaction covers both.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, address string) (*models.Order, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.repo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		userCart, err := cartRepo.FindByUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if userCart == nil || len(userCart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(userCart.Items))
		for _, line := range userCart.Items {
			if line.Product == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "cart line missing product")
			}
			unitPrice := line.Product.DiscountedPrice
			total = total.Add(unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
			items = append(items, models.OrderItem{
				ProductID: line.ProductID,
				VendorID:  line.Product.VendorID,
				Name:      line.Product.Name,
				UnitPrice: unitPrice,
				Quantity:  line.Quantity,
			})
		}

		order = &models.Order{
			UserID:      userID,
			Address:     address,
			Status:      enums.OrderStatusPending,
			TotalAmount: total,
			Items:       items,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		if err := cartRepo.DeleteItems(ctx, userCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
		}
		userCart.NumOfItems = 0
		userCart.TotalAmount = decimal.Zero
		if err := cartRepo.Save(ctx, userCart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resetting cart totals")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.workflow.Placed()
	s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID.String()), "order placed")
	return order, nil
}

// LatestOrder returns the user's most recent order.
func (s *service) LatestOrder(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading latest order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) (*ListResult, error) {
	limit = pagination.ClampLimit(limit)
	items, err := s.repo.ListByUser(ctx, userID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return page(items, limit), nil
}

// CancelOrder deletes a pending order. Accepted or rejected orders can no
// longer be cancelled.
func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order is %s and can no longer be cancelled", order.Status))
		}

		if err := repo.Delete(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting order")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.workflow.Cancelled()
	s.logg.Info(s.logg.WithField(ctx, "order_id", orderID.String()), "order cancelled")
	return nil
}

// ListVendorOrders pages orders containing the vendor's items. The vendor
// sees the whole order, not just their own lines.
func (s *service) ListVendorOrders(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) (*ListResult, error) {
	limit = pagination.ClampLimit(limit)
	items, err := s.repo.ListByVendor(ctx, vendorID, cursor, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing vendor orders")
	}
	return page(items, limit), nil
}

// Accept moves a pending order to accepted. Repeating the same decision is
// a no-op; accepting a rejected order is refused.
func (s *service) Accept(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, changed, err := s.decide(ctx, orderID, enums.OrderStatusAccepted)
	if err != nil {
		return nil, err
	}
	if changed {
		s.workflow.Accepted()
	}
	return order, nil
}

// Reject moves a pending order to rejected, mirroring Accept.
func (s *service) Reject(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, changed, err := s.decide(ctx, orderID, enums.OrderStatusRejected)
	if err != nil {
		return nil, err
	}
	if changed {
		s.workflow.Rejected()
	}
	return order, nil
}

// decide applies a status transition. The changed flag is false for a
// repeated decision, so no-op retries are not counted or logged.
func (s *service) decide(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, bool, error) {
	var order *models.Order
	changed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		order, err = repo.FindByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}

		if order.Status == target {
			return nil
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order is %s and cannot become %s", order.Status, target))
		}

		if err := repo.UpdateStatus(ctx, orderID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
		}
		order.Status = target
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id": orderID.String(),
			"status":   target.String(),
		}), "order decision recorded")
	}
	return order, changed, nil
}

func page(items []models.Order, limit int) *ListResult {
	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.HasMore = true
		last := result.Items[limit-1]
		result.NextCursor = pagination.Encode(last.CreatedAt, last.ID)
	}
	return result
}
