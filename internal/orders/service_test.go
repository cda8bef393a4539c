package orders

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
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

type stubOrderRepo struct {
	orders map[uuid.UUID]*models.Order
	seq    int
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrderRepo) WithTx(*gorm.DB) OrderRepository { return s }

func (s *stubOrderRepo) Create(_ context.Context, order *models.Order) error {
	order.ID = uuid.New()
	s.seq++
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	return s.orders[id], nil
}

func (s *stubOrderRepo) FindLatestByUser(_ context.Context, userID uuid.UUID) (*models.Order, error) {
	var latest *models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			if latest == nil || order.CreatedAt.After(latest.CreatedAt) {
				latest = order
			}
		}
	}
	return latest, nil
}

func (s *stubOrderRepo) ListByUser(_ context.Context, userID uuid.UUID, _ *pagination.Cursor, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	if len(out) > limit+1 {
		out = out[:limit+1]
	}
	return out, nil
}

func (s *stubOrderRepo) ListByVendor(_ context.Context, vendorID uuid.UUID, _ *pagination.Cursor, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		for _, item := range order.Items {
			if item.VendorID == vendorID {
				out = append(out, *order)
				break
			}
		}
	}
	if len(out) > limit+1 {
		out = out[:limit+1]
	}
	return out, nil
}

func (s *stubOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.OrderStatus) error {
	if order, ok := s.orders[id]; ok {
		order.Status = status
	}
	return nil
}

func (s *stubOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.orders, id)
	return nil
}

type stubCartRepo struct {
	carts map[uuid.UUID]*models.Cart
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{carts: map[uuid.UUID]*models.Cart{}}
}

func (s *stubCartRepo) WithTx(*gorm.DB) cart.CartRepository { return s }

func (s *stubCartRepo) FindByUser(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	for _, c := range s.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	return nil, nil
}

func (s *stubCartRepo) Create(_ context.Context, c *models.Cart) error {
	c.ID = uuid.New()
	s.carts[c.ID] = c
	return nil
}

func (s *stubCartRepo) Save(_ context.Context, c *models.Cart) error {
	if stored, ok := s.carts[c.ID]; ok {
		stored.NumOfItems = c.NumOfItems
		stored.TotalAmount = c.TotalAmount
	}
	return nil
}

func (s *stubCartRepo) FindItem(context.Context, uuid.UUID, uuid.UUID) (*models.CartItem, error) {
	return nil, nil
}

func (s *stubCartRepo) CreateItem(context.Context, *models.CartItem) error { return nil }
func (s *stubCartRepo) SaveItem(context.Context, *models.CartItem) error   { return nil }
func (s *stubCartRepo) DeleteItem(context.Context, uuid.UUID) error        { return nil }

func (s *stubCartRepo) DeleteItems(_ context.Context, cartID uuid.UUID) error {
	if c, ok := s.carts[cartID]; ok {
		c.Items = nil
	}
	return nil
}

func (s *stubCartRepo) ListItems(_ context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	if c, ok := s.carts[cartID]; ok {
		return c.Items, nil
	}
	return nil, nil
}

type stubTx struct{}

func (stubTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

func newTestService(t *testing.T) (Service, *stubOrderRepo, *stubCartRepo) {
	t.Helper()
	orderRepo := newStubOrderRepo()
	cartRepo := newStubCartRepo()
	workflow := metrics.NewOrderWorkflow(prometheus.NewRegistry())
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(orderRepo, cartRepo, stubTx{}, workflow, logg)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc, orderRepo, cartRepo
}

func seedCart(cartRepo *stubCartRepo, userID uuid.UUID, vendorID uuid.UUID) *models.Cart {
	product := &models.Product{
		ID:              uuid.New(),
		VendorID:        vendorID,
		Name:            "Widget",
		Price:           decimal.NewFromInt(1000),
		DiscountedPrice: decimal.NewFromInt(1000),
	}
	c := &models.Cart{
		ID:          uuid.New(),
		UserID:      userID,
		NumOfItems:  2,
		TotalAmount: decimal.NewFromInt(2000),
		Items: []models.CartItem{
			{ID: uuid.New(), ProductID: product.ID, Quantity: 2, Product: product},
		},
	}
	cartRepo.carts[c.ID] = c
	return c
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	_, err := svc.PlaceOrder(context.Background(), uuid.New(), "1 Main St")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if typed.Message() != "cart is empty" {
		t.Fatalf("unexpected message: %s", typed.Message())
	}
}

func TestPlaceOrderRequiresAddress(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	_, err := svc.PlaceOrder(context.Background(), uuid.New(), "   ")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPlaceOrderSnapshotsCart(t *testing.T) {
	t.Parallel()

	svc, orderRepo, cartRepo := newTestService(t)
	userID := uuid.New()
	vendorID := uuid.New()
	c := seedCart(cartRepo, userID, vendorID)

	order, err := svc.PlaceOrder(context.Background(), userID, "1 Main St")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected total 2000, got %s", order.TotalAmount)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(order.Items))
	}
	item := order.Items[0]
	if !item.UnitPrice.Equal(decimal.NewFromInt(1000)) || item.Quantity != 2 {
		t.Fatalf("unexpected snapshot: %+v", item)
	}
	if item.VendorID != vendorID {
		t.Fatal("item must carry the vendor id")
	}
	if len(orderRepo.orders) != 1 {
		t.Fatalf("expected one stored order, got %d", len(orderRepo.orders))
	}

	// Cart is emptied inside the same flow.
	if len(c.Items) != 0 || c.NumOfItems != 0 || !c.TotalAmount.IsZero() {
		t.Fatalf("expected cart cleared, got %+v", c)
	}
}

func TestLatestOrder(t *testing.T) {
	t.Parallel()

	svc, _, cartRepo := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	_, err := svc.LatestOrder(ctx, userID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	seedCart(cartRepo, userID, uuid.New())
	placed, err := svc.PlaceOrder(ctx, userID, "1 Main St")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	latest, err := svc.LatestOrder(ctx, userID)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != placed.ID {
		t.Fatalf("expected latest order %s, got %s", placed.ID, latest.ID)
	}
}

func TestCancelOrder(t *testing.T) {
	t.Parallel()

	svc, orderRepo, cartRepo := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	seedCart(cartRepo, userID, uuid.New())
	order, err := svc.PlaceOrder(ctx, userID, "1 Main St")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	// Another user cannot cancel it.
	err = svc.CancelOrder(ctx, uuid.New(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if err := svc.CancelOrder(ctx, userID, order.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(orderRepo.orders) != 0 {
		t.Fatal("expected order deleted")
	}
}

func TestCancelNonPendingOrder(t *testing.T) {
	t.Parallel()

	svc, _, cartRepo := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	seedCart(cartRepo, userID, uuid.New())
	order, err := svc.PlaceOrder(ctx, userID, "1 Main St")
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := svc.Accept(ctx, order.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	err = svc.CancelOrder(ctx, userID, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAcceptAndRejectWorkflow(t *testing.T) {
	t.Parallel()

	svc, _, cartRepo := newTestService(t)
	userID := uuid.New()
	ctx := context.Background()

	seedCart(cartRepo, userID, uuid.New())
	order, err := svc.PlaceOrder(ctx, userID, "1 Main St")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	accepted, err := svc.Accept(ctx, order.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.Status != enums.OrderStatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}

	// Accepting again is a no-op.
	again, err := svc.Accept(ctx, order.ID)
	if err != nil {
		t.Fatalf("repeat accept: %v", err)
	}
	if again.Status != enums.OrderStatusAccepted {
		t.Fatalf("expected accepted, got %s", again.Status)
	}

	// Flipping an accepted order to rejected is refused.
	_, err = svc.Reject(ctx, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestDecideMissingOrder(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	_, err := svc.Accept(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListVendorOrdersSeesWholeOrder(t *testing.T) {
	t.Parallel()

	svc, orderRepo, _ := newTestService(t)
	ctx := context.Background()
	vendorA := uuid.New()
	vendorB := uuid.New()

	order := &models.Order{
		UserID:      uuid.New(),
		Status:      enums.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(300),
		Items: []models.OrderItem{
			{VendorID: vendorA, Name: "A", UnitPrice: decimal.NewFromInt(100), Quantity: 1},
			{VendorID: vendorB, Name: "B", UnitPrice: decimal.NewFromInt(200), Quantity: 1},
		},
	}
	if err := orderRepo.Create(ctx, order); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result, err := svc.ListVendorOrders(ctx, vendorA, nil, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected one order, got %d", len(result.Items))
	}
	// The whole order comes back, including the other vendor's line.
	if len(result.Items[0].Items) != 2 {
		t.Fatalf("expected both items visible, got %d", len(result.Items[0].Items))
	}

	none, err := svc.ListVendorOrders(ctx, uuid.New(), nil, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(none.Items) != 0 {
		t.Fatalf("expected no orders, got %d", len(none.Items))
	}
}

func TestRepeatedDecisionCountsOnce(t *testing.T) {
	t.Parallel()

	orderRepo := newStubOrderRepo()
	cartRepo := newStubCartRepo()
	reg := prometheus.NewRegistry()
	workflow := metrics.NewOrderWorkflow(reg)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(orderRepo, cartRepo, stubTx{}, workflow, logg)
	if err != nil {
		t.Fatalf("building service: %v", err)
	}

	ctx := context.Background()
	userID := uuid.New()
	seedCart(cartRepo, userID, uuid.New())
	order, err := svc.PlaceOrder(ctx, userID, "1 Main St")
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	if _, err := svc.Accept(ctx, order.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	// Retrying the same decision is a no-op and must not count again.
	if _, err := svc.Accept(ctx, order.ID); err != nil {
		t.Fatalf("repeat accept: %v", err)
	}

	if got := counterTotal(t, reg, "cartfold_orders_decisions_total"); got != 1 {
		t.Fatalf("expected one recorded decision, got %v", got)
	}
}

func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gathering metrics: %v", err)
	}
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}
