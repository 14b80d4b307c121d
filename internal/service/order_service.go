package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/store"
)

// ErrProjectionDisabled is returned by GetRecentOrders without an order repository.
var ErrProjectionDisabled = errors.New("order projection not configured")

// OrderDetail is one order with its tracking steps.
type OrderDetail struct {
	entity.OrderSummary
	Steps       []entity.OrderStatus `json:"steps"`
	CurrentStep int                  `json:"currentStep"`
}

// OrderService orchestrates checkout and the Order Store.
type OrderService struct {
	store     *store.Store
	orderRepo repository.OrderRepository // read model fed from the broker, may be nil
}

func NewOrderService(st *store.Store, orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{
		store:     st,
		orderRepo: orderRepo,
	}
}

// Checkout places an order for the current cart and then clears the cart.
func (s *OrderService) Checkout(ctx context.Context) (entity.OrderSummary, error) {
	order, err := s.store.Checkout(ctx)
	if err != nil {
		return order, fmt.Errorf("checkout failed: %w", err)
	}
	slog.Info("Service: Placed order", "order_id", order.ID, "items", order.NumberOfItems, "total", order.TotalAmount)
	return order, nil
}

// GetOrders returns the order log, oldest first.
func (s *OrderService) GetOrders(_ context.Context) []entity.OrderSummary {
	return s.store.Orders().Orders
}

// GetOrder returns one order with its tracking steps.
func (s *OrderService) GetOrder(_ context.Context, id string) (OrderDetail, error) {
	order, ok := s.store.Orders().Order(id)
	if !ok {
		return OrderDetail{}, fmt.Errorf("order %s: %w", id, repository.ErrNotFound)
	}
	return OrderDetail{
		OrderSummary: order,
		Steps:        s.StatusSteps(),
		CurrentStep:  order.Status.Step(),
	}, nil
}

// ClearOrders empties the order log.
func (s *OrderService) ClearOrders(ctx context.Context) error {
	if _, err := s.store.ClearOrders(ctx); err != nil {
		return fmt.Errorf("failed to clear orders: %w", err)
	}
	return nil
}

// StatusSteps lists the tracking steps shown for an order.
func (s *OrderService) StatusSteps() []entity.OrderStatus {
	return entity.OrderSteps()
}

// HandleOrderPlaced is triggered by the message broker when an order is placed.
func (s *OrderService) HandleOrderPlaced(ctx context.Context, payload []byte) error {
	var order entity.OrderSummary
	if err := json.Unmarshal(payload, &order); err != nil {
		return fmt.Errorf("failed to decode placed order: %w", err)
	}
	if order.ID == "" {
		return errors.New("placed order without id")
	}
	if s.orderRepo == nil {
		return ErrProjectionDisabled
	}

	slog.Info("Projection: Updating order", "order_id", order.ID)
	if err := s.orderRepo.UpdateOrderProjection(ctx, order); err != nil {
		return fmt.Errorf("failed to update projection for %s: %w", order.ID, err)
	}
	return nil
}

// GetRecentOrders returns the latest orders from the projection.
func (s *OrderService) GetRecentOrders(ctx context.Context, limit int) ([]entity.OrderSummary, error) {
	if s.orderRepo == nil {
		return nil, ErrProjectionDisabled
	}
	if limit <= 0 {
		limit = 50
	}
	return s.orderRepo.FindRecent(ctx, limit)
}
