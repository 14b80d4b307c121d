package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type orderRepository struct {
	mu     sync.RWMutex
	orders []entity.OrderSummary
}

// NewOrderRepository creates an in-memory order projection.
func NewOrderRepository() repository.OrderRepository {
	return &orderRepository{}
}

func (r *orderRepository) UpdateOrderProjection(_ context.Context, order entity.OrderSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == order.ID {
			r.orders[i] = order
			return nil
		}
	}
	r.orders = append(r.orders, order)
	return nil
}

// FindRecent returns the newest orders first.
func (r *orderRepository) FindRecent(_ context.Context, limit int) ([]entity.OrderSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recent := slices.Clone(r.orders)
	slices.Reverse(recent)
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}
