package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates an OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) UpdateOrderProjection(ctx context.Context, o entity.OrderSummary) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, number_of_items, total_quantity, total_amount, status, placed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		o.ID, o.NumberOfItems, o.TotalQuantity, o.TotalAmount, string(o.Status), o.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", o.ID, err)
	}
	return nil
}

func (r *orderRepository) FindRecent(ctx context.Context, limit int) ([]entity.OrderSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, number_of_items, total_quantity, total_amount, status, placed_at FROM orders ORDER BY placed_at DESC LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.OrderSummary
	for rows.Next() {
		var o entity.OrderSummary
		var status string
		if err := rows.Scan(&o.ID, &o.NumberOfItems, &o.TotalQuantity, &o.TotalAmount, &status, &o.PlacedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = entity.OrderStatus(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
