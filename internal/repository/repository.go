package repository

import (
	"context"
	"errors"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

var (
	// ErrNotFound is returned when a persisted key or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConcurrency is returned when a journal append races another writer.
	ErrConcurrency = errors.New("concurrency conflict")
	// ErrProductNotFound is the catalog's not-found signal.
	ErrProductNotFound = errors.New("product not found")
)

// AnyVersion skips the optimistic version check on append.
const AnyVersion = -1

// ProductCatalog is the product data source.
type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]entity.Product, error)
	GetProduct(ctx context.Context, id int) (entity.Product, error)
}

// StateRepository persists store snapshots under the keys "cart" and "ordersDetails".
type StateRepository interface {
	Save(ctx context.Context, key string, payload []byte) error
	// Load returns ErrNotFound when nothing was saved under key.
	Load(ctx context.Context, key string) ([]byte, error)
}

// EventStore handles appending and loading actions for a store stream.
type EventStore interface {
	SaveEvents(ctx context.Context, streamID string, expectedVersion int, actions []entity.Action) error
	LoadEvents(ctx context.Context, streamID string) ([]entity.ActionRecord, error)
}

// OrderRepository is the read model of placed orders fed from the broker.
type OrderRepository interface {
	UpdateOrderProjection(ctx context.Context, order entity.OrderSummary) error
	FindRecent(ctx context.Context, limit int) ([]entity.OrderSummary, error)
}
