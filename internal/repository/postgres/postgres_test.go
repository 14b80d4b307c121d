package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requirePostgres connects to TEST_DATABASE_URL and skips the test when it is unset.
func requirePostgres(t *testing.T) *sql.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping Postgres test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := InitDB(ctx, dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("TRUNCATE app_state, action_journal, products, orders")
		db.Close()
	})
	_, err = db.Exec("TRUNCATE app_state, action_journal, products, orders")
	require.NoError(t, err)
	return db
}

func TestStateRepository(t *testing.T) {
	db := requirePostgres(t)
	ctx := context.Background()
	repo := NewStateRepository(db)

	_, err := repo.Load(ctx, entity.CartStream)
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Save(ctx, entity.CartStream, []byte(`{"items":[],"numberOfItems":0}`)))
	require.NoError(t, repo.Save(ctx, entity.CartStream, []byte(`{"items":[],"numberOfItems":1}`)))

	got, err := repo.Load(ctx, entity.CartStream)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"numberOfItems":1}`, string(got))
}

func TestEventStore(t *testing.T) {
	db := requirePostgres(t)
	ctx := context.Background()
	store := NewEventStore(db)

	require.NoError(t, store.SaveEvents(ctx, entity.CartStream, 0, []entity.Action{
		entity.AddToCart{Product: entity.Product{ID: 1, Title: "Shirt", Price: 10}},
		entity.UpdateCartItemQuantity{ID: 1, Quantity: 4},
	}))
	err := store.SaveEvents(ctx, entity.CartStream, 0, []entity.Action{entity.ClearCart{}})
	require.ErrorIs(t, err, repository.ErrConcurrency)

	records, err := store.LoadEvents(ctx, entity.CartStream)
	require.NoError(t, err)
	require.Len(t, records, 2)

	cart, err := entity.ReplayCart(records)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.NumberOfItems)
}

func TestProductRepository(t *testing.T) {
	db := requirePostgres(t)
	ctx := context.Background()
	repo := NewProductRepository(db)
	ts := time.Date(2025, 8, 21, 8, 23, 3, 0, time.UTC)

	seed := []entity.Product{{
		ID: 4, Title: "Handmade Fresh Table", Slug: "handmade-fresh-table", Price: 687,
		Category:  entity.Category{ID: 5, Name: "Others", Slug: "others", CreatedAt: ts, UpdatedAt: ts},
		Images:    []string{"https://placehold.co/600x400"},
		CreatedAt: ts, UpdatedAt: ts,
	}}
	require.NoError(t, repo.Seed(ctx, seed))
	require.NoError(t, repo.Seed(ctx, seed))

	all, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	p, err := repo.GetProduct(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Others", p.Category.Name)
	assert.Equal(t, seed[0].Images, p.Images)

	_, err = repo.GetProduct(ctx, 999)
	require.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestOrderRepository(t *testing.T) {
	db := requirePostgres(t)
	ctx := context.Background()
	repo := NewOrderRepository(db)

	older := entity.OrderSummary{ID: "ORD-1735787045006-1", Status: entity.OrderStatusOrdered, PlacedAt: "2025-01-02T03:04:05.006Z"}
	newer := entity.OrderSummary{ID: "ORD-1735787046006-2", Status: entity.OrderStatusOrdered, PlacedAt: "2025-01-02T03:04:06.006Z", TotalAmount: 12.5}
	require.NoError(t, repo.UpdateOrderProjection(ctx, older))
	require.NoError(t, repo.UpdateOrderProjection(ctx, newer))

	recent, err := repo.FindRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newer, recent[0])
}
