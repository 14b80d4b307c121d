package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/catalog"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository/memory"
)

func TestOrderService_Checkout(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	carts := NewCartService(st, catalog.NewStatic(testProducts))
	orders := NewOrderService(st, nil)

	for _, id := range []int{4, 9, 9} {
		_, err := carts.AddProduct(ctx, id)
		require.NoError(t, err)
	}

	order, err := orders.Checkout(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, order.NumberOfItems)
	assert.Equal(t, 3, order.TotalQuantity)
	assert.Equal(t, 884.98, order.TotalAmount)
	assert.Equal(t, entity.OrderStatusOrdered, order.Status)
	assert.True(t, st.Cart().IsEmpty())
	assert.Equal(t, []entity.OrderSummary{order}, orders.GetOrders(ctx))
}

func TestOrderService_CheckoutEmptyCart(t *testing.T) {
	ctx := context.Background()
	orders := NewOrderService(newStore(t), nil)

	_, err := orders.Checkout(ctx)

	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, orders.GetOrders(ctx))
}

func TestOrderService_GetOrder(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	orders := NewOrderService(st, nil)
	placed, err := st.AddOrder(ctx, entity.OrderPayload{NumberOfItems: 3, TotalQuantity: 5, TotalAmount: 500})
	require.NoError(t, err)

	detail, err := orders.GetOrder(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, placed, detail.OrderSummary)
	assert.Equal(t, 0, detail.CurrentStep)
	assert.Len(t, detail.Steps, 5)

	_, err = orders.GetOrder(ctx, "ORD-1-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderService_ClearOrders(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	orders := NewOrderService(st, nil)
	_, err := st.AddOrder(ctx, entity.OrderPayload{NumberOfItems: 1, TotalQuantity: 1, TotalAmount: 1})
	require.NoError(t, err)

	require.NoError(t, orders.ClearOrders(ctx))
	assert.Empty(t, orders.GetOrders(ctx))
}

func TestOrderService_HandleOrderPlaced(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	orders := NewOrderService(newStore(t), repo)

	first := entity.OrderSummary{ID: "ORD-1755764583000-1", NumberOfItems: 1, TotalQuantity: 1, TotalAmount: 10, Status: entity.OrderStatusOrdered, PlacedAt: "2025-08-21T08:23:03.000Z"}
	second := entity.OrderSummary{ID: "ORD-1755764584000-2", NumberOfItems: 2, TotalQuantity: 4, TotalAmount: 40, Status: entity.OrderStatusOrdered, PlacedAt: "2025-08-21T08:23:04.000Z"}
	for _, o := range []entity.OrderSummary{first, second} {
		payload, err := json.Marshal(o)
		require.NoError(t, err)
		require.NoError(t, orders.HandleOrderPlaced(ctx, payload))
	}

	recent, err := orders.GetRecentOrders(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []entity.OrderSummary{second, first}, recent)

	assert.Error(t, orders.HandleOrderPlaced(ctx, []byte("{broken")))
	assert.Error(t, orders.HandleOrderPlaced(ctx, []byte(`{"totalAmount":1}`)))
}

func TestOrderService_ProjectionDisabled(t *testing.T) {
	ctx := context.Background()
	orders := NewOrderService(newStore(t), nil)

	_, err := orders.GetRecentOrders(ctx, 10)
	assert.ErrorIs(t, err, ErrProjectionDisabled)
	assert.ErrorIs(t, orders.HandleOrderPlaced(ctx, []byte(`{"id":"ORD-1755764583000-1"}`)), ErrProjectionDisabled)
	assert.Equal(t, entity.OrderSteps(), orders.StatusSteps())
}
