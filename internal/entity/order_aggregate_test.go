package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceOrders_AddOrder(t *testing.T) {
	before := time.Now().Truncate(time.Millisecond)
	gen := NewOrderIDGenerator(nil)
	now := time.Now()
	action := AddOrder{
		OrderPayload: OrderPayload{NumberOfItems: 3, TotalQuantity: 5, TotalAmount: 500},
		ID:           gen.NewID(now),
		PlacedAt:     now,
	}

	next, err := ReduceOrders(NewOrdersState(), action)
	after := time.Now()
	require.NoError(t, err)

	require.Len(t, next.Orders, 1)
	o := next.Orders[0]
	assert.Equal(t, 3, o.NumberOfItems)
	assert.Equal(t, 5, o.TotalQuantity)
	assert.Equal(t, 500.0, o.TotalAmount)
	assert.Equal(t, OrderStatusOrdered, o.Status)
	assert.Regexp(t, `^ORD-\d{13,}-\d{1,4}$`, o.ID)

	placed, err := o.PlacedTime()
	require.NoError(t, err)
	assert.False(t, placed.Before(before), "placedAt %s before %s", placed, before)
	assert.False(t, placed.After(after), "placedAt %s after %s", placed, after)
}

func TestReduceOrders_AppendsInOrder(t *testing.T) {
	existing := OrderSummary{
		ID:            "ORD-123-456",
		NumberOfItems: 1,
		TotalQuantity: 1,
		TotalAmount:   100,
		Status:        OrderStatusOrdered,
		PlacedAt:      "2023-01-01T00:00:00.000Z",
	}
	state := &OrdersState{Orders: []OrderSummary{existing}}

	next, err := ReduceOrders(state, AddOrder{ID: "ORD-1755764583000-7", PlacedAt: time.Now()})
	require.NoError(t, err)

	require.Len(t, next.Orders, 2)
	assert.Equal(t, existing, next.Orders[0])
	assert.Equal(t, "ORD-1755764583000-7", next.Orders[1].ID)
	assert.Len(t, state.Orders, 1)
}

func TestReduceOrders_ZeroPayload(t *testing.T) {
	next, err := ReduceOrders(nil, AddOrder{ID: "ORD-1755764583000-1", PlacedAt: time.Now()})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Equal(t, 0, next.Orders[0].NumberOfItems)
	assert.Equal(t, 0.0, next.Orders[0].TotalAmount)
	assert.Equal(t, OrderStatusOrdered, next.Orders[0].Status)
}

func TestReduceOrders_Clear(t *testing.T) {
	state := &OrdersState{Orders: []OrderSummary{{ID: "ORD-1-1"}}}

	cleared, err := ReduceOrders(state, ClearOrders{})
	require.NoError(t, err)
	assert.Empty(t, cleared.Orders)
	assert.NotNil(t, cleared.Orders)

	again, err := ReduceOrders(cleared, ClearOrders{})
	require.NoError(t, err)
	assert.Same(t, cleared, again)
}

func TestReduceOrders_UnknownAction(t *testing.T) {
	_, err := ReduceOrders(nil, nil)
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestFormatPlacedAt(t *testing.T) {
	ts := time.Date(2025, 8, 21, 10, 23, 3, 123456789, time.FixedZone("CEST", 2*3600))
	assert.Equal(t, "2025-08-21T08:23:03.123Z", FormatPlacedAt(ts))
}

func TestReplayOrders(t *testing.T) {
	placed := time.Date(2025, 1, 2, 3, 4, 5, 6000000, time.UTC)
	actions := []OrderAction{
		AddOrder{OrderPayload: OrderPayload{NumberOfItems: 1, TotalQuantity: 2, TotalAmount: 30.5}, ID: "ORD-1735787045006-12", PlacedAt: placed},
		ClearOrders{},
		AddOrder{OrderPayload: OrderPayload{NumberOfItems: 2, TotalQuantity: 2, TotalAmount: 10}, ID: "ORD-1735787045007-99", PlacedAt: placed.Add(time.Millisecond)},
	}

	records := make([]ActionRecord, 0, len(actions))
	for i, a := range actions {
		payload, err := json.Marshal(a)
		require.NoError(t, err)
		records = append(records, ActionRecord{StreamID: OrdersStream, Version: i + 1, ActionType: a.ActionType(), Payload: payload})
	}

	got, err := ReplayOrders(records)
	require.NoError(t, err)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, OrderSummary{
		ID:            "ORD-1735787045007-99",
		NumberOfItems: 2,
		TotalQuantity: 2,
		TotalAmount:   10,
		Status:        OrderStatusOrdered,
		PlacedAt:      "2025-01-02T03:04:05.007Z",
	}, got.Orders[0])
}

func TestOrderStatus_Step(t *testing.T) {
	assert.Equal(t, 0, OrderStatusOrdered.Step())
	assert.Equal(t, 3, OrderStatusOutForDelivery.Step())
	assert.Equal(t, 4, OrderStatusDelivered.Step())
	assert.Equal(t, -1, OrderStatus("Lost").Step())
}
