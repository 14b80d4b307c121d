package entity

import (
	"fmt"
	"time"
)

// placedAtLayout matches the ISO-8601 form browsers produce with toISOString.
const placedAtLayout = "2006-01-02T15:04:05.000Z"

// FormatPlacedAt renders an order timestamp in UTC with millisecond precision.
func FormatPlacedAt(t time.Time) string {
	return t.UTC().Format(placedAtLayout)
}

// ReduceOrders applies an order action and returns the next state.
// Like ReduceCart it never modifies the given state.
func ReduceOrders(state *OrdersState, action OrderAction) (*OrdersState, error) {
	if state == nil {
		state = NewOrdersState()
	}

	switch a := action.(type) {
	case AddOrder:
		orders := make([]OrderSummary, len(state.Orders), len(state.Orders)+1)
		copy(orders, state.Orders)
		orders = append(orders, OrderSummary{
			ID:            a.ID,
			NumberOfItems: a.NumberOfItems,
			TotalQuantity: a.TotalQuantity,
			TotalAmount:   a.TotalAmount,
			Status:        OrderStatusOrdered,
			PlacedAt:      FormatPlacedAt(a.PlacedAt),
		})
		return &OrdersState{Orders: orders}, nil
	case ClearOrders:
		if len(state.Orders) == 0 {
			return state, nil
		}
		return NewOrdersState(), nil
	default:
		return state, fmt.Errorf("%w for orders: %T", ErrUnknownAction, action)
	}
}

// ReplayOrders rebuilds the order log by replaying journal records.
func ReplayOrders(records []ActionRecord) (*OrdersState, error) {
	return ApplyOrderRecords(NewOrdersState(), records)
}

// ApplyOrderRecords replays journal records on top of state.
func ApplyOrderRecords(state *OrdersState, records []ActionRecord) (*OrdersState, error) {
	for _, rec := range records {
		a, err := DecodeAction(rec.ActionType, rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode order action %d: %w", rec.Version, err)
		}
		oa, ok := a.(OrderAction)
		if !ok {
			return nil, fmt.Errorf("%w in orders stream: %s", ErrUnknownAction, rec.ActionType)
		}
		if state, err = ReduceOrders(state, oa); err != nil {
			return nil, fmt.Errorf("failed to apply order action from stream: %w", err)
		}
	}
	return state, nil
}
