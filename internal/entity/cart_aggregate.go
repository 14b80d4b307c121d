package entity

import (
	"errors"
	"fmt"
)

// ReduceCart applies a cart action and returns the next state.
//
// The given state is never modified. When the action changes nothing the same
// pointer is returned, otherwise a freshly allocated state. A nil state is the
// empty cart.
func ReduceCart(state *CartState, action CartAction) (*CartState, error) {
	if state == nil {
		state = NewCartState()
	}

	switch a := action.(type) {
	case AddToCart:
		next := state.clone(1)
		if i := state.indexOf(a.Product.ID); i >= 0 {
			next.Items[i].CartQuantity++
		} else {
			next.Items = append(next.Items, CartItem{Product: a.Product, CartQuantity: 1})
		}
		next.NumberOfItems++
		return next, nil
	case RemoveFromCart:
		i := state.indexOf(a.ID)
		if i < 0 {
			return state, nil
		}
		return state.without(i), nil
	case UpdateCartItemQuantity:
		i := state.indexOf(a.ID)
		if i < 0 {
			return state, nil
		}
		quantity := max(a.Quantity, 0)
		prev := state.Items[i].CartQuantity
		if quantity == prev {
			return state, nil
		}
		if quantity == 0 {
			return state.without(i), nil
		}
		next := state.clone(0)
		next.Items[i].CartQuantity = quantity
		next.NumberOfItems += quantity - prev
		return next, nil
	case ClearCart:
		if state.Items != nil && state.IsEmpty() && state.NumberOfItems == 0 {
			return state, nil
		}
		return NewCartState(), nil
	default:
		return state, fmt.Errorf("%w for cart: %T", ErrUnknownAction, action)
	}
}

// clone copies the item slice with room for extra more items.
func (s *CartState) clone(extra int) *CartState {
	items := make([]CartItem, len(s.Items), len(s.Items)+extra)
	copy(items, s.Items)
	return &CartState{Items: items, NumberOfItems: s.NumberOfItems}
}

func (s *CartState) without(i int) *CartState {
	items := make([]CartItem, 0, len(s.Items)-1)
	items = append(items, s.Items[:i]...)
	items = append(items, s.Items[i+1:]...)
	return &CartState{
		Items:         items,
		NumberOfItems: max(s.NumberOfItems-s.Items[i].CartQuantity, 0),
	}
}

// Validate checks the invariants of a state loaded from outside the reducer.
func (s *CartState) Validate() error {
	seen := make(map[int]struct{}, len(s.Items))
	var errs []error
	for _, item := range s.Items {
		if _, dup := seen[item.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate item %d", item.ID))
		}
		seen[item.ID] = struct{}{}
		if item.CartQuantity < 1 {
			errs = append(errs, fmt.Errorf("item %d has quantity %d", item.ID, item.CartQuantity))
		}
	}
	if total := s.TotalQuantity(); total != s.NumberOfItems {
		errs = append(errs, fmt.Errorf("numberOfItems is %d, items sum to %d", s.NumberOfItems, total))
	}
	return errors.Join(errs...)
}

// ReplayCart rebuilds the cart by replaying journal records.
func ReplayCart(records []ActionRecord) (*CartState, error) {
	return ApplyCartRecords(NewCartState(), records)
}

// ApplyCartRecords replays journal records on top of state.
func ApplyCartRecords(state *CartState, records []ActionRecord) (*CartState, error) {
	for _, rec := range records {
		a, err := DecodeAction(rec.ActionType, rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cart action %d: %w", rec.Version, err)
		}
		ca, ok := a.(CartAction)
		if !ok {
			return nil, fmt.Errorf("%w in cart stream: %s", ErrUnknownAction, rec.ActionType)
		}
		if state, err = ReduceCart(state, ca); err != nil {
			return nil, fmt.Errorf("failed to apply cart action from stream: %w", err)
		}
	}
	return state, nil
}
