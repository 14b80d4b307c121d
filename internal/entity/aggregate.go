package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Stream names double as the persistence keys of the two stores.
const (
	CartStream   = "cart"
	OrdersStream = "ordersDetails"
)

// ErrUnknownAction is returned by the reducers for an action outside their variant set.
var ErrUnknownAction = errors.New("unknown action")

// ActionRecord represents an action stored in the journal.
type ActionRecord struct {
	ID         string    `json:"id"`
	StreamID   string    `json:"stream_id"`
	Version    int       `json:"version"`
	ActionType string    `json:"action_type"`
	Payload    []byte    `json:"payload"`
	CreatedAt  time.Time `json:"created_at"`
}

// Action is a tagged request to mutate one of the stores.
type Action interface {
	ActionType() string
	// Stream names the store the action belongs to.
	Stream() string
}

// CartAction is the closed set of Cart Store actions.
type CartAction interface {
	Action
	cartAction()
}

// OrderAction is the closed set of Order Store actions.
type OrderAction interface {
	Action
	orderAction()
}

// DecodeAction rebuilds an action from its journal representation.
func DecodeAction(actionType string, payload []byte) (Action, error) {
	var (
		a   Action
		err error
	)
	switch actionType {
	case AddToCart{}.ActionType():
		var e AddToCart
		err = json.Unmarshal(payload, &e)
		a = e
	case RemoveFromCart{}.ActionType():
		var e RemoveFromCart
		err = json.Unmarshal(payload, &e)
		a = e
	case UpdateCartItemQuantity{}.ActionType():
		var e UpdateCartItemQuantity
		err = json.Unmarshal(payload, &e)
		a = e
	case ClearCart{}.ActionType():
		a = ClearCart{}
	case AddOrder{}.ActionType():
		var e AddOrder
		err = json.Unmarshal(payload, &e)
		a = e
	case ClearOrders{}.ActionType():
		a = ClearOrders{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, actionType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", actionType, err)
	}
	return a, nil
}
