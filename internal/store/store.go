// Package store holds the application state container: the Cart Store and the
// Order Store behind a single dispatch entry point.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

var (
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("store closed")
	// ErrEmptyCart is returned by Checkout when the cart holds no items.
	ErrEmptyCart = errors.New("cart is empty")
)

// Transition describes one applied action.
type Transition struct {
	Seq    uint64
	Action entity.Action
	Cart   *entity.CartState
	Orders *entity.OrdersState
	// Version counts the changes applied to the action's stream, so it
	// matches the journal version of the action when it changed the state.
	Version int
	// Changed is false when the reducer returned the previous state.
	Changed   bool
	AppliedAt time.Time
}

// Hook observes transitions after they are applied.
type Hook interface {
	Name() string
	AfterDispatch(ctx context.Context, t Transition) error
}

// Store owns the cart and order states. States are replaced, never modified,
// so the pointers returned by Cart and Orders are safe to keep and share.
type Store struct {
	mu     sync.Mutex
	cart   *entity.CartState
	orders *entity.OrdersState
	seq    uint64
	closed bool
	// versions per stream, see Transition.Version
	cartVersion   int
	ordersVersion int

	now         func() time.Time
	ids         *entity.OrderIDGenerator
	logger      *slog.Logger
	hooks       []Hook
	hookTimeout time.Duration

	queue chan Transition
	done  chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithOrderIDs replaces the order id generator.
func WithOrderIDs(g *entity.OrderIDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithLogger sets the logger used by the hook worker.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithHooks appends hooks run after each transition, in order.
func WithHooks(hooks ...Hook) Option {
	return func(s *Store) { s.hooks = append(s.hooks, hooks...) }
}

// WithHookTimeout bounds each hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(s *Store) { s.hookTimeout = d }
}

// WithQueueSize bounds the number of transitions waiting for the hooks.
func WithQueueSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.queue = make(chan Transition, n)
		}
	}
}

// New creates a Store with empty states and starts its hook worker.
func New(opts ...Option) *Store {
	s := &Store{
		cart:        entity.NewCartState(),
		orders:      entity.NewOrdersState(),
		now:         time.Now,
		logger:      slog.Default(),
		hookTimeout: 10 * time.Second,
		queue:       make(chan Transition, 256),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = entity.NewOrderIDGenerator(nil)
	}
	go s.run()
	return s
}

// Cart returns the current cart state.
func (s *Store) Cart() *entity.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart
}

// Orders returns the current order log.
func (s *Store) Orders() *entity.OrdersState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders
}

// Dispatch applies one action. Actions are applied one at a time in the order
// Dispatch is called. Hooks run afterwards on a background worker and cannot
// fail or delay the transition.
func (s *Store) Dispatch(ctx context.Context, action entity.Action) (Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Transition{}, ErrClosed
	}
	return s.apply(ctx, action)
}

// apply runs the reducer for action. s.mu must be held.
func (s *Store) apply(ctx context.Context, action entity.Action) (Transition, error) {
	t := Transition{Action: action, Cart: s.cart, Orders: s.orders, AppliedAt: s.now()}
	switch a := action.(type) {
	case entity.CartAction:
		next, err := entity.ReduceCart(s.cart, a)
		if err != nil {
			return Transition{}, err
		}
		t.Changed = next != s.cart
		t.Cart = next
		if t.Changed {
			s.cartVersion++
		}
		t.Version = s.cartVersion
	case entity.OrderAction:
		next, err := entity.ReduceOrders(s.orders, a)
		if err != nil {
			return Transition{}, err
		}
		t.Changed = next != s.orders
		t.Orders = next
		if t.Changed {
			s.ordersVersion++
		}
		t.Version = s.ordersVersion
	default:
		return Transition{}, fmt.Errorf("%w: %T", entity.ErrUnknownAction, action)
	}

	s.seq++
	t.Seq = s.seq
	s.cart, s.orders = t.Cart, t.Orders

	if t.Changed && len(s.hooks) > 0 {
		select {
		case s.queue <- t:
		default:
			s.logger.ErrorContext(ctx, "Hook queue full, dropping transition", "seq", t.Seq, "action", action.ActionType())
		}
	}
	return t, nil
}

// Checkout places an order for the current cart and clears the cart as one
// step: no other action can land between the two.
func (s *Store) Checkout(ctx context.Context) (entity.OrderSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return entity.OrderSummary{}, ErrClosed
	}
	if s.cart.IsEmpty() {
		return entity.OrderSummary{}, ErrEmptyCart
	}

	now := s.now()
	placed, err := s.apply(ctx, entity.AddOrder{
		OrderPayload: entity.Summarize(s.cart),
		ID:           s.ids.NewID(now),
		PlacedAt:     now,
	})
	if err != nil {
		return entity.OrderSummary{}, err
	}
	order := placed.Orders.Orders[len(placed.Orders.Orders)-1]
	if _, err := s.apply(ctx, entity.ClearCart{}); err != nil {
		return order, fmt.Errorf("order %s placed but cart not cleared: %w", order.ID, err)
	}
	return order, nil
}

// AddToCart adds one unit of product to the cart.
func (s *Store) AddToCart(ctx context.Context, product entity.Product) (*entity.CartState, error) {
	t, err := s.Dispatch(ctx, entity.AddToCart{Product: product})
	return t.Cart, err
}

// RemoveFromCart drops an item. Unknown ids leave the cart unchanged.
func (s *Store) RemoveFromCart(ctx context.Context, id int) (*entity.CartState, error) {
	t, err := s.Dispatch(ctx, entity.RemoveFromCart{ID: id})
	return t.Cart, err
}

// UpdateCartItemQuantity sets the quantity of an item.
func (s *Store) UpdateCartItemQuantity(ctx context.Context, id, quantity int) (*entity.CartState, error) {
	t, err := s.Dispatch(ctx, entity.UpdateCartItemQuantity{ID: id, Quantity: quantity})
	return t.Cart, err
}

// ClearCart empties the cart.
func (s *Store) ClearCart(ctx context.Context) (*entity.CartState, error) {
	t, err := s.Dispatch(ctx, entity.ClearCart{})
	return t.Cart, err
}

// AddOrder records an order for the payload, stamping its id and placement time.
func (s *Store) AddOrder(ctx context.Context, payload entity.OrderPayload) (entity.OrderSummary, error) {
	now := s.now()
	t, err := s.Dispatch(ctx, entity.AddOrder{
		OrderPayload: payload,
		ID:           s.ids.NewID(now),
		PlacedAt:     now,
	})
	if err != nil {
		return entity.OrderSummary{}, err
	}
	return t.Orders.Orders[len(t.Orders.Orders)-1], nil
}

// ClearOrders empties the order log.
func (s *Store) ClearOrders(ctx context.Context) (*entity.OrdersState, error) {
	t, err := s.Dispatch(ctx, entity.ClearOrders{})
	return t.Orders, err
}

func (s *Store) run() {
	defer close(s.done)
	for t := range s.queue {
		for _, h := range s.hooks {
			ctx, cancel := context.WithTimeout(context.Background(), s.hookTimeout)
			if err := h.AfterDispatch(ctx, t); err != nil {
				s.logger.Error("Hook failed", "hook", h.Name(), "seq", t.Seq, "action", t.Action.ActionType(), "err", err)
			}
			cancel()
		}
	}
}

// Close stops accepting actions and waits for pending hooks or ctx.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
