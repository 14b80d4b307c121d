package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/messaging"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

// snapshotVersionField is added to each snapshot next to the state fields.
const snapshotVersionField = "version"

// Rehydrate replaces both states with what was persisted. For each store the
// latest snapshot is restored and the journal records newer than the
// snapshot's version are replayed on top of it. Without a snapshot the whole
// journal is replayed; without either the state is empty. A snapshot that
// cannot be decoded or breaks the cart invariants is discarded with a
// warning. journal may be nil.
func (s *Store) Rehydrate(ctx context.Context, repo repository.StateRepository, journal repository.EventStore) error {
	cart, cartVersion, err := rehydrate(ctx, s, repo, journal, entity.CartStream, entity.NewCartState,
		(*entity.CartState).Validate, entity.ApplyCartRecords)
	if err != nil {
		return err
	}
	orders, ordersVersion, err := rehydrate(ctx, s, repo, journal, entity.OrdersStream, entity.NewOrdersState,
		func(o *entity.OrdersState) error { return nil }, entity.ApplyOrderRecords)
	if err != nil {
		return err
	}
	if cart.Items == nil {
		cart.Items = []entity.CartItem{}
	}
	if orders.Orders == nil {
		orders.Orders = []entity.OrderSummary{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart, s.orders = cart, orders
	s.cartVersion, s.ordersVersion = cartVersion, ordersVersion
	s.logger.InfoContext(ctx, "Store rehydrated",
		"cart_items", len(cart.Items), "cart_version", cartVersion,
		"orders", len(orders.Orders), "orders_version", ordersVersion)
	return nil
}

func rehydrate[T any](
	ctx context.Context,
	s *Store,
	repo repository.StateRepository,
	journal repository.EventStore,
	key string,
	empty func() *T,
	validate func(*T) error,
	apply func(*T, []entity.ActionRecord) (*T, error),
) (*T, int, error) {
	var records []entity.ActionRecord
	if journal != nil {
		var err error
		if records, err = journal.LoadEvents(ctx, key); err != nil {
			return nil, 0, fmt.Errorf("failed to load %s journal: %w", key, err)
		}
	}
	head := 0
	if len(records) > 0 {
		head = records[len(records)-1].Version
	}

	state, version, found, err := loadSnapshot(ctx, s, repo, key, validate)
	if err != nil {
		return nil, 0, err
	}
	switch {
	case !found:
		state, version = empty(), 0
	case version < 0:
		// snapshot without a version, the journal cannot be lined up with it
		if head > 0 {
			s.logger.WarnContext(ctx, "Snapshot has no version, ignoring journal", "key", key, "journal_version", head)
		}
		return state, head, nil
	}

	var newer []entity.ActionRecord
	for _, rec := range records {
		if rec.Version > version {
			newer = append(newer, rec)
		}
	}
	if len(newer) == 0 {
		if journal != nil && head < version {
			s.logger.WarnContext(ctx, "Journal is behind the snapshot, appends will be rejected", "key", key, "snapshot_version", version, "journal_version", head)
		}
		return state, max(version, head), nil
	}
	if newer[0].Version != version+1 {
		s.logger.WarnContext(ctx, "Journal has a gap after the snapshot", "key", key, "snapshot_version", version, "next_record", newer[0].Version)
	}
	state, err = apply(state, newer)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to replay %s journal: %w", key, err)
	}
	return state, head, nil
}

// loadSnapshot returns the snapshot under key and its version, -1 when the
// snapshot carries none. found is false when there is no usable snapshot.
func loadSnapshot[T any](ctx context.Context, s *Store, repo repository.StateRepository, key string, validate func(*T) error) (*T, int, bool, error) {
	if repo == nil {
		return nil, 0, false, nil
	}
	payload, err := repo.Load(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to load %s snapshot: %w", key, err)
	}

	state := new(T)
	var meta struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(payload, state); err != nil {
		s.logger.WarnContext(ctx, "Discarding unreadable snapshot", "key", key, "err", err)
		return nil, 0, false, nil
	}
	if err := json.Unmarshal(payload, &meta); err != nil {
		s.logger.WarnContext(ctx, "Discarding unreadable snapshot", "key", key, "err", err)
		return nil, 0, false, nil
	}
	if err := validate(state); err != nil {
		s.logger.WarnContext(ctx, "Discarding invalid snapshot", "key", key, "err", err)
		return nil, 0, false, nil
	}
	if meta.Version == nil {
		return state, -1, true, nil
	}
	return state, *meta.Version, true, nil
}

// SnapshotHook saves the changed store under its persistence key, together
// with the stream version it reflects.
type SnapshotHook struct {
	Repo repository.StateRepository
}

func (SnapshotHook) Name() string { return "snapshot" }

func (h SnapshotHook) AfterDispatch(ctx context.Context, t Transition) error {
	key := t.Action.Stream()
	var state any = t.Cart
	if key == entity.OrdersStream {
		state = t.Orders
	}

	payload, err := marshalSnapshot(state, t.Version)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return h.Repo.Save(ctx, key, payload)
}

func marshalSnapshot(state any, version int) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields[snapshotVersionField], err = json.Marshal(version); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// JournalHook appends every applied action to the journal at the stream
// version of its transition. An append that would not land on that version
// fails with repository.ErrConcurrency.
type JournalHook struct {
	Events repository.EventStore
}

func (JournalHook) Name() string { return "journal" }

func (h JournalHook) AfterDispatch(ctx context.Context, t Transition) error {
	return h.Events.SaveEvents(ctx, t.Action.Stream(), t.Version-1, []entity.Action{t.Action})
}

// PublishHook publishes applied actions, and placed orders, to the broker.
type PublishHook struct {
	Publisher messaging.Publisher
}

func (PublishHook) Name() string { return "publish" }

func (h PublishHook) AfterDispatch(ctx context.Context, t Transition) error {
	stream := t.Action.Stream()
	topic := messaging.TopicCart
	if stream == entity.OrdersStream {
		topic = messaging.TopicOrders
	}

	event := messaging.ActionApplied{
		Seq:        t.Seq,
		Stream:     stream,
		ActionType: t.Action.ActionType(),
		Action:     t.Action,
		AppliedAt:  t.AppliedAt,
	}
	if err := h.Publisher.PublishEvent(ctx, topic, stream, event); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.ActionType, err)
	}

	if a, ok := t.Action.(entity.AddOrder); ok {
		order, found := t.Orders.Order(a.ID)
		if !found {
			return fmt.Errorf("placed order %s missing from state", a.ID)
		}
		if err := h.Publisher.PublishEvent(ctx, messaging.TopicOrdersPlaced, order.ID, order); err != nil {
			return fmt.Errorf("failed to publish placed order %s: %w", order.ID, err)
		}
	}
	return nil
}
