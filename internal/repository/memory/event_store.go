package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/google/uuid"
)

type eventStore struct {
	mu      sync.RWMutex
	streams map[string][]entity.ActionRecord
}

// NewEventStore creates an in-memory EventStore.
func NewEventStore() repository.EventStore {
	return &eventStore{streams: make(map[string][]entity.ActionRecord)}
}

func (s *eventStore) SaveEvents(_ context.Context, streamID string, expectedVersion int, actions []entity.Action) error {
	if len(actions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	version := len(stream)
	if expectedVersion != repository.AnyVersion && expectedVersion != version {
		return fmt.Errorf("%w: expected version %d, got %d", repository.ErrConcurrency, expectedVersion, version)
	}

	now := time.Now()
	for _, a := range actions {
		payload, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal action %s: %w", a.ActionType(), err)
		}
		version++
		stream = append(stream, entity.ActionRecord{
			ID:         uuid.NewString(),
			StreamID:   streamID,
			Version:    version,
			ActionType: a.ActionType(),
			Payload:    payload,
			CreatedAt:  now,
		})
	}
	s.streams[streamID] = stream
	return nil
}

func (s *eventStore) LoadEvents(_ context.Context, streamID string) ([]entity.ActionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.streams[streamID]), nil
}
