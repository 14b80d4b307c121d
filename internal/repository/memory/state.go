// Package memory holds in-process repositories for tests and single-node runs.
package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
)

type stateRepository struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStateRepository creates an in-memory StateRepository.
func NewStateRepository() repository.StateRepository {
	return &stateRepository{data: make(map[string][]byte)}
}

func (r *stateRepository) Save(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = bytes.Clone(payload)
	return nil
}

func (r *stateRepository) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payload, ok := r.data[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return bytes.Clone(payload), nil
}
