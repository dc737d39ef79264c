package token

import (
	"fmt"
	"sync"

	"github.com/banklink/go-bank-link/aggregator"
	apperrors "github.com/banklink/go-bank-link/internal/errors"
)

// InMemoryStore is an in-memory implementation of Store. Token pairs
// live for the process lifetime; nothing is persisted across restarts.
type InMemoryStore struct {
	mu    sync.RWMutex
	pairs map[string]aggregator.TokenPair
}

// NewInMemoryStore creates a new in-memory token store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		pairs: make(map[string]aggregator.TokenPair),
	}
}

// Upsert creates or updates the token pair for a session
func (s *InMemoryStore) Upsert(sessionID string, pair aggregator.TokenPair) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pairs[sessionID] = pair
	return nil
}

// Get retrieves the token pair held for a session
func (s *InMemoryStore) Get(sessionID string) (aggregator.TokenPair, error) {
	if sessionID == "" {
		return aggregator.TokenPair{}, fmt.Errorf("sessionID is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pair, ok := s.pairs[sessionID]
	if !ok {
		return aggregator.TokenPair{}, apperrors.ErrNotFound
	}

	return pair, nil
}

// Delete removes the token pair for a session
func (s *InMemoryStore) Delete(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pairs, sessionID)
	return nil
}
