package token

import (
	"context"
	"sync"

	"github.com/banklink/go-bank-link/aggregator"
	apperrors "github.com/banklink/go-bank-link/internal/errors"
	"github.com/pkg/errors"
)

// Client is the slice of the aggregator API the manager needs.
type Client interface {
	GenerateToken(ctx context.Context) (aggregator.TokenPair, error)
	RefreshToken(ctx context.Context, refresh string) (aggregator.TokenRefresh, error)
}

// Manager owns the refresh-or-issue decision for aggregator tokens.
// It does not track wall-clock expiry: callers invoke EnsureToken once
// per inbound request cycle and a held pair is refreshed
// unconditionally.
type Manager struct {
	client Client
	store  Store

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(client Client, store Store) *Manager {
	return &Manager{
		client: client,
		store:  store,
		locks:  make(map[string]*sync.Mutex),
	}
}

// EnsureToken returns a currently valid token pair for the session.
// With no pair held a new one is issued; with a pair held the refresh
// token is exchanged and only the access fields are overwritten, the
// refresh token is preserved. A failed refresh leaves the stored pair
// intact so the next call retries with the same refresh token.
//
// Issue-or-refresh for one session is a single critical section: two
// concurrent requests on the same session cannot race a second pair
// into existence.
func (m *Manager) EnsureToken(ctx context.Context, sessionID string) (aggregator.TokenPair, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	pair, err := m.store.Get(sessionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return aggregator.TokenPair{}, errors.Wrap(err, "Manager.EnsureToken Get")
		}
		return m.issue(ctx, sessionID)
	}

	refreshed, err := m.client.RefreshToken(ctx, pair.Refresh)
	if err != nil {
		return aggregator.TokenPair{}, errors.Wrap(err, "Manager.EnsureToken RefreshToken")
	}

	pair.Access = refreshed.Access
	pair.AccessExpires = refreshed.AccessExpires
	if err := m.store.Upsert(sessionID, pair); err != nil {
		return aggregator.TokenPair{}, errors.Wrap(err, "Manager.EnsureToken Upsert")
	}

	return pair, nil
}

// Drop discards the pair held for a session, if any.
func (m *Manager) Drop(sessionID string) {
	_ = m.store.Delete(sessionID)
}

func (m *Manager) issue(ctx context.Context, sessionID string) (aggregator.TokenPair, error) {
	pair, err := m.client.GenerateToken(ctx)
	if err != nil {
		return aggregator.TokenPair{}, errors.Wrap(err, "Manager.issue GenerateToken")
	}
	if err := m.store.Upsert(sessionID, pair); err != nil {
		return aggregator.TokenPair{}, errors.Wrap(err, "Manager.issue Upsert")
	}
	return pair, nil
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}
