package token

import "github.com/banklink/go-bank-link/aggregator"

// Store holds token pairs keyed by browser session id. Keying by
// session keeps one user's refresh cycle from consuming a token minted
// for another flow.
type Store interface {
	Get(sessionID string) (aggregator.TokenPair, error)
	Upsert(sessionID string, pair aggregator.TokenPair) error
	Delete(sessionID string) error
}
