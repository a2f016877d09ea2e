// Package client is the SDK side of the platform: a token store and a
// submission pipeline that tolerates token expiry, rate limiting, and network
// failure. The pipeline is the sole boundary that converts transport failures
// into coded errors; everything above it works with pkg/domain-errors codes.
package client

import (
	"context"
	"sync"
)

// Pair is the process-wide access/refresh token pair. It is mutated only by
// the refresh routine and by login; every outgoing request reads it.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
}

// Empty reports whether no tokens are held.
func (p Pair) Empty() bool { return p.AccessToken == "" && p.RefreshToken == "" }

// TokenStore owns the token pair. Implementations must be safe for concurrent
// use: the pipeline reads from many goroutines while the refresh routine writes.
type TokenStore interface {
	Tokens(ctx context.Context) (Pair, error)
	Set(ctx context.Context, pair Pair) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the pair in memory. Suitable for tests and for
// processes that re-authenticate on start.
type MemoryTokenStore struct {
	mu   sync.RWMutex
	pair Pair
}

// NewMemoryTokenStore returns a store seeded with the given pair.
func NewMemoryTokenStore(pair Pair) *MemoryTokenStore {
	return &MemoryTokenStore{pair: pair}
}

func (s *MemoryTokenStore) Tokens(_ context.Context) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryTokenStore) Set(_ context.Context, pair Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = Pair{}
	return nil
}
