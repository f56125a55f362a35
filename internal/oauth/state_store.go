package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const (
	stateKeyPrefix = "oauth_state:"
	// DefaultStateTTL bounds how long a user may sit on the consent screen.
	DefaultStateTTL = 10 * time.Minute
)

// StateCache is the subset of the cache client the state store needs. Both
// calls must report storage failures: a state that was never written would
// only surface later as a rejected callback.
type StateCache interface {
	SetStrict(ctx context.Context, key string, value []byte, ttl time.Duration) error
	GetDel(ctx context.Context, key string) ([]byte, error)
}

// StateStore issues single-use anti-CSRF state tokens for the provider
// redirect and keeps them in Redis until the callback consumes them.
type StateStore struct {
	cache StateCache
	ttl   time.Duration
}

// NewStateStore creates a new state store.
func NewStateStore(cache StateCache, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &StateStore{cache: cache, ttl: ttl}
}

// Issue creates a random state bound to provider.
func (s *StateStore) Issue(ctx context.Context, provider string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	if err := s.cache.SetStrict(ctx, stateKeyPrefix+state, []byte(provider), s.ttl); err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return state, nil
}

// Consume checks that state was issued for provider and removes it. A state
// can be consumed at most once.
func (s *StateStore) Consume(ctx context.Context, provider, state string) error {
	if state == "" {
		return fmt.Errorf("%w: missing state", ErrHandshakeFailed)
	}
	data, err := s.cache.GetDel(ctx, stateKeyPrefix+state)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if data == nil {
		return fmt.Errorf("%w: unknown or expired state", ErrHandshakeFailed)
	}
	if string(data) != provider {
		return fmt.Errorf("%w: state issued for another provider", ErrHandshakeFailed)
	}
	return nil
}
