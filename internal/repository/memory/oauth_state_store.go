package memory

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// OAuthStateStore remembers issued OAuth state values. A state can be
// consumed once.
type OAuthStateStore struct {
	// mu makes the lookup and removal in Consume one step.
	mu    sync.Mutex
	cache *cache.Cache
}

func NewOAuthStateStore(ttl time.Duration) *OAuthStateStore {
	return &OAuthStateStore{
		cache: cache.New(ttl, ttl),
	}
}

// Issue returns a fresh random state bound to provider.
func (s *OAuthStateStore) Issue(provider string) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := hex.EncodeToString(b)
	s.cache.Set(state, provider, cache.DefaultExpiration)
	return state, nil
}

// Consume reports whether state was issued for provider and has not expired.
// The state is removed either way.
func (s *OAuthStateStore) Consume(provider, state string) bool {
	if state == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	x, found := s.cache.Get(state)
	if !found {
		return false
	}
	s.cache.Delete(state)
	return x.(string) == provider
}
