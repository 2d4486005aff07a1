package kvstore

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process. Used by the CLI, tests and
// single-instance deployments.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	return &MemoryStore{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	raw := v.([]byte)
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s.cache.Set(key, stored, ttl)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
