package cache

import (
	"context"
	"time"

	"haushalt/internal/kv"
)

type entry struct {
	value string
	ok    bool
}

// Store is a read-through, write-through kv.Store decorator. Absent keys are
// cached too. Writes go to the inner store first; the cached entry is only
// refreshed when the write succeeded and is dropped when it failed.
type Store struct {
	inner kv.Store
	lru   *LRUCache[entry]
}

var _ kv.Store = (*Store)(nil)

func NewStore(inner kv.Store, maxSize int, ttl time.Duration) *Store {
	return &Store{inner: inner, lru: NewLRUCache[entry](maxSize, ttl)}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if e, hit := s.lru.Get(key); hit {
		return e.value, e.ok, nil
	}
	v, ok, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	s.lru.Set(key, entry{value: v, ok: ok})
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.inner.Set(ctx, key, value); err != nil {
		s.lru.Delete(key)
		return err
	}
	s.lru.Set(key, entry{value: value, ok: true})
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.inner.Remove(ctx, key); err != nil {
		s.lru.Delete(key)
		return err
	}
	s.lru.Set(key, entry{})
	return nil
}

// Invalidate forgets every cached entry.
func (s *Store) Invalidate() {
	s.lru.Purge()
}
