package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"haushalt/internal/kv"
	"haushalt/internal/kv/memory"
	"haushalt/internal/log"
)

var errDiskFull = errors.New("disk full")

// flakyStore wraps the memory store and fails the operations switched on.
type flakyStore struct {
	*memory.Store
	mu       sync.Mutex
	failGet  bool
	failSet  bool
	failRm   bool
	setCalls int
	rmCalls  int
}

func newFlakyStore(seed map[string]string) *flakyStore {
	return &flakyStore{Store: memory.New(seed)}
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", false, kv.Wrap(kv.OpGet, key, errDiskFull)
	}
	return f.Store.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	f.setCalls++
	fail := f.failSet
	f.mu.Unlock()
	if fail {
		return kv.Wrap(kv.OpSet, key, errDiskFull)
	}
	return f.Store.Set(ctx, key, value)
}

func (f *flakyStore) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	f.rmCalls++
	fail := f.failRm
	f.mu.Unlock()
	if fail {
		return kv.Wrap(kv.OpRemove, key, errDiskFull)
	}
	return f.Store.Remove(ctx, key)
}

func (f *flakyStore) sets() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setCalls
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// seqIDs hands out 1000, 1001, ... and honours Observe.
type seqIDs struct {
	mu   sync.Mutex
	last int64
}

func newSeqIDs() *seqIDs { return &seqIDs{last: 999} }

func (s *seqIDs) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last++
	return s.last
}

func (s *seqIDs) Observe(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id > s.last {
		s.last = id
	}
}

func newTestStore(store kv.Store, now time.Time, opts ...StoreOption) *TransactionStore {
	base := []StoreOption{
		WithClock(fixedClock(now)),
		WithIDGenerator(newSeqIDs()),
		WithLogger(log.Discard()),
	}
	return NewTransactionStore(store, append(base, opts...)...)
}
