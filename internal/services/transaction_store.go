package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"haushalt/internal/core"
	"haushalt/internal/kv"
	"haushalt/internal/log"
)

// ChangeOp names the mutation a Change describes.
type ChangeOp string

const (
	ChangeAdd     ChangeOp = "add"
	ChangeUpdate  ChangeOp = "update"
	ChangeRemove  ChangeOp = "remove"
	ChangeReplace ChangeOp = "replace"
)

// Change is delivered to observers after the in-memory list changed.
type Change struct {
	Op    ChangeOp
	IDs   []int64 // ids added, updated or removed; empty for replace
	Count int     // list length after the change
	At    time.Time
}

// Observer is notified after every effective mutation. Notifications run
// synchronously on the mutating goroutine, outside the store lock.
type Observer interface {
	OnChange(ctx context.Context, c Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, c Change)

func (f ObserverFunc) OnChange(ctx context.Context, c Change) { f(ctx, c) }

// TransactionStore owns the authoritative transaction list. Every mutation
// updates memory first and then writes the whole list under
// kv.KeyTransactions. Write failures are logged and never returned: memory
// stays the source of truth until the next successful write.
type TransactionStore struct {
	mu        sync.RWMutex
	kv        kv.Store
	txs       []core.Transaction
	now       func() time.Time
	ids       IDGenerator
	logger    *log.Logger
	observers []Observer
}

// StoreOption configures a TransactionStore.
type StoreOption func(*TransactionStore)

func WithClock(now func() time.Time) StoreOption {
	return func(s *TransactionStore) { s.now = now }
}

func WithIDGenerator(ids IDGenerator) StoreOption {
	return func(s *TransactionStore) { s.ids = ids }
}

func WithLogger(l *log.Logger) StoreOption {
	return func(s *TransactionStore) { s.logger = l }
}

func WithObservers(obs ...Observer) StoreOption {
	return func(s *TransactionStore) { s.observers = append(s.observers, obs...) }
}

func NewTransactionStore(store kv.Store, opts ...StoreOption) *TransactionStore {
	s := &TransactionStore{kv: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = NewClockIDs(s.now)
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	return s
}

// Subscribe adds an observer.
func (s *TransactionStore) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// NextID returns a fresh id for a user-entered transaction.
func (s *TransactionStore) NextID() int64 {
	return s.ids.Next()
}

// Load reads the persisted list. A missing key gives an empty list. Read and
// decode failures are logged and also give an empty list; only a cancelled
// context is returned as an error.
func (s *TransactionStore) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, kv.KeyTransactions)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var txs []core.Transaction
	switch {
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to read transactions, starting empty",
			log.NewFields().WithOperation(log.OpLoad).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
	case ok && raw != "":
		if err := json.Unmarshal([]byte(raw), &txs); err != nil {
			err = kv.Wrap(kv.OpDecode, kv.KeyTransactions, err)
			s.logger.ErrorContext(ctx, "Failed to decode transactions, starting empty",
				log.NewFields().WithOperation(log.OpLoad).WithError(err, log.ErrorTypeDecode).ToSlice()...)
			txs = nil
		}
	}

	for _, t := range txs {
		s.ids.Observe(t.ID)
	}

	s.mu.Lock()
	s.txs = txs
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Transactions loaded", log.FieldCount, len(txs))
	return nil
}

// Transactions returns a copy of the list in insertion order.
func (s *TransactionStore) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.txs))
	for i, t := range s.txs {
		out[i] = t.Clone()
	}
	return out
}

// Get returns the transaction with id.
func (s *TransactionStore) Get(id int64) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return core.Transaction{}, false
}

// Len returns the number of stored transactions.
func (s *TransactionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs)
}

// Add appends candidate and its generated occurrences as one batch. The
// caller assigns candidate.ID; it is not checked for collisions. The batch
// written is returned, origin first.
func (s *TransactionStore) Add(ctx context.Context, candidate core.Transaction) []core.Transaction {
	s.mu.Lock()
	s.ids.Observe(candidate.ID)
	batch := append([]core.Transaction{candidate.Clone()},
		GenerateOccurrences(candidate, s.now(), s.ids.Next)...)
	s.txs = append(s.txs, batch...)
	s.persistLocked(ctx, log.OpCreate)
	count := len(s.txs)
	s.mu.Unlock()

	ids := make([]int64, len(batch))
	for i, t := range batch {
		ids[i] = t.ID
	}
	s.logger.InfoContext(ctx, "Transaction added",
		log.NewFields().WithTransaction(candidate.ID, nil).ToSlice()...)
	s.logger.DebugContext(ctx, "Occurrences generated",
		log.FieldTransactionID, candidate.ID, log.FieldOccurrences, len(batch)-1)
	s.notify(ctx, Change{Op: ChangeAdd, IDs: ids, Count: count, At: s.now()})

	out := make([]core.Transaction, len(batch))
	for i, t := range batch {
		out[i] = t.Clone()
	}
	return out
}

// Remove deletes every transaction whose id or originalId equals id, so
// removing an origin takes its occurrences along and removing an occurrence
// removes only itself. Unknown ids are a silent no-op. Returns how many
// records were removed.
func (s *TransactionStore) Remove(ctx context.Context, id int64) int {
	s.mu.Lock()
	kept := s.txs[:0:0]
	var removed []int64
	for _, t := range s.txs {
		if t.ID == id || (t.OriginalID != nil && *t.OriginalID == id) {
			removed = append(removed, t.ID)
			continue
		}
		kept = append(kept, t)
	}
	if len(removed) == 0 {
		s.mu.Unlock()
		return 0
	}
	s.txs = kept
	s.persistLocked(ctx, log.OpDelete)
	count := len(s.txs)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction removed",
		log.FieldTransactionID, id, log.FieldCount, len(removed))
	s.notify(ctx, Change{Op: ChangeRemove, IDs: removed, Count: count, At: s.now()})
	return len(removed)
}

// Update merges patch into the transaction with id. Occurrences of an origin
// are left untouched and recurrence is never re-run, even when the patch
// changes Date or Repeating. Unknown ids are a silent no-op.
func (s *TransactionStore) Update(ctx context.Context, id int64, patch core.TransactionPatch) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.txs {
		if s.txs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.txs[idx].Apply(patch)
	s.persistLocked(ctx, log.OpUpdate)
	count := len(s.txs)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Transaction updated", log.FieldTransactionID, id)
	s.notify(ctx, Change{Op: ChangeUpdate, IDs: []int64{id}, Count: count, At: s.now()})
	return true
}

// Replace swaps the whole list and persists it.
func (s *TransactionStore) Replace(ctx context.Context, txs []core.Transaction) {
	s.mu.Lock()
	s.txs = cloneAll(txs)
	for _, t := range s.txs {
		s.ids.Observe(t.ID)
	}
	s.persistLocked(ctx, log.OpReplace)
	count := len(s.txs)
	s.mu.Unlock()

	s.notify(ctx, Change{Op: ChangeReplace, Count: count, At: s.now()})
}

// Clear empties the in-memory list without writing. Used after the
// persisted key has been removed.
func (s *TransactionStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.txs = nil
	s.mu.Unlock()

	s.notify(ctx, Change{Op: ChangeReplace, Count: 0, At: s.now()})
}

// persistLocked writes the full list. Caller holds s.mu.
func (s *TransactionStore) persistLocked(ctx context.Context, op string) {
	list := s.txs
	if list == nil {
		list = []core.Transaction{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode transactions",
			log.NewFields().WithOperation(op).WithError(kv.Wrap(kv.OpEncode, kv.KeyTransactions, err), log.ErrorTypeInternal).ToSlice()...)
		return
	}
	if err := s.kv.Set(ctx, kv.KeyTransactions, string(b)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist transactions, keeping in-memory state",
			log.NewFields().WithOperation(op).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
	}
}

func (s *TransactionStore) notify(ctx context.Context, c Change) {
	s.mu.RLock()
	obs := append([]Observer(nil), s.observers...)
	s.mu.RUnlock()
	for _, o := range obs {
		o.OnChange(ctx, c)
	}
}

func cloneAll(txs []core.Transaction) []core.Transaction {
	if len(txs) == 0 {
		return nil
	}
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		out[i] = t.Clone()
	}
	return out
}
