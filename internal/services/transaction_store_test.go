package services

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
	"time"

	"haushalt/internal/core"
	"haushalt/internal/kv"
)

var jan1 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func monthlyIncome(id int64) core.Transaction {
	return core.Transaction{
		ID:        id,
		Type:      core.Income,
		Amount:    "100",
		Category:  "Gehälter",
		Date:      "15 January 2024",
		Account:   "Personal",
		Repeating: core.Monthly,
	}
}

func persisted(t *testing.T, s kv.Store) []core.Transaction {
	t.Helper()
	raw, ok, err := s.Get(context.Background(), kv.KeyTransactions)
	if err != nil || !ok {
		t.Fatalf("expected persisted transactions, ok=%v err=%v", ok, err)
	}
	var txs []core.Transaction
	if err := json.Unmarshal([]byte(raw), &txs); err != nil {
		t.Fatalf("decode persisted list: %v", err)
	}
	return txs
}

func TestTransactionStore_AddExpandsAndPersists(t *testing.T) {
	ctx := context.Background()
	backing := newFlakyStore(nil)
	s := newTestStore(backing, jan1)

	batch := s.Add(ctx, monthlyIncome(1))

	if len(batch) != 12 || batch[0].ID != 1 || batch[0].IsOccurrence() {
		t.Fatalf("expected origin followed by 11 occurrences, got %d", len(batch))
	}
	if s.Len() != 12 {
		t.Fatalf("expected 12 stored, got %d", s.Len())
	}
	if got := persisted(t, backing); len(got) != 12 {
		t.Fatalf("expected 12 persisted, got %d", len(got))
	}
	if backing.sets() != 1 {
		t.Fatalf("expected one write for the whole batch, got %d", backing.sets())
	}
}

func TestTransactionStore_AddNoRepeat(t *testing.T) {
	s := newTestStore(newFlakyStore(nil), jan1)
	tx := monthlyIncome(1)
	tx.Repeating = core.NoRepeat

	if batch := s.Add(context.Background(), tx); len(batch) != 1 {
		t.Fatalf("expected only the origin, got %d", len(batch))
	}
}

func TestTransactionStore_RemoveOriginCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFlakyStore(nil), jan1)
	s.Add(ctx, monthlyIncome(1))
	other := monthlyIncome(2)
	other.Repeating = core.NoRepeat
	s.Add(ctx, other)

	if n := s.Remove(ctx, 1); n != 12 {
		t.Fatalf("expected origin and 11 occurrences removed, got %d", n)
	}
	for _, tx := range s.Transactions() {
		if tx.ID == 1 || (tx.OriginalID != nil && *tx.OriginalID == 1) {
			t.Fatalf("transaction %d survived the cascade", tx.ID)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("unrelated transaction should remain, got %d", s.Len())
	}
}

func TestTransactionStore_RemoveOccurrenceOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFlakyStore(nil), jan1)
	batch := s.Add(ctx, monthlyIncome(1))
	target := batch[3].ID

	if n := s.Remove(ctx, target); n != 1 {
		t.Fatalf("expected exactly one removal, got %d", n)
	}
	if _, ok := s.Get(1); !ok {
		t.Fatal("origin must survive removal of an occurrence")
	}
	if s.Len() != 11 {
		t.Fatalf("siblings must survive, got %d", s.Len())
	}
}

func TestTransactionStore_RemoveMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	backing := newFlakyStore(nil)
	var changes int
	s := newTestStore(backing, jan1, WithObservers(ObserverFunc(func(context.Context, Change) { changes++ })))

	if n := s.Remove(ctx, 42); n != 0 {
		t.Fatalf("expected no removal on empty store, got %d", n)
	}
	s.Add(ctx, monthlyIncome(1))
	before := s.Transactions()
	writes := backing.sets()

	if n := s.Remove(ctx, 42); n != 0 {
		t.Fatalf("expected no removal, got %d", n)
	}
	if !reflect.DeepEqual(before, s.Transactions()) {
		t.Fatal("list changed on removal of a missing id")
	}
	if backing.sets() != writes || changes != 1 {
		t.Fatalf("missing id should not write or notify: writes=%d changes=%d", backing.sets()-writes, changes)
	}
}

func TestTransactionStore_UpdateTouchesOnlyTarget(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFlakyStore(nil), jan1)
	s.Add(ctx, monthlyIncome(1))
	before := s.Transactions()

	notes := "salary raise"
	date := "20 January 2024"
	never := core.NoRepeat
	if !s.Update(ctx, 1, core.TransactionPatch{Notes: &notes, Date: &date, Repeating: &never}) {
		t.Fatal("expected update to find the origin")
	}

	after := s.Transactions()
	if len(after) != len(before) {
		t.Fatalf("update changed the list length: %d -> %d", len(before), len(after))
	}
	for i := range after {
		if after[i].ID == 1 {
			if after[i].Notes != notes || after[i].Date != date || after[i].Repeating != core.NoRepeat {
				t.Fatalf("patch not applied: %+v", after[i])
			}
			continue
		}
		a, _ := json.Marshal(after[i])
		b, _ := json.Marshal(before[i])
		if string(a) != string(b) {
			t.Fatalf("transaction %d changed: %s -> %s", after[i].ID, b, a)
		}
	}

	if s.Update(ctx, 999, core.TransactionPatch{Notes: &notes}) {
		t.Fatal("update of a missing id should report false")
	}
}

func TestTransactionStore_LoadFallbacks(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		s := newTestStore(newFlakyStore(nil), jan1)
		if err := s.Load(ctx); err != nil || s.Len() != 0 {
			t.Fatalf("expected empty list, err=%v len=%d", err, s.Len())
		}
	})

	t.Run("read failure", func(t *testing.T) {
		backing := newFlakyStore(nil)
		backing.failGet = true
		s := newTestStore(backing, jan1)
		if err := s.Load(ctx); err != nil || s.Len() != 0 {
			t.Fatalf("expected empty list, err=%v len=%d", err, s.Len())
		}
	})

	t.Run("corrupt blob", func(t *testing.T) {
		s := newTestStore(newFlakyStore(map[string]string{kv.KeyTransactions: "{not json"}), jan1)
		if err := s.Load(ctx); err != nil || s.Len() != 0 {
			t.Fatalf("expected empty list, err=%v len=%d", err, s.Len())
		}
	})

	t.Run("legacy blob", func(t *testing.T) {
		raw := `[{"id":5000,"type":"expense","amount":"12,50","category":"Kaffee","date":"03 February 2024","account":"Personal","repeating":"No","notes":"","currency":"€"}]`
		s := newTestStore(newFlakyStore(map[string]string{kv.KeyTransactions: raw}), jan1)
		if err := s.Load(ctx); err != nil {
			t.Fatalf("load: %v", err)
		}
		tx, ok := s.Get(5000)
		if !ok || tx.Currency != "€" {
			t.Fatalf("unexpected load result: %+v ok=%v", tx, ok)
		}
		if id := s.NextID(); id <= 5000 {
			t.Fatalf("next id %d collides with loaded data", id)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		s := newTestStore(newFlakyStore(nil), jan1)
		if err := s.Load(cctx); err == nil {
			t.Fatal("expected context error")
		}
	})
}

func TestTransactionStore_WriteFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	backing := newFlakyStore(nil)
	backing.failSet = true
	s := newTestStore(backing, jan1)

	s.Add(ctx, monthlyIncome(1))
	if s.Len() != 12 {
		t.Fatalf("in-memory state should be updated despite write failure, got %d", s.Len())
	}
	if _, ok, _ := backing.Store.Get(ctx, kv.KeyTransactions); ok {
		t.Fatal("nothing should have been written")
	}

	// Next successful write carries everything.
	backing.failSet = false
	s.Remove(ctx, 1)
	if got := persisted(t, backing); len(got) != 0 {
		t.Fatalf("expected empty persisted list, got %d", len(got))
	}
}

func TestTransactionStore_ObserversAndReplace(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var got []Change
	obs := ObserverFunc(func(_ context.Context, c Change) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})
	backing := newFlakyStore(nil)
	s := newTestStore(backing, jan1)
	s.Subscribe(obs)

	s.Add(ctx, monthlyIncome(1))
	notes := "x"
	s.Update(ctx, 1, core.TransactionPatch{Notes: &notes})
	s.Remove(ctx, 1)
	s.Replace(ctx, []core.Transaction{{ID: 77, Type: core.Expense, Amount: "1", Date: "01 January 2024"}})
	s.Clear(ctx)

	ops := make([]ChangeOp, len(got))
	for i, c := range got {
		ops[i] = c.Op
	}
	want := []ChangeOp{ChangeAdd, ChangeUpdate, ChangeRemove, ChangeReplace, ChangeReplace}
	if !reflect.DeepEqual(ops, want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	if len(got[0].IDs) != 12 || got[0].Count != 12 || !got[0].At.Equal(jan1) {
		t.Fatalf("unexpected add change: %+v", got[0])
	}
	if len(got[2].IDs) != 12 || got[2].Count != 0 {
		t.Fatalf("unexpected remove change: %+v", got[2])
	}
	if got[3].Count != 1 || got[4].Count != 0 || s.Len() != 0 {
		t.Fatalf("unexpected replace/clear: %+v %+v", got[3], got[4])
	}
	// Clear does not write; the replaced list is still persisted.
	if p := persisted(t, backing); len(p) != 1 || p[0].ID != 77 {
		t.Fatalf("unexpected persisted list after clear: %+v", p)
	}
}

func TestTransactionStore_ReturnsCopies(t *testing.T) {
	s := newTestStore(newFlakyStore(nil), jan1)
	s.Add(context.Background(), monthlyIncome(1))

	list := s.Transactions()
	list[1].Notes = "mutated"
	*list[1].OriginalID = 99

	fresh := s.Transactions()
	if fresh[1].Notes == "mutated" || *fresh[1].OriginalID != 1 {
		t.Fatal("Transactions leaked internal state")
	}
}
