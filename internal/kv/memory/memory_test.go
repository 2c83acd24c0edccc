package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"haushalt/internal/core"
	"haushalt/internal/kv"
)

func TestMemoryStoreGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := New(map[string]string{"a": "1"})

	if v, ok, err := s.Get(ctx, "a"); err != nil || !ok || v != "1" {
		t.Fatalf("unexpected get: v=%q ok=%v err=%v", v, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatal("expected missing key")
	}
	if err := s.Set(ctx, "a", "2"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _, _ := s.Get(ctx, "a"); v != "2" {
		t.Fatalf("expected overwrite, got %q", v)
	}
	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.Remove(ctx, "a"); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if len(s.Keys()) != 0 {
		t.Fatalf("expected empty store, got %v", s.Keys())
	}
}

func TestNewCopiesSeed(t *testing.T) {
	seed := map[string]string{"a": "1"}
	s := New(seed)
	seed["a"] = "changed"
	if v, _, _ := s.Get(context.Background(), "a"); v != "1" {
		t.Fatalf("store shares seed map: %q", v)
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	// No files -> nothing seeded
	s := NewFromFiles(dir)
	if len(s.Keys()) != 0 {
		t.Fatalf("expected no keys when files missing, got %v", s.Keys())
	}

	mustWrite := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	mustWrite("seed_categories.txt", "# header\nMiete\nKaffee\nmiete\n\n")
	mustWrite("seed_accounts.txt", "Girokonto\n")

	s = NewFromFiles(dir)
	raw, ok, _ := s.Get(context.Background(), kv.KeyCategories)
	if !ok {
		t.Fatal("expected categories to be seeded")
	}
	var cats []core.Label
	if err := json.Unmarshal([]byte(raw), &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(cats) != 2 || cats[0].Label != "Miete" || cats[1].Label != "Kaffee" || cats[1].ID != 2 {
		t.Fatalf("unexpected cats: %+v", cats)
	}
	if _, ok, _ := s.Get(context.Background(), kv.KeyAccounts); !ok {
		t.Fatal("expected accounts to be seeded")
	}
}
