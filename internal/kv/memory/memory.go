package memory

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"haushalt/internal/core"
	"haushalt/internal/kv"
)

// Store keeps blobs in process memory. Contents are lost on exit.
type Store struct {
	mu     sync.Mutex
	values map[string]string
}

var _ kv.Store = (*Store)(nil)

func New(seed map[string]string) *Store {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &Store{values: values}
}

// NewFromFiles seeds the category and account lists from
// seed_categories.txt and seed_accounts.txt under base, one label per line.
// Missing files leave the lists unset so the app falls back to its defaults.
func NewFromFiles(base string) *Store {
	seed := map[string]string{}
	if blob, ok := labelsBlob(readLines(filepath.Join(base, "seed_categories.txt")), "pricetag-outline"); ok {
		seed[kv.KeyCategories] = blob
	}
	if blob, ok := labelsBlob(readLines(filepath.Join(base, "seed_accounts.txt")), "wallet-outline"); ok {
		seed[kv.KeyAccounts] = blob
	}
	return New(seed)
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Keys returns the stored keys in no particular order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

func labelsBlob(lines []string, icon string) (string, bool) {
	if len(lines) == 0 {
		return "", false
	}
	labels := make([]core.Label, len(lines))
	for i, l := range lines {
		labels[i] = core.Label{ID: int64(i + 1), Icon: icon, Label: l}
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe drops repeated labels case-insensitively, keeping input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}
