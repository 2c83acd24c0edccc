package google

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"haushalt/internal/kv"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	oldID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	defer os.Setenv("GOOGLE_SPREADSHEET_ID", oldID)
	os.Unsetenv("GOOGLE_SPREADSHEET_ID")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	keys := []string{"GOOGLE_SPREADSHEET_ID", "GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"}
	old := map[string]string{}
	for _, k := range keys {
		old[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	defer func() {
		for k, v := range old {
			os.Setenv(k, v)
		}
	}()
	os.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFindRow(t *testing.T) {
	rows := [][]any{
		{"@transactions", "[]"},
		{},
		{" @categories ", "[{}]"},
		{"@accounts"},
	}
	tests := []struct {
		key  string
		want int
	}{
		{kv.KeyTransactions, 1},
		{kv.KeyCategories, 3},
		{kv.KeyAccounts, 4},
		{kv.KeyPassword, 0},
	}
	for _, tt := range tests {
		if got := findRow(rows, tt.key); got != tt.want {
			t.Errorf("findRow(%q) = %d, want %d", tt.key, got, tt.want)
		}
	}
	if got := cellValue(rows[3]); got != "" {
		t.Errorf("expected empty value for key-only row, got %q", got)
	}
	if got := cellValue(rows[2]); got != "[{}]" {
		t.Errorf("unexpected value %q", got)
	}
}

func TestStore_NilService(t *testing.T) {
	s := &Store{spreadsheetID: "test", sheet: "Haushalt"}

	_, _, err := s.Get(context.Background(), kv.KeyTransactions)
	var se *kv.StorageError
	if !errors.As(err, &se) || se.Op != kv.OpGet {
		t.Fatalf("expected wrapped get error, got %v", err)
	}
}

// applyPlan plays a writePlan against an in-memory copy of the sheet rows.
func applyPlan(rows [][]any, p writePlan) [][]any {
	for _, u := range p.updates {
		rows[u.row-1] = u.values
	}
	rows = append(rows, p.appends...)
	for _, n := range p.clears {
		rows[n-1] = []any{}
	}
	return rows
}

func TestPlanWrite_LargeValueRoundTrips(t *testing.T) {
	rows := [][]any{
		{kv.KeyPassword, "secret"},
		{kv.KeyTransactions, "[]"},
	}
	large := strings.Repeat(`{"category":"Gehälter","amount":"12,50"},`, 3*MaxCellLength/40)
	if len(large) <= 2*MaxCellLength {
		t.Fatalf("fixture too small: %d bytes", len(large))
	}

	p := planWrite(rows, kv.KeyTransactions, large)
	if len(p.updates) != 1 || p.updates[0].row != 2 {
		t.Fatalf("expected the existing row to be overwritten, got %+v", p.updates)
	}
	rows = applyPlan(rows, p)
	for _, row := range rows {
		if v := cellValue(row); len(v) > MaxCellLength {
			t.Fatalf("cell holds %d bytes", len(v))
		}
	}
	got, ok := assemble(rows, kv.KeyTransactions)
	if !ok || got != large {
		t.Fatalf("large value did not round-trip (ok=%v, len=%d want %d)", ok, len(got), len(large))
	}

	rows = applyPlan(rows, planWrite(rows, kv.KeyTransactions, "[]"))
	if got, _ := assemble(rows, kv.KeyTransactions); got != "[]" {
		t.Fatalf("shrunk value = %q", got)
	}
	if n := findRow(rows, partKey(kv.KeyTransactions, 1)); n != 0 {
		t.Fatalf("stale part still present at row %d", n)
	}
	if got, _ := assemble(rows, kv.KeyPassword); got != "secret" {
		t.Fatalf("neighbouring key changed: %q", got)
	}

	rows = applyPlan(rows, writePlan{clears: partRows(rows, kv.KeyTransactions, 0)})
	if _, ok := assemble(rows, kv.KeyTransactions); ok {
		t.Fatal("expected key to be gone after clearing its parts")
	}
}

func TestSplitValue(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  []string
	}{
		{"empty", "", 4, []string{""}},
		{"fits", "abcd", 4, []string{"abcd"}},
		{"even", "abcdefgh", 4, []string{"abcd", "efgh"}},
		{"tail", "abcdefghi", 4, []string{"abcd", "efgh", "i"}},
		{"rune boundary", "abcä", 4, []string{"abc", "ä"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitValue(tt.in, tt.limit); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitValue(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}
