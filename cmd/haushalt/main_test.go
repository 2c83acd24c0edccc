package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"haushalt/internal/core"
	"haushalt/internal/kv/memory"
	"haushalt/internal/log"
)

func newTestRunner(t *testing.T) (*runner, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	r, err := newRunner(context.Background(), memory.New(nil), nil, &out, log.Discard())
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	return r, &out
}

func mustDispatch(t *testing.T, r *runner, out *bytes.Buffer, password string, args ...string) string {
	t.Helper()
	out.Reset()
	if err := r.dispatch(context.Background(), password, args); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestRatioBar(t *testing.T) {
	tests := []struct {
		name            string
		expense, income float64
		want            string
	}{
		{"empty month", 0, 0, ".........."},
		{"only expenses", 1, 0, "##########"},
		{"half spent", 0.5, 0.5, "#####====="},
		{"nothing spent", 0, 1, "=========="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ratioBar(tt.expense, tt.income, 10); got != tt.want {
				t.Errorf("ratioBar(%v, %v) = %q, want %q", tt.expense, tt.income, got, tt.want)
			}
		})
	}
}

func TestParseMonth(t *testing.T) {
	y, m, err := parseMonth("2024-02")
	if err != nil || y != 2024 || m != time.February {
		t.Fatalf("parseMonth = %d %v %v", y, m, err)
	}
	if _, _, err := parseMonth("Feb 2024"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestTransactionCommands(t *testing.T) {
	r, out := newTestRunner(t)

	got := mustDispatch(t, r, out, "", "add", "-amount", "12,50", "-category", "Kaffee", "-date", "15 January 2024", "-notes", "Bohnen")
	if !strings.HasPrefix(got, "Added ") {
		t.Fatalf("unexpected add output: %q", got)
	}
	id := r.app.Ledger.Transactions()[0].ID

	got = mustDispatch(t, r, out, "", "list", "-month", "2024-01")
	if !strings.Contains(got, "Kaffee") || !strings.Contains(got, "€ 12.50") {
		t.Fatalf("unexpected list output:\n%s", got)
	}

	got = mustDispatch(t, r, out, "", "list", "-q", "miete")
	if !strings.Contains(got, "No transactions.") {
		t.Fatalf("expected empty result, got:\n%s", got)
	}

	mustDispatch(t, r, out, "", "notes", itoa(id), "frisch", "geröstet")
	got = mustDispatch(t, r, out, "", "show", itoa(id))
	if !strings.Contains(got, "frisch geröstet") || !strings.Contains(got, "cafe-outline") {
		t.Fatalf("unexpected show output:\n%s", got)
	}

	mustDispatch(t, r, out, "", "update", "-amount", "20", itoa(id))
	if tx, _ := r.app.Ledger.Get(id); tx.Amount != "20" {
		t.Fatalf("update not applied: %+v", tx)
	}

	got = mustDispatch(t, r, out, "", "summary", "-month", "2024-01")
	if !strings.Contains(got, "Expenses") || !strings.Contains(got, "20.00") || !strings.Contains(got, "100% spent") {
		t.Fatalf("unexpected summary output:\n%s", got)
	}

	got = mustDispatch(t, r, out, "", "remove", itoa(id))
	if !strings.Contains(got, "Removed 1") {
		t.Fatalf("unexpected remove output: %q", got)
	}
	got = mustDispatch(t, r, out, "", "remove", itoa(id))
	if !strings.Contains(got, "No transaction") {
		t.Fatalf("second remove should be a no-op: %q", got)
	}
}

func TestAddRejectsInvalidAmount(t *testing.T) {
	r, _ := newTestRunner(t)
	err := r.dispatch(context.Background(), "", []string{"add", "-amount", "abc"})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestLabelCommands(t *testing.T) {
	r, out := newTestRunner(t)

	mustDispatch(t, r, out, "", "accounts", "add", "-icon", "card-outline", "Giro", "Konto")
	got := mustDispatch(t, r, out, "", "accounts", "list")
	if !strings.Contains(got, "Giro Konto") || !strings.Contains(got, "card-outline") {
		t.Fatalf("unexpected accounts list:\n%s", got)
	}

	err := r.dispatch(context.Background(), "", []string{"categories", "add", "kaffee"})
	if !errors.Is(err, core.ErrDuplicateLabel) {
		t.Fatalf("expected ErrDuplicateLabel, got %v", err)
	}

	mustDispatch(t, r, out, "", "categories", "edit", "13", "Espresso")
	got = mustDispatch(t, r, out, "", "categories", "list", "-q", "espr")
	if !strings.Contains(got, "Espresso") {
		t.Fatalf("edit not visible:\n%s", got)
	}

	mustDispatch(t, r, out, "", "categories", "delete", "13")
	if err := r.dispatch(context.Background(), "", []string{"categories", "delete", "13"}); err == nil {
		t.Fatal("deleting twice should report the missing id")
	}
}

func TestPasswordGate(t *testing.T) {
	r, out := newTestRunner(t)
	ctx := context.Background()

	mustDispatch(t, r, out, "", "password", "set", "geheim1", "geheim1")

	if err := r.dispatch(ctx, "", []string{"list"}); !errors.Is(err, core.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword without password, got %v", err)
	}
	if err := r.dispatch(ctx, "falsch", []string{"list"}); !errors.Is(err, core.ErrIncorrectPassword) {
		t.Fatalf("expected ErrIncorrectPassword with wrong password, got %v", err)
	}
	mustDispatch(t, r, out, "geheim1", "list")

	if err := r.dispatch(ctx, "geheim1", []string{"password", "set", "neues12", "neues12"}); err == nil {
		t.Fatal("set should refuse to overwrite an existing password")
	}
	mustDispatch(t, r, out, "geheim1", "password", "change", "geheim1", "neues12", "neues12")

	got := mustDispatch(t, r, out, "", "password", "clear")
	if !strings.Contains(got, "Password removed") {
		t.Fatalf("unexpected clear output: %q", got)
	}
	mustDispatch(t, r, out, "", "list")
}

func TestCurrencyCommands(t *testing.T) {
	r, out := newTestRunner(t)

	if got := mustDispatch(t, r, out, "", "currency", "get"); !strings.HasPrefix(got, "EUR (€)") {
		t.Fatalf("unexpected default currency: %q", got)
	}
	mustDispatch(t, r, out, "", "currency", "set", "cny")
	if got := mustDispatch(t, r, out, "", "currency"); !strings.HasPrefix(got, "CNY (¥)") {
		t.Fatalf("unexpected currency after set: %q", got)
	}
	got := mustDispatch(t, r, out, "", "currency", "list")
	if !strings.Contains(got, "*  CNY") {
		t.Fatalf("current currency not marked:\n%s", got)
	}
	err := r.dispatch(context.Background(), "", []string{"currency", "set", "XXX"})
	if !errors.Is(err, core.ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
	if !strings.Contains(err.Error(), "USD EUR") {
		t.Errorf("expected known codes in %q", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	r, out := newTestRunner(t)
	mustDispatch(t, r, out, "", "add", "-amount", "7", "-category", "Kaffee", "-date", "05 March 2024")
	mustDispatch(t, r, out, "", "add", "-amount", "9", "-type", "income", "-date", "06 March 2024")

	exported := mustDispatch(t, r, out, "", "export")
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte(exported), 0o600); err != nil {
		t.Fatalf("write export: %v", err)
	}

	other, otherOut := newTestRunner(t)
	mustDispatch(t, other, otherOut, "", "add", "-amount", "1", "-date", "01 March 2024")
	if got := mustDispatch(t, other, otherOut, "", "import", path); !strings.Contains(got, "Imported 2 transaction(s)") {
		t.Fatalf("unexpected import output: %q", got)
	}
	if got := mustDispatch(t, other, otherOut, "", "export"); got != exported {
		t.Fatalf("ledger differs after import:\n%s\nwant:\n%s", got, exported)
	}

	if err := other.dispatch(context.Background(), "", []string{"import"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	r, out := newTestRunner(t)
	mustDispatch(t, r, out, "", "add", "-amount", "5", "-date", "01 March 2024")

	if err := r.dispatch(context.Background(), "", []string{"reset"}); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if r.app.Ledger.Len() != 1 {
		t.Fatal("unconfirmed reset must not delete anything")
	}

	mustDispatch(t, r, out, "", "reset", "-yes")
	if r.app.Ledger.Len() != 0 {
		t.Fatalf("expected empty ledger after reset, got %d", r.app.Ledger.Len())
	}
}

func TestDispatchErrors(t *testing.T) {
	r, _ := newTestRunner(t)
	ctx := context.Background()

	if err := r.dispatch(ctx, "", []string{"frobnicate"}); !errors.Is(err, errUsage) {
		t.Errorf("unknown command: expected usage error, got %v", err)
	}
	if err := r.dispatch(ctx, "", []string{"show", "abc"}); !errors.Is(err, errUsage) {
		t.Errorf("bad id: expected usage error, got %v", err)
	}
	if err := r.dispatch(ctx, "", []string{"update", "1"}); !errors.Is(err, errUsage) {
		t.Errorf("empty update: expected usage error, got %v", err)
	}
	if err := r.dispatch(ctx, "", []string{"watch"}); err == nil {
		t.Error("watch without broker should fail")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
