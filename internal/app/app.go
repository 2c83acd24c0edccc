// Package app wires the ledger, label lists, settings and aggregator around
// one kv.Store. Front ends talk to an *App and never to the store directly.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"haushalt/internal/core"
	"haushalt/internal/currency"
	"haushalt/internal/kv"
	"haushalt/internal/log"
	"haushalt/internal/services"
)

// Options configures New. Zero values pick the defaults.
type Options struct {
	Logger    *log.Logger
	Now       func() time.Time
	IDs       services.IDGenerator
	Table     *currency.Table
	Publisher services.ChangePublisher
}

type App struct {
	Ledger     *services.TransactionStore
	Categories *services.LabelService
	Accounts   *services.LabelService
	Settings   *services.SettingsService
	Table      *currency.Table

	now    func() time.Time
	logger *log.Logger
}

// New builds the services. Nothing is read until Load.
func New(store kv.Store, opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IDs == nil {
		opts.IDs = services.NewClockIDs(opts.Now)
	}
	if opts.Table == nil {
		opts.Table = currency.Default()
	}

	storeOpts := []services.StoreOption{
		services.WithClock(opts.Now),
		services.WithIDGenerator(opts.IDs),
		services.WithLogger(opts.Logger),
	}
	if obs := services.NewBrokerObserver(opts.Publisher, opts.Logger); obs != nil {
		storeOpts = append(storeOpts, services.WithObservers(obs))
	}
	ledger := services.NewTransactionStore(store, storeOpts...)

	return &App{
		Ledger:     ledger,
		Categories: services.NewCategoryService(store, opts.IDs, opts.Logger),
		Accounts:   services.NewAccountService(store, opts.IDs, opts.Logger),
		Settings:   services.NewSettingsService(store, opts.Table, ledger, opts.Logger),
		Table:      opts.Table,
		now:        opts.Now,
		logger:     opts.Logger.WithComponent(log.ComponentApp),
	}
}

// Load reads transactions, categories and accounts concurrently.
func (a *App) Load(ctx context.Context) error {
	start := a.now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Ledger.Load(gctx) })
	g.Go(func() error { return a.Categories.Load(gctx) })
	g.Go(func() error { return a.Accounts.Load(gctx) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load app data: %w", err)
	}
	a.logger.DebugContext(ctx, "App data loaded",
		log.FieldCount, a.Ledger.Len(),
		log.FieldDuration, a.now().Sub(start).Milliseconds())
	return nil
}

// NewTransaction is user input for AddTransaction. Empty Date means today,
// empty Repeating means No and empty Currency means the default currency.
type NewTransaction struct {
	Type      core.TransactionType
	Amount    string
	Category  string
	Account   string
	Date      string
	Repeating core.Repetition
	Notes     string
	Currency  string
}

// AddTransaction validates in, assigns a fresh id and stable label ids, and
// hands it to the ledger. The returned batch starts with the new record.
func (a *App) AddTransaction(ctx context.Context, in NewTransaction) ([]core.Transaction, error) {
	t := core.Transaction{
		Type:      in.Type,
		Amount:    strings.TrimSpace(in.Amount),
		Category:  strings.TrimSpace(in.Category),
		Account:   strings.TrimSpace(in.Account),
		Date:      strings.TrimSpace(in.Date),
		Repeating: in.Repeating,
		Notes:     in.Notes,
	}
	if t.Date == "" {
		t.Date = core.FormatDate(a.now())
	}
	if t.Repeating == "" {
		t.Repeating = core.NoRepeat
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(in.Currency))
	if code == "" {
		code = a.Settings.DefaultCurrency(ctx)
	}
	if _, ok := a.Table.Lookup(code); !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownCurrency, code)
	}
	t.Currency = code

	if l, ok := a.Categories.Find(nil, t.Category); ok {
		t.CategoryID = core.ID(l.ID)
	}
	if l, ok := a.Accounts.Find(nil, t.Account); ok {
		t.AccountID = core.ID(l.ID)
	}

	t.ID = a.Ledger.NextID()
	return a.Ledger.Add(ctx, t), nil
}

// UpdateTransaction validates the patched fields and applies them. Fields
// the patch leaves alone are not re-checked, so legacy records stay editable.
// Reports false for an unknown id.
func (a *App) UpdateTransaction(ctx context.Context, id int64, patch core.TransactionPatch) (bool, error) {
	if _, ok := a.Ledger.Get(id); !ok {
		return false, nil
	}
	if err := validatePatch(patch); err != nil {
		return false, err
	}
	if patch.Category != nil && patch.CategoryID == nil {
		if l, ok := a.Categories.Find(nil, *patch.Category); ok {
			patch.CategoryID = core.ID(l.ID)
		}
	}
	if patch.Account != nil && patch.AccountID == nil {
		if l, ok := a.Accounts.Find(nil, *patch.Account); ok {
			patch.AccountID = core.ID(l.ID)
		}
	}
	if patch.Currency != nil {
		code := strings.ToUpper(strings.TrimSpace(*patch.Currency))
		if _, ok := a.Table.Lookup(code); !ok {
			return false, fmt.Errorf("%w: %s", core.ErrUnknownCurrency, code)
		}
		patch.Currency = &code
	}
	return a.Ledger.Update(ctx, id, patch), nil
}

// ErrDuplicateID is returned when an imported list reuses a transaction id.
var ErrDuplicateID = errors.New("duplicate transaction id")

// ImportTransactions replaces the whole ledger with the JSON array read from
// r, in the same encoding the ledger is stored in. Nothing changes when the
// input does not decode or repeats an id.
func (a *App) ImportTransactions(ctx context.Context, r io.Reader) (int, error) {
	var txs []core.Transaction
	if err := json.NewDecoder(r).Decode(&txs); err != nil {
		return 0, kv.Wrap(kv.OpDecode, kv.KeyTransactions, err)
	}
	seen := make(map[int64]bool, len(txs))
	for _, t := range txs {
		if seen[t.ID] {
			return 0, fmt.Errorf("%w: %d", ErrDuplicateID, t.ID)
		}
		seen[t.ID] = true
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	a.Ledger.Replace(ctx, txs)
	return len(txs), nil
}

func validatePatch(p core.TransactionPatch) error {
	if p.Amount != nil {
		if _, err := core.ParseAmount(*p.Amount); err != nil {
			return err
		}
	}
	if p.Type != nil {
		if err := p.Type.Validate(); err != nil {
			return err
		}
	}
	if p.Repeating != nil {
		if err := p.Repeating.Validate(); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if _, err := core.ParseDate(*p.Date); err != nil {
			return err
		}
	}
	return nil
}

// Summary aggregates year/month in the configured default currency.
func (a *App) Summary(ctx context.Context, year int, month time.Month) (core.MonthlySummary, error) {
	if month < time.January || month > time.December {
		return core.MonthlySummary{}, core.ErrInvalidMonthPeriod
	}
	code := a.Settings.DefaultCurrency(ctx)
	agg := services.Aggregator{Table: a.Table, DefaultCurrency: code}
	sum := agg.Aggregate(a.Ledger.Transactions(), year, month, code)
	if sum.Skipped > 0 {
		a.logger.WarnContext(ctx, "Transactions with unreadable amounts left out of summary",
			log.NewFields().WithPeriod(year, int(month)).ToSlice()...)
	}
	return sum, nil
}

// CategoryOf resolves the category label of t, preferring the stored id.
func (a *App) CategoryOf(t core.Transaction) (core.Label, bool) {
	return a.Categories.Find(t.CategoryID, t.Category)
}

// AccountOf resolves the account label of t, preferring the stored id.
func (a *App) AccountOf(t core.Transaction) (core.Label, bool) {
	return a.Accounts.Find(t.AccountID, t.Account)
}
