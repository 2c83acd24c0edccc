package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"haushalt/internal/app"
	"haushalt/internal/core"
	"haushalt/internal/services"
)

const ratioBarWidth = 30

func (r *runner) add(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	typ := fs.String("type", string(core.Expense), "income or expense")
	amount := fs.String("amount", "", "amount, dot or comma decimal")
	category := fs.String("category", "", "category label")
	account := fs.String("account", "Personal", "account label")
	date := fs.String("date", "", `date as "DD Month YYYY", default today`)
	repeat := fs.String("repeat", "No", "No, Monthly, Quarterly or Annually")
	notes := fs.String("notes", "", "free text")
	cur := fs.String("currency", "", "currency code, default is the configured currency")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	rep, err := core.ParseRepetition(*repeat)
	if err != nil {
		return err
	}

	batch, err := r.app.AddTransaction(ctx, app.NewTransaction{
		Type:      core.TransactionType(strings.ToLower(strings.TrimSpace(*typ))),
		Amount:    *amount,
		Category:  *category,
		Account:   *account,
		Date:      *date,
		Repeating: rep,
		Notes:     *notes,
		Currency:  *cur,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Added %d", batch[0].ID)
	if n := len(batch) - 1; n > 0 {
		fmt.Fprintf(r.out, " (+%d occurrences until %s)", n, batch[n].Date)
	}
	fmt.Fprintln(r.out)
	return nil
}

func (r *runner) list(args []string) error {
	fs := newFlagSet("list")
	query := fs.String("q", "", "search category and notes")
	typ := fs.String("type", "", "income or expense")
	cats := fs.String("category", "", "comma separated category labels")
	month := fs.String("month", "", "YYYY-MM")
	minAmount := fs.Float64("min", 0, "minimum amount")
	maxAmount := fs.Float64("max", 0, "maximum amount, 0 for none")
	sortBy := fs.String("sort", string(services.SortByDate), "date or amount")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	filter := services.TransactionFilter{
		Query:     *query,
		Type:      core.TransactionType(strings.ToLower(*typ)),
		MinAmount: *minAmount,
		MaxAmount: *maxAmount,
		SortBy:    services.SortBy(*sortBy),
	}
	if filter.Type != "" {
		if err := filter.Type.Validate(); err != nil {
			return err
		}
	}
	if filter.SortBy != services.SortByDate && filter.SortBy != services.SortByAmount {
		return usageErr("list: unknown sort %q", *sortBy)
	}
	if *cats != "" {
		for _, c := range strings.Split(*cats, ",") {
			if c = strings.TrimSpace(c); c != "" {
				filter.Categories = append(filter.Categories, c)
			}
		}
	}
	if *month != "" {
		y, m, err := parseMonth(*month)
		if err != nil {
			return err
		}
		filter.Year, filter.Month = y, m
	}

	txs := filter.Apply(r.app.Ledger.Transactions())
	if len(txs) == 0 {
		fmt.Fprintln(r.out, "No transactions.")
		return nil
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTYPE\tAMOUNT\tCATEGORY\tACCOUNT\tREPEAT\tNOTES")
	for _, t := range txs {
		repeat := string(t.Repeating)
		if t.IsOccurrence() {
			repeat = fmt.Sprintf("from %d", *t.OriginalID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Date, t.Type, r.formatAmount(t), t.Category, t.Account, repeat, firstLine(t.Notes))
	}
	return w.Flush()
}

func (r *runner) show(args []string) error {
	id, err := parseID("show", args)
	if err != nil {
		return err
	}
	t, ok := r.app.Ledger.Get(id)
	if !ok {
		return fmt.Errorf("no transaction with id %d", id)
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\t%d\n", t.ID)
	fmt.Fprintf(w, "Type\t%s\n", t.Type)
	fmt.Fprintf(w, "Amount\t%s\n", r.formatAmount(t))
	fmt.Fprintf(w, "Date\t%s\n", t.Date)
	if l, ok := r.app.CategoryOf(t); ok {
		fmt.Fprintf(w, "Category\t%s (%s)\n", l.Label, l.Icon)
	} else {
		fmt.Fprintf(w, "Category\t%s\n", t.Category)
	}
	if l, ok := r.app.AccountOf(t); ok {
		fmt.Fprintf(w, "Account\t%s (%s)\n", l.Label, l.Icon)
	} else {
		fmt.Fprintf(w, "Account\t%s\n", t.Account)
	}
	fmt.Fprintf(w, "Repeating\t%s\n", t.Repeating)
	if t.IsOccurrence() {
		fmt.Fprintf(w, "Generated from\t%d\n", *t.OriginalID)
	}
	fmt.Fprintf(w, "Notes\t%s\n", t.Notes)
	return w.Flush()
}

func (r *runner) notes(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return usageErr("notes: missing id")
	}
	id, err := parseID("notes", args[:1])
	if err != nil {
		return err
	}
	text := joinArgs(args[1:])
	ok, err := r.app.UpdateTransaction(ctx, id, core.TransactionPatch{Notes: &text})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no transaction with id %d", id)
	}
	fmt.Fprintf(r.out, "Notes saved for %d\n", id)
	return nil
}

func (r *runner) update(ctx context.Context, args []string) error {
	fs := newFlagSet("update")
	typ := fs.String("type", "", "income or expense")
	amount := fs.String("amount", "", "amount")
	category := fs.String("category", "", "category label")
	account := fs.String("account", "", "account label")
	date := fs.String("date", "", `date as "DD Month YYYY"`)
	repeat := fs.String("repeat", "", "No, Monthly, Quarterly or Annually")
	notes := fs.String("notes", "", "free text")
	cur := fs.String("currency", "", "currency code")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := parseID("update", fs.Args())
	if err != nil {
		return err
	}

	var patch core.TransactionPatch
	var repErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "type":
			v := core.TransactionType(strings.ToLower(*typ))
			patch.Type = &v
		case "amount":
			patch.Amount = amount
		case "category":
			patch.Category = category
		case "account":
			patch.Account = account
		case "date":
			patch.Date = date
		case "repeat":
			v, err := core.ParseRepetition(*repeat)
			repErr = err
			patch.Repeating = &v
		case "notes":
			patch.Notes = notes
		case "currency":
			patch.Currency = cur
		}
	})
	if repErr != nil {
		return repErr
	}
	if patch.IsEmpty() {
		return usageErr("update: nothing to change")
	}

	ok, err := r.app.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no transaction with id %d", id)
	}
	fmt.Fprintf(r.out, "Updated %d\n", id)
	return nil
}

func (r *runner) remove(ctx context.Context, args []string) error {
	id, err := parseID("remove", args)
	if err != nil {
		return err
	}
	n := r.app.Ledger.Remove(ctx, id)
	if n == 0 {
		fmt.Fprintf(r.out, "No transaction with id %d\n", id)
		return nil
	}
	fmt.Fprintf(r.out, "Removed %d transaction(s)\n", n)
	return nil
}

func (r *runner) export() error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(r.app.Ledger.Transactions())
}

// importFile replaces the ledger with a file written by export. "-" reads stdin.
func (r *runner) importFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageErr("import: expected FILE")
	}
	var in io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	n, err := r.app.ImportTransactions(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Imported %d transaction(s)\n", n)
	return nil
}

func (r *runner) summary(ctx context.Context, args []string) error {
	fs := newFlagSet("summary")
	month := fs.String("month", "", "YYYY-MM, default current month")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	now := time.Now()
	year, m := now.Year(), now.Month()
	if *month != "" {
		var err error
		if year, m, err = parseMonth(*month); err != nil {
			return err
		}
	}

	sum, err := r.app.Summary(ctx, year, m)
	if err != nil {
		return err
	}
	symbol := r.app.Table.SymbolOf(sum.Currency)
	expRatio, incRatio := sum.Ratios()

	fmt.Fprintf(r.out, "%s %d (%s)\n", sum.Month, sum.Year, sum.Currency)
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Income\t%s %s\t\n", symbol, core.FormatAmount(sum.IncomeTotal))
	fmt.Fprintf(w, "Expenses\t%s %s\t\n", symbol, core.FormatAmount(sum.ExpenseTotal))
	fmt.Fprintf(w, "Balance\t%s %s\t\n", symbol, core.FormatAmount(sum.Balance))
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "[%s] %.0f%% spent\n", ratioBar(expRatio, incRatio, ratioBarWidth), expRatio*100)
	if sum.Skipped > 0 {
		fmt.Fprintf(r.out, "%d transaction(s) skipped: unreadable amount\n", sum.Skipped)
	}
	return nil
}

// ratioBar draws the expense share with '#' and the income share with '='.
// An empty month is all dots.
func ratioBar(expense, income float64, width int) string {
	if expense == 0 && income == 0 {
		return strings.Repeat(".", width)
	}
	e := int(math.Round(expense * float64(width)))
	if e > width {
		e = width
	}
	return strings.Repeat("#", e) + strings.Repeat("=", width-e)
}

// formatAmount renders t's amount with the symbol of its effective currency.
func (r *runner) formatAmount(t core.Transaction) string {
	code := r.app.Table.Resolve(t.Currency, "")
	symbol := ""
	if code != "" {
		symbol = r.app.Table.SymbolOf(code) + " "
	}
	v, ok := core.AmountValue(t.Amount)
	if !ok {
		return symbol + t.Amount
	}
	return symbol + core.FormatAmount(v)
}

func parseID(cmd string, args []string) (int64, error) {
	if len(args) != 1 {
		return 0, usageErr("%s: expected one id", cmd)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, usageErr("%s: invalid id %q", cmd, args[0])
	}
	return id, nil
}

func parseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, usageErr("month must look like 2024-01, got %q", s)
	}
	return t.Year(), t.Month(), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
