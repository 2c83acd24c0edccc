package services

import (
	"time"

	"haushalt/internal/core"
	"haushalt/internal/currency"
)

// Aggregator computes monthly totals. It holds no state between calls and
// nothing is cached: every call walks the list it is given.
type Aggregator struct {
	Table *currency.Table
	// DefaultCurrency applies to transactions without their own currency.
	// Empty means the target currency.
	DefaultCurrency string
}

// Aggregate sums income and expenses dated in year/month, converted into
// target. A transaction's currency may be a code or a display symbol.
// Records with an unreadable date are outside every month; records with an
// unreadable amount are counted in Skipped and left out of the totals.
func (a Aggregator) Aggregate(txs []core.Transaction, year int, month time.Month, target string) core.MonthlySummary {
	table := a.Table
	if table == nil {
		table = currency.Default()
	}
	fallback := a.DefaultCurrency
	if fallback == "" {
		fallback = target
	}

	sum := core.MonthlySummary{Year: year, Month: month, Currency: target}
	for _, t := range txs {
		d, err := core.ParseDate(t.Date)
		if err != nil || !d.In(year, month) {
			continue
		}
		if t.Type != core.Income && t.Type != core.Expense {
			continue
		}
		v, ok := core.AmountValue(t.Amount)
		if !ok {
			sum.Skipped++
			continue
		}
		v = table.Convert(v, table.Resolve(t.Currency, fallback), target)
		if t.Type == core.Income {
			sum.IncomeTotal += v
		} else {
			sum.ExpenseTotal += v
		}
		sum.Count++
	}
	sum.Balance = sum.IncomeTotal - sum.ExpenseTotal
	return sum
}
