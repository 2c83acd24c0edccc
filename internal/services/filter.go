package services

import (
	"math"
	"sort"
	"strings"
	"time"

	"haushalt/internal/core"
)

// SortBy orders filtered transactions.
type SortBy string

const (
	SortByDate   SortBy = "date"
	SortByAmount SortBy = "amount"
)

// TransactionFilter narrows the list for the overview screen. Zero values
// disable each criterion.
type TransactionFilter struct {
	Query      string               // matched case-insensitively against category and notes
	Type       core.TransactionType // empty means both
	Categories []string             // exact labels
	Year       int
	Month      time.Month // 0 disables the month filter
	MinAmount  float64
	MaxAmount  float64 // 0 means unbounded
	SortBy     SortBy
}

// Apply returns the matching transactions in ascending date (default) or
// amount order. Ties keep insertion order.
func (f TransactionFilter) Apply(txs []core.Transaction) []core.Transaction {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	cats := make(map[string]struct{}, len(f.Categories))
	for _, c := range f.Categories {
		cats[c] = struct{}{}
	}
	maxAmount := f.MaxAmount
	if maxAmount <= 0 {
		maxAmount = math.MaxFloat64
	}
	rangeSet := f.MinAmount > 0 || f.MaxAmount > 0

	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Category), q) &&
			!strings.Contains(strings.ToLower(t.Notes), q) {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if len(cats) > 0 {
			if _, ok := cats[t.Category]; !ok {
				continue
			}
		}
		if f.Month != 0 {
			d, err := core.ParseDate(t.Date)
			if err != nil || !d.In(f.Year, f.Month) {
				continue
			}
		}
		if rangeSet {
			v, ok := core.AmountValue(t.Amount)
			if !ok || v < f.MinAmount || v > maxAmount {
				continue
			}
		}
		out = append(out, t.Clone())
	}

	switch f.SortBy {
	case SortByAmount:
		sort.SliceStable(out, func(i, j int) bool {
			return amountKey(out[i]) < amountKey(out[j])
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return dateKey(out[i]).Before(dateKey(out[j]))
		})
	}
	return out
}

func amountKey(t core.Transaction) float64 {
	v, _ := core.AmountValue(t.Amount)
	return v
}

// dateKey sorts unreadable dates first.
func dateKey(t core.Transaction) time.Time {
	d, err := core.ParseDate(t.Date)
	if err != nil {
		return time.Time{}
	}
	return d.Time
}
