package core

import "time"

// MonthlySummary holds income and expense totals for one calendar month,
// expressed in a single currency.
type MonthlySummary struct {
	Year         int
	Month        time.Month
	Currency     string
	IncomeTotal  float64
	ExpenseTotal float64
	Balance      float64
	Count        int // transactions that contributed
	Skipped      int // transactions whose amount could not be read
}

// Ratios splits a progress bar between expenses and income.
//
// With income, the expense share is expense/income capped at 1. Without
// income but with expenses the bar is all expense. With neither, both are 0.
func (s MonthlySummary) Ratios() (expenseRatio, incomeRatio float64) {
	switch {
	case s.IncomeTotal > 0:
		expenseRatio = s.ExpenseTotal / s.IncomeTotal
		if expenseRatio > 1 {
			expenseRatio = 1
		}
		return expenseRatio, 1 - expenseRatio
	case s.ExpenseTotal > 0:
		return 1, 0
	default:
		return 0, 0
	}
}
