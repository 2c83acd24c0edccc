// Package currency holds the static exchange-rate and symbol table used to
// express amounts in a single currency.
//
// Rates are "units of code per 1 US dollar". They are fixed; nothing here
// fetches live rates.
package currency

import "strings"

// Entry is one row of the table.
type Entry struct {
	Code   string
	Symbol string
	Name   string
	Rate   float64
}

// Table is an ordered, read-only set of currencies. Order matters for
// CodeOf, where several codes share a symbol.
type Table struct {
	entries []Entry
	byCode  map[string]int
}

var defaultEntries = []Entry{
	{Code: "USD", Symbol: "$", Name: "US Dollar", Rate: 1.00},
	{Code: "EUR", Symbol: "€", Name: "Euro", Rate: 0.92},
	{Code: "GBP", Symbol: "£", Name: "British Pound Sterling", Rate: 0.77},
	{Code: "JPY", Symbol: "¥", Name: "Japanese Yen", Rate: 156.93},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", Rate: 83.97},
	{Code: "RUB", Symbol: "₽", Name: "Russian Ruble", Rate: 88.31},
	{Code: "MXN", Symbol: "MX$", Name: "Mexican Peso", Rate: 19.17},
	{Code: "CHF", Symbol: "CHF", Name: "Swiss Franc", Rate: 0.89},
	{Code: "CNY", Symbol: "¥", Name: "Chinese Yuan", Rate: 7.09},
	{Code: "SEK", Symbol: "kr", Name: "Swedish Krona", Rate: 10.18},
	{Code: "NZD", Symbol: "NZ$", Name: "New Zealand Dollar", Rate: 1.49},
	{Code: "KRW", Symbol: "₩", Name: "South Korean Won", Rate: 1363.94},
	{Code: "BRL", Symbol: "R$", Name: "Brazilian Real", Rate: 5.04},
	{Code: "ZAR", Symbol: "R", Name: "South African Rand", Rate: 18.95},
}

// DefaultCode is used when no default currency has been configured.
const DefaultCode = "EUR"

// Default returns the built-in table.
func Default() *Table {
	return NewTable(defaultEntries)
}

// NewTable builds a table from entries; later duplicates of a code are ignored.
func NewTable(entries []Entry) *Table {
	t := &Table{
		entries: make([]Entry, 0, len(entries)),
		byCode:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.byCode[e.Code]; dup {
			continue
		}
		t.byCode[e.Code] = len(t.entries)
		t.entries = append(t.entries, e)
	}
	return t
}

// Lookup returns the entry for code.
func (t *Table) Lookup(code string) (Entry, bool) {
	i, ok := t.byCode[code]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// RateOf returns the number of code units per base unit.
func (t *Table) RateOf(code string) (float64, bool) {
	e, ok := t.Lookup(code)
	if !ok {
		return 0, false
	}
	return e.Rate, true
}

// SymbolOf returns the display symbol, or code itself when unknown.
func (t *Table) SymbolOf(code string) string {
	if e, ok := t.Lookup(code); ok {
		return e.Symbol
	}
	return code
}

// CodeOf is the reverse of SymbolOf. When several codes share a symbol
// (¥ is both JPY and CNY) the first one in table order wins.
func (t *Table) CodeOf(symbol string) (string, bool) {
	for _, e := range t.entries {
		if e.Symbol == symbol {
			return e.Code, true
		}
	}
	return "", false
}

// Convert expresses amount, given in from, in to. If either currency is
// missing from the table the amount is returned unchanged.
func (t *Table) Convert(amount float64, from, to string) float64 {
	fromRate, ok := t.RateOf(from)
	if !ok || fromRate == 0 {
		return amount
	}
	toRate, ok := t.RateOf(to)
	if !ok {
		return amount
	}
	return amount / fromRate * toRate
}

// Resolve turns a stored currency value into a code. Older records store
// the display symbol rather than the code, so both are accepted. Blank or
// unrecognised values resolve to fallback.
func (t *Table) Resolve(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if _, ok := t.Lookup(strings.ToUpper(value)); ok {
		return strings.ToUpper(value)
	}
	if code, ok := t.CodeOf(value); ok {
		return code
	}
	return fallback
}

// Codes lists the currency codes in table order.
func (t *Table) Codes() []string {
	codes := make([]string, len(t.entries))
	for i, e := range t.entries {
		codes[i] = e.Code
	}
	return codes
}
