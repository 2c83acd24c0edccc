package core

import (
	"errors"
	"strings"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	NoRepeat  Repetition = "No"
	Monthly   Repetition = "Monthly"
	Quarterly Repetition = "Quarterly"
	Annually  Repetition = "Annually"
)

type (
	TransactionType string

	Repetition string

	// Transaction is the only persisted ledger record. Field names in JSON
	// match the blob layout written by earlier versions of the app.
	Transaction struct {
		ID         int64           `json:"id"`
		Type       TransactionType `json:"type"`
		Amount     string          `json:"amount"`
		Category   string          `json:"category"`
		CategoryID *int64          `json:"categoryId,omitempty"`
		Date       string          `json:"date"`
		Account    string          `json:"account"`
		AccountID  *int64          `json:"accountId,omitempty"`
		Repeating  Repetition      `json:"repeating"`
		Notes      string          `json:"notes"`
		Currency   string          `json:"currency,omitempty"` // code or display symbol
		OriginalID *int64          `json:"originalId,omitempty"`
	}

	// TransactionPatch lists the fields an update may overwrite. Nil means keep.
	TransactionPatch struct {
		Type       *TransactionType
		Amount     *string
		Category   *string
		CategoryID *int64
		Date       *string
		Account    *string
		AccountID  *int64
		Repeating  *Repetition
		Notes      *string
		Currency   *string
	}

	// Label is a user-editable category or account entry.
	Label struct {
		ID    int64  `json:"id"`
		Icon  string `json:"icon"`
		Label string `json:"label"`
	}
)

var (
	ErrEmptyAmount        = errors.New("amount is required")
	ErrInvalidAmount      = errors.New("amount must be a number greater than zero")
	ErrInvalidType        = errors.New("type must be income or expense")
	ErrInvalidRepetition  = errors.New("repeating must be No, Monthly, Quarterly or Annually")
	ErrInvalidDate        = errors.New("date must look like 02 January 2006")
	ErrEmptyLabel         = errors.New("label cannot be empty")
	ErrDuplicateLabel     = errors.New("label already exists")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters long")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrUnknownCurrency    = errors.New("unknown currency")
	ErrInvalidMonthPeriod = errors.New("month must be between 1 and 12")
)

var validationErrors = []error{
	ErrEmptyAmount, ErrInvalidAmount, ErrInvalidType, ErrInvalidRepetition,
	ErrInvalidDate, ErrEmptyLabel, ErrDuplicateLabel, ErrPasswordMismatch,
	ErrPasswordTooShort, ErrIncorrectPassword, ErrUnknownCurrency, ErrInvalidMonthPeriod,
}

// IsValidation reports whether err comes from rejected user input.
func IsValidation(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// MinPasswordLength is the shortest accepted app password.
const MinPasswordLength = 6

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidType
	}
}

func (r Repetition) Validate() error {
	switch r {
	case NoRepeat, Monthly, Quarterly, Annually:
		return nil
	default:
		return ErrInvalidRepetition
	}
}

// ParseRepetition accepts the stored spelling case-insensitively; empty means No.
func ParseRepetition(s string) (Repetition, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoRepeat, nil
	}
	for _, r := range []Repetition{NoRepeat, Monthly, Quarterly, Annually} {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", ErrInvalidRepetition
}

// IsOccurrence reports whether t was generated from a repeating origin.
func (t Transaction) IsOccurrence() bool {
	return t.OriginalID != nil
}

// Clone returns a copy that shares no pointers with t.
func (t Transaction) Clone() Transaction {
	c := t
	c.CategoryID = cloneID(t.CategoryID)
	c.AccountID = cloneID(t.AccountID)
	c.OriginalID = cloneID(t.OriginalID)
	return c
}

// Apply merges the non-nil patch fields into t.
func (t *Transaction) Apply(p TransactionPatch) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.CategoryID != nil {
		t.CategoryID = cloneID(p.CategoryID)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Account != nil {
		t.Account = *p.Account
	}
	if p.AccountID != nil {
		t.AccountID = cloneID(p.AccountID)
	}
	if p.Repeating != nil {
		t.Repeating = *p.Repeating
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Currency != nil {
		t.Currency = *p.Currency
	}
}

// IsEmpty reports whether the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p == TransactionPatch{}
}

// Validate checks a candidate before it reaches the store. The store itself
// never re-validates.
func (t Transaction) Validate() error {
	if _, err := ParseAmount(t.Amount); err != nil {
		return err
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Repeating.Validate(); err != nil {
		return err
	}
	if _, err := ParseDate(t.Date); err != nil {
		return err
	}
	return nil
}

// Validate checks a category or account entry.
func (l Label) Validate() error {
	if strings.TrimSpace(l.Label) == "" {
		return ErrEmptyLabel
	}
	return nil
}

// ID returns a pointer to id, for optional reference fields.
func ID(id int64) *int64 {
	return &id
}

func cloneID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
