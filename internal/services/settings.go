package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"haushalt/internal/core"
	"haushalt/internal/currency"
	"haushalt/internal/kv"
	"haushalt/internal/log"
)

// SettingsService manages the app password and the default currency.
//
// The password is a local lock, not an account: it is stored as a bcrypt
// hash under kv.KeyPassword. Values written by older versions in plain text
// still verify and are rehashed on the first successful check.
type SettingsService struct {
	kv     kv.Store
	table  *currency.Table
	ledger *TransactionStore
	logger *log.Logger
	cost   int
}

func NewSettingsService(store kv.Store, table *currency.Table, ledger *TransactionStore, logger *log.Logger) *SettingsService {
	if table == nil {
		table = currency.Default()
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SettingsService{
		kv:     store,
		table:  table,
		ledger: ledger,
		logger: logger.WithComponent(log.ComponentSettings),
		cost:   bcrypt.DefaultCost,
	}
}

// PasswordSet reports whether a password is stored.
func (s *SettingsService) PasswordSet(ctx context.Context) (bool, error) {
	v, ok, err := s.kv.Get(ctx, kv.KeyPassword)
	if err != nil {
		return false, err
	}
	return ok && v != "", nil
}

// SetPassword stores a new password after checking length and confirmation.
func (s *SettingsService) SetPassword(ctx context.Context, password, confirm string) error {
	if len(password) < core.MinPasswordLength {
		return core.ErrPasswordTooShort
	}
	if password != confirm {
		return core.ErrPasswordMismatch
	}
	return s.store(ctx, password)
}

// VerifyPassword checks password against the stored one. With no password
// stored every input verifies.
func (s *SettingsService) VerifyPassword(ctx context.Context, password string) (bool, error) {
	stored, ok, err := s.kv.Get(ctx, kv.KeyPassword)
	if err != nil {
		return false, err
	}
	if !ok || stored == "" {
		return true, nil
	}

	if isBcryptHash(stored) {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("compare password: %w", err)
		}
		return true, nil
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return false, nil
	}
	if err := s.store(ctx, password); err != nil {
		s.logger.WarnContext(ctx, "Failed to upgrade legacy password",
			log.NewFields().WithError(err, log.ErrorTypeDatabase).ToSlice()...)
	} else {
		s.logger.InfoContext(ctx, "Legacy password upgraded to bcrypt")
	}
	return true, nil
}

// ChangePassword replaces the password once current verifies.
func (s *SettingsService) ChangePassword(ctx context.Context, current, password, confirm string) error {
	ok, err := s.VerifyPassword(ctx, current)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrIncorrectPassword
	}
	return s.SetPassword(ctx, password, confirm)
}

// RemovePassword deletes the stored password (emergency unlock).
func (s *SettingsService) RemovePassword(ctx context.Context) error {
	if err := s.kv.Remove(ctx, kv.KeyPassword); err != nil {
		return err
	}
	s.logger.WarnContext(ctx, "App password removed")
	return nil
}

// DefaultCurrency returns the configured currency code, EUR when none is
// stored or the stored value is unknown. The stored value is normally a
// display symbol.
func (s *SettingsService) DefaultCurrency(ctx context.Context) string {
	v, ok, err := s.kv.Get(ctx, kv.KeyDefaultCurrency)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to read default currency",
			log.NewFields().WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return currency.DefaultCode
	}
	if !ok {
		return currency.DefaultCode
	}
	return s.table.Resolve(v, currency.DefaultCode)
}

// SetDefaultCurrency stores code as its display symbol. When the symbol is
// shared with an earlier table entry (CNY and JPY are both ¥) the code is
// stored instead so it reads back unchanged.
func (s *SettingsService) SetDefaultCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if _, ok := s.table.Lookup(code); !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownCurrency, code)
	}
	value := s.table.SymbolOf(code)
	if first, _ := s.table.CodeOf(value); first != code {
		value = code
	}
	if err := s.kv.Set(ctx, kv.KeyDefaultCurrency, value); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Default currency changed", log.FieldCurrency, code)
	return nil
}

// DeleteAllUserData removes transactions, password and default currency,
// then empties the in-memory ledger. Category and account lists are kept.
func (s *SettingsService) DeleteAllUserData(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, key := range []string{kv.KeyTransactions, kv.KeyPassword, kv.KeyDefaultCurrency} {
		key := key
		g.Go(func() error {
			return s.kv.Remove(gctx, key)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("delete user data: %w", err)
	}
	if s.ledger != nil {
		s.ledger.Clear(ctx)
	}
	s.logger.WarnContext(ctx, "All user data deleted")
	return nil
}

func (s *SettingsService) store(ctx context.Context, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.kv.Set(ctx, kv.KeyPassword, string(hash))
}

func isBcryptHash(v string) bool {
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$")
}
