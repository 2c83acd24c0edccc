package services

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"haushalt/internal/core"
	"haushalt/internal/kv"
	"haushalt/internal/log"
)

// DefaultCategories is used until the user saves their own list.
func DefaultCategories() []core.Label {
	return []core.Label{
		{ID: 1, Icon: "cash-outline", Label: "Gehälter"},
		{ID: 2, Icon: "cart-outline", Label: "Lebensmittel"},
		{ID: 3, Icon: "car-outline", Label: "Gas"},
		{ID: 4, Icon: "home-outline", Label: "Miete"},
		{ID: 5, Icon: "barbell-outline", Label: "Fitnessstudio"},
		{ID: 6, Icon: "restaurant-outline", Label: "Restaurant"},
		{ID: 7, Icon: "airplane-outline", Label: "Urlaub"},
		{ID: 8, Icon: "bus-outline", Label: "Reisen"},
		{ID: 9, Icon: "gift-outline", Label: "Geschenk"},
		{ID: 10, Icon: "trending-up-outline", Label: "Investitionen"},
		{ID: 11, Icon: "wallet-outline", Label: "Ersparnisse"},
		{ID: 12, Icon: "tv-outline", Label: "Unterhaltung"},
		{ID: 13, Icon: "cafe-outline", Label: "Kaffee"},
		{ID: 14, Icon: "wifi-outline", Label: "Internet"},
		{ID: 15, Icon: "car-outline", Label: "Taxi"},
	}
}

// DefaultAccounts is used until the user saves their own list.
func DefaultAccounts() []core.Label {
	return []core.Label{{ID: 1, Icon: "wallet-outline", Label: "Personal"}}
}

const (
	DefaultCategoryIcon = "home-outline"
	DefaultAccountIcon  = "wallet-outline"
)

// LabelService manages one user-editable label list (categories or
// accounts) stored as a JSON array under a fixed key.
type LabelService struct {
	mu          sync.RWMutex
	kv          kv.Store
	key         string
	defaults    []core.Label
	defaultIcon string
	ids         IDGenerator
	logger      *log.Logger
	labels      []core.Label
}

func NewLabelService(store kv.Store, key string, defaults []core.Label, defaultIcon string, ids IDGenerator, logger *log.Logger) *LabelService {
	if ids == nil {
		ids = NewClockIDs(nil)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LabelService{
		kv:          store,
		key:         key,
		defaults:    defaults,
		defaultIcon: defaultIcon,
		ids:         ids,
		logger:      logger.WithComponent(log.ComponentLabels).With(log.FieldKey, key),
		labels:      append([]core.Label(nil), defaults...),
	}
}

// NewCategoryService binds a LabelService to kv.KeyCategories.
func NewCategoryService(store kv.Store, ids IDGenerator, logger *log.Logger) *LabelService {
	return NewLabelService(store, kv.KeyCategories, DefaultCategories(), DefaultCategoryIcon, ids, logger)
}

// NewAccountService binds a LabelService to kv.KeyAccounts.
func NewAccountService(store kv.Store, ids IDGenerator, logger *log.Logger) *LabelService {
	return NewLabelService(store, kv.KeyAccounts, DefaultAccounts(), DefaultAccountIcon, ids, logger)
}

// Load reads the saved list. Missing, unreadable or undecodable data falls
// back to the defaults. Only a cancelled context is returned.
func (s *LabelService) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	labels := append([]core.Label(nil), s.defaults...)
	switch {
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to read labels, using defaults",
			log.NewFields().WithOperation(log.OpLoad).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
	case ok && raw != "":
		var saved []core.Label
		if err := json.Unmarshal([]byte(raw), &saved); err != nil {
			s.logger.ErrorContext(ctx, "Failed to decode labels, using defaults",
				log.NewFields().WithOperation(log.OpLoad).WithError(err, log.ErrorTypeDecode).ToSlice()...)
		} else {
			labels = saved
		}
	}
	for _, l := range labels {
		s.ids.Observe(l.ID)
	}

	s.mu.Lock()
	s.labels = labels
	s.mu.Unlock()
	return nil
}

// List returns the labels in stored order.
func (s *LabelService) List() []core.Label {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Label(nil), s.labels...)
}

// Search returns labels containing query, case-insensitively.
func (s *LabelService) Search(query string) []core.Label {
	q := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Label
	for _, l := range s.labels {
		if strings.Contains(strings.ToLower(l.Label), q) {
			out = append(out, l)
		}
	}
	return out
}

// Find looks a label up by id first and by label text second, so records
// written before ids were stored still resolve.
func (s *LabelService) Find(id *int64, label string) (core.Label, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id != nil {
		for _, l := range s.labels {
			if l.ID == *id {
				return l, true
			}
		}
	}
	for _, l := range s.labels {
		if l.Label == label {
			return l, true
		}
	}
	return core.Label{}, false
}

// Create appends a new label. The label is trimmed; empty and duplicate
// (case-insensitive) labels are rejected. An empty icon uses the default.
func (s *LabelService) Create(ctx context.Context, label, icon string) (core.Label, error) {
	label = strings.TrimSpace(label)
	if icon == "" {
		icon = s.defaultIcon
	}
	l := core.Label{Label: label, Icon: icon}
	if err := l.Validate(); err != nil {
		return core.Label{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.duplicateLocked(label, nil) {
		return core.Label{}, core.ErrDuplicateLabel
	}
	l.ID = s.ids.Next()
	s.labels = append(s.labels, l)
	s.logger.InfoContext(ctx, "Label created", log.FieldLabel, l.Label)
	return l, s.persistLocked(ctx, log.OpCreate)
}

// Edit renames and re-icons the label with id. Reports false for an unknown id.
func (s *LabelService) Edit(ctx context.Context, id int64, label, icon string) (bool, error) {
	label = strings.TrimSpace(label)
	if err := (core.Label{Label: label}).Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false, nil
	}
	if s.duplicateLocked(label, &id) {
		return false, core.ErrDuplicateLabel
	}
	s.labels[idx].Label = label
	if icon != "" {
		s.labels[idx].Icon = icon
	}
	return true, s.persistLocked(ctx, log.OpUpdate)
}

// Delete removes the label with id. Transactions keep their copied label.
func (s *LabelService) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false, nil
	}
	s.labels = append(s.labels[:idx:idx], s.labels[idx+1:]...)
	return true, s.persistLocked(ctx, log.OpDelete)
}

func (s *LabelService) indexLocked(id int64) int {
	for i, l := range s.labels {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (s *LabelService) duplicateLocked(label string, except *int64) bool {
	for _, l := range s.labels {
		if except != nil && l.ID == *except {
			continue
		}
		if strings.EqualFold(l.Label, label) {
			return true
		}
	}
	return false
}

// persistLocked writes the list. The in-memory change stands even when the
// write fails; the error is returned so the caller can tell the user.
func (s *LabelService) persistLocked(ctx context.Context, op string) error {
	b, err := json.Marshal(s.labels)
	if err != nil {
		return kv.Wrap(kv.OpEncode, s.key, err)
	}
	if err := s.kv.Set(ctx, s.key, string(b)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save labels",
			log.NewFields().WithOperation(op).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return err
	}
	return nil
}
