package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
	"github.com/tablesidehq/tableside-backend/pkg/kv"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

const keyPrefix = "ts:cart:"

// Service maintains the per-session cart as a single JSON document in the
// key-value store. Reads never fail: a missing or corrupt document is an
// empty cart.
type Service interface {
	Get(ctx context.Context, sessionID string) []Line
	Add(ctx context.Context, sessionID string, line Line) ([]Line, error)
	UpdateQuantity(ctx context.Context, sessionID string, itemID int64, sizeID string, quantity int) ([]Line, error)
	Remove(ctx context.Context, sessionID string, itemID int64, sizeID string) ([]Line, error)
	Clear(ctx context.Context, sessionID string) error
	Total(ctx context.Context, sessionID string) decimal.Decimal
	ItemCount(ctx context.Context, sessionID string) int
}

type service struct {
	store kv.Store
	logg  *logger.Logger
}

// NewService builds a cart service backed by the provided store.
func NewService(store kv.Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	return &service{store: store, logg: logg}, nil
}

func storageKey(sessionID string) string {
	return keyPrefix + sessionID
}

// Get returns the cart lines in insertion order. Storage failures and
// corrupt payloads degrade to an empty cart rather than erroring.
func (s *service) Get(ctx context.Context, sessionID string) []Line {
	raw, err := s.store.Get(ctx, storageKey(sessionID))
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) && s.logg != nil {
			s.logg.Warn(s.logg.WithSessionID(ctx, sessionID), "cart.read_failed")
		}
		return []Line{}
	}

	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithSessionID(ctx, sessionID), "cart.corrupt_payload")
		}
		return []Line{}
	}
	if lines == nil {
		return []Line{}
	}
	return lines
}

// Add appends a new line or increments the quantity of the line with the
// same (item, size) key, then persists the whole cart.
func (s *service) Add(ctx context.Context, sessionID string, line Line) ([]Line, error) {
	if line.ItemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	if line.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if line.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}

	lines := s.Get(ctx, sessionID)
	found := false
	for i := range lines {
		if lines[i].Key() == line.Key() {
			lines[i].Quantity += line.Quantity
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, line)
	}

	if err := s.persist(ctx, sessionID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// UpdateQuantity sets the quantity of the matching line exactly; zero or
// negative removes it. A missing line is a no-op.
func (s *service) UpdateQuantity(ctx context.Context, sessionID string, itemID int64, sizeID string, quantity int) ([]Line, error) {
	key := LineKey(itemID, sizeID)
	lines := s.Get(ctx, sessionID)

	idx := -1
	for i := range lines {
		if lines[i].Key() == key {
			idx = i
			break
		}
	}
	if idx == -1 {
		return lines, nil
	}

	if quantity <= 0 {
		lines = append(lines[:idx], lines[idx+1:]...)
	} else {
		lines[idx].Quantity = quantity
	}

	if err := s.persist(ctx, sessionID, lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// Remove drops the matching line; removing an absent line is a no-op.
func (s *service) Remove(ctx context.Context, sessionID string, itemID int64, sizeID string) ([]Line, error) {
	key := LineKey(itemID, sizeID)
	lines := s.Get(ctx, sessionID)

	kept := lines[:0]
	for _, line := range lines {
		if line.Key() != key {
			kept = append(kept, line)
		}
	}
	if len(kept) == len(lines) {
		return lines, nil
	}

	if err := s.persist(ctx, sessionID, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// Clear empties the cart document.
func (s *service) Clear(ctx context.Context, sessionID string) error {
	if err := s.store.Del(ctx, storageKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Total sums unit price times quantity across all lines.
func (s *service) Total(ctx context.Context, sessionID string) decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Get(ctx, sessionID) {
		total = total.Add(line.Subtotal())
	}
	return total
}

// ItemCount sums quantities, not line count.
func (s *service) ItemCount(ctx context.Context, sessionID string) int {
	count := 0
	for _, line := range s.Get(ctx, sessionID) {
		count += line.Quantity
	}
	return count
}

func (s *service) persist(ctx context.Context, sessionID string, lines []Line) error {
	payload, err := json.Marshal(lines)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.store.Set(ctx, storageKey(sessionID), string(payload), 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}
