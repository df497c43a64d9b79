package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tablesidehq/tableside-backend/pkg/config"
	"github.com/tablesidehq/tableside-backend/pkg/kv"
)

const keyPrefix = "ts:session:"

// Manager binds a guest session to at most one table and one active order,
// and carries the two one-shot flags used around the payment redirect.
// Table bindings are durable; the order binding and the flags expire.
type Manager struct {
	store    kv.Store
	orderTTL time.Duration
	flagTTL  time.Duration
}

// NewManager constructs a session manager over the provided store.
func NewManager(store kv.Store, cfg config.SessionConfig) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("kv store is required")
	}
	if cfg.OrderTTL <= 0 {
		return nil, fmt.Errorf("order ttl must be positive")
	}
	if cfg.FlagTTL <= 0 {
		return nil, fmt.Errorf("flag ttl must be positive")
	}
	return &Manager{store: store, orderTTL: cfg.OrderTTL, flagTTL: cfg.FlagTTL}, nil
}

func tableKey(sessionID string) string { return keyPrefix + sessionID + ":table" }
func orderKey(sessionID string) string { return keyPrefix + sessionID + ":order" }
func checkoutFlagKey(sessionID string) string {
	return keyPrefix + sessionID + ":checkout_initiated"
}
func paymentFlagKey(sessionID string) string {
	return keyPrefix + sessionID + ":payment_success"
}

// SaveTable binds the session to a table, set once by the QR landing flow.
func (m *Manager) SaveTable(ctx context.Context, sessionID string, tableID int64) error {
	if tableID <= 0 {
		return fmt.Errorf("table id must be positive")
	}
	return m.store.Set(ctx, tableKey(sessionID), strconv.FormatInt(tableID, 10), 0)
}

// TableID returns the bound table id, or ok=false when absent.
func (m *Manager) TableID(ctx context.Context, sessionID string) (int64, bool, error) {
	return m.readID(ctx, tableKey(sessionID))
}

// SaveOrder caches the active order id resolved by the backend. The client
// never fabricates order ids; this is only written with backend responses.
func (m *Manager) SaveOrder(ctx context.Context, sessionID string, orderID int64) error {
	if orderID <= 0 {
		return fmt.Errorf("order id must be positive")
	}
	return m.store.Set(ctx, orderKey(sessionID), strconv.FormatInt(orderID, 10), m.orderTTL)
}

// OrderID returns the cached order id. Absent or non-numeric values read as
// not present.
func (m *Manager) OrderID(ctx context.Context, sessionID string) (int64, bool, error) {
	return m.readID(ctx, orderKey(sessionID))
}

// HasOrder reports whether an order id is cached for the session.
func (m *Manager) HasOrder(ctx context.Context, sessionID string) (bool, error) {
	_, ok, err := m.OrderID(ctx, sessionID)
	return ok, err
}

// ClearOrder removes only the order binding, after checkout or payment.
func (m *Manager) ClearOrder(ctx context.Context, sessionID string) error {
	return m.store.Del(ctx, orderKey(sessionID))
}

// ClearAll resets the whole session context: table, order, and both flags.
// Used by the administrative logout flow.
func (m *Manager) ClearAll(ctx context.Context, sessionID string) error {
	return m.store.Del(ctx,
		tableKey(sessionID),
		orderKey(sessionID),
		checkoutFlagKey(sessionID),
		paymentFlagKey(sessionID),
	)
}

// MarkCheckoutInitiated records that the guest reached the payment step for
// this specific order id.
func (m *Manager) MarkCheckoutInitiated(ctx context.Context, sessionID string, orderID int64) error {
	return m.store.Set(ctx, checkoutFlagKey(sessionID), strconv.FormatInt(orderID, 10), m.flagTTL)
}

// IsCheckoutInitiated reports whether the flag exists for exactly this order
// id, without consuming it. A flag set for a different order never matches.
func (m *Manager) IsCheckoutInitiated(ctx context.Context, sessionID string, orderID int64) (bool, error) {
	stored, ok, err := m.readID(ctx, checkoutFlagKey(sessionID))
	if err != nil || !ok {
		return false, err
	}
	return stored == orderID, nil
}

// ConsumeCheckoutInitiated reads the flag, deletes it, and reports whether
// it matched the given order id.
func (m *Manager) ConsumeCheckoutInitiated(ctx context.Context, sessionID string, orderID int64) (bool, error) {
	stored, ok, err := m.readID(ctx, checkoutFlagKey(sessionID))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := m.store.Del(ctx, checkoutFlagKey(sessionID)); err != nil {
		return false, err
	}
	return stored == orderID, nil
}

// MarkPaymentSuccess sets the one-shot flag the menu landing page consumes
// to show the confirmation exactly once.
func (m *Manager) MarkPaymentSuccess(ctx context.Context, sessionID string, orderID int64) error {
	return m.store.Set(ctx, paymentFlagKey(sessionID), strconv.FormatInt(orderID, 10), m.flagTTL)
}

// ConsumePaymentSuccess returns the order id the flag was set for and clears
// it; the second call reports ok=false.
func (m *Manager) ConsumePaymentSuccess(ctx context.Context, sessionID string) (int64, bool, error) {
	stored, ok, err := m.readID(ctx, paymentFlagKey(sessionID))
	if err != nil || !ok {
		return 0, false, err
	}
	if err := m.store.Del(ctx, paymentFlagKey(sessionID)); err != nil {
		return 0, false, err
	}
	return stored, true, nil
}

func (m *Manager) readID(ctx context.Context, key string) (int64, bool, error) {
	raw, err := m.store.Get(ctx, key)
	if err != nil {
		if err == kv.ErrNotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false, nil
	}
	return id, true, nil
}
