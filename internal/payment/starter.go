package payment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tablesidehq/tableside-backend/internal/orderapi"
	"github.com/tablesidehq/tableside-backend/pkg/config"
	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
)

type paymentBackend interface {
	CreatePaymentOrder(ctx context.Context, orderID int64, amount string, currency string) (*orderapi.PaymentOrder, error)
	CapturePayment(ctx context.Context, token string, orderID int64) (*orderapi.CaptureResult, error)
	CompleteOrder(ctx context.Context, orderID int64) error
}

// Converter applies the fixed display-to-settlement currency rate. Menu
// prices are shown in the display currency; the provider settles in its own.
type Converter struct {
	rate               decimal.Decimal
	displayCurrency    string
	settlementCurrency string
}

// NewConverter parses the configured conversion rate.
func NewConverter(cfg config.PaymentConfig) (*Converter, error) {
	rate, err := decimal.NewFromString(cfg.ConversionRate)
	if err != nil {
		return nil, fmt.Errorf("parse conversion rate %q: %w", cfg.ConversionRate, err)
	}
	if rate.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("conversion rate must be positive, got %s", rate)
	}
	return &Converter{
		rate:               rate,
		displayCurrency:    cfg.DisplayCurrency,
		settlementCurrency: cfg.SettlementCurrency,
	}, nil
}

// ToSettlement converts a display-currency amount, rounded to cents.
func (c *Converter) ToSettlement(displayAmount decimal.Decimal) decimal.Decimal {
	return displayAmount.Mul(c.rate).Round(2)
}

// SettlementCurrency is the provider-side currency code.
func (c *Converter) SettlementCurrency() string {
	return c.settlementCurrency
}

// Starter opens a provider payment order for a backend order and hands back
// the approval URL the guest is redirected to.
type Starter struct {
	backend   paymentBackend
	converter *Converter
}

// NewStarter builds the payment starter.
func NewStarter(backend paymentBackend, converter *Converter) (*Starter, error) {
	if backend == nil {
		return nil, fmt.Errorf("payment backend required")
	}
	if converter == nil {
		return nil, fmt.Errorf("converter required")
	}
	return &Starter{backend: backend, converter: converter}, nil
}

// Start converts the display amount and creates the provider payment order.
func (s *Starter) Start(ctx context.Context, orderID int64, displayAmount decimal.Decimal) (string, error) {
	if displayAmount.LessThanOrEqual(decimal.Zero) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	amount := s.converter.ToSettlement(displayAmount)
	order, err := s.backend.CreatePaymentOrder(ctx, orderID, amount.StringFixed(2), s.converter.SettlementCurrency())
	if err != nil {
		return "", err
	}
	if order.ApproveURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "payment provider returned no approval url")
	}
	return order.ApproveURL, nil
}
