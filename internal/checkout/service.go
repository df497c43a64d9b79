package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/tablesidehq/tableside-backend/internal/cart"
	"github.com/tablesidehq/tableside-backend/internal/orderapi"
	"github.com/tablesidehq/tableside-backend/pkg/enums"
	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
	"github.com/tablesidehq/tableside-backend/pkg/kv"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
	"github.com/tablesidehq/tableside-backend/pkg/metrics"
)

const summaryKeyPrefix = "ts:session:"

type backendClient interface {
	GetOrCreateActiveOrder(ctx context.Context, tableID int64) (*orderapi.ActiveOrder, error)
	AddOrderItem(ctx context.Context, req orderapi.AddOrderItemRequest) error
	UpdateOrderTotal(ctx context.Context, orderID int64) error
}

type sessionManager interface {
	TableID(ctx context.Context, sessionID string) (int64, bool, error)
	OrderID(ctx context.Context, sessionID string) (int64, bool, error)
	SaveOrder(ctx context.Context, sessionID string, orderID int64) error
	ClearOrder(ctx context.Context, sessionID string) error
	MarkCheckoutInitiated(ctx context.Context, sessionID string, orderID int64) error
}

type paymentStarter interface {
	Start(ctx context.Context, orderID int64, displayAmount decimal.Decimal) (approveURL string, err error)
}

// Input carries the guest's checkout choices.
type Input struct {
	PaymentMethod enums.PaymentMethod
}

// LineFailure pairs a cart line with the reason its submission failed.
type LineFailure struct {
	Line   cart.Line `json:"line"`
	Reason string    `json:"reason"`
}

// Result is the caller-facing outcome of a checkout submission.
type Result struct {
	Outcome       enums.CheckoutOutcome `json:"outcome"`
	OrderID       int64                 `json:"order_id"`
	TableID       int64                 `json:"table_id"`
	Items         []cart.Line           `json:"items"`
	Total         decimal.Decimal       `json:"total"`
	PaymentMethod enums.PaymentMethod   `json:"payment_method"`
	Failed        []LineFailure         `json:"failed,omitempty"`
	ApproveURL    string                `json:"approve_url,omitempty"`
}

// Summary is the snapshot written to transient storage on full success so
// the post-checkout page can render without refetching.
type Summary struct {
	OrderID       int64               `json:"order_id"`
	TableID       int64               `json:"table_id"`
	Items         []cart.Line         `json:"items"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	SubmittedAt   time.Time           `json:"submitted_at"`
}

// Service moves the local cart into backend order items, tolerating
// per-line failure, and clears local state only on full success.
type Service interface {
	Execute(ctx context.Context, sessionID string, input Input) (*Result, error)
	LoadSummary(ctx context.Context, sessionID string) (*Summary, error)
}

type service struct {
	carts      cart.Service
	sessions   sessionManager
	backend    backendClient
	payments   paymentStarter
	store      kv.Store
	logg       *logger.Logger
	metrics    *metrics.CheckoutMetrics
	summaryTTL time.Duration
	now        func() time.Time
}

// NewService builds the checkout orchestrator.
func NewService(
	carts cart.Service,
	sessions sessionManager,
	backend backendClient,
	payments paymentStarter,
	store kv.Store,
	logg *logger.Logger,
	checkoutMetrics *metrics.CheckoutMetrics,
	summaryTTL time.Duration,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager required")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if store == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if summaryTTL <= 0 {
		summaryTTL = 30 * time.Minute
	}
	return &service{
		carts:      carts,
		sessions:   sessions,
		backend:    backend,
		payments:   payments,
		store:      store,
		logg:       logg,
		metrics:    checkoutMetrics,
		summaryTTL: summaryTTL,
		now:        time.Now,
	}, nil
}

func summaryKey(sessionID string) string {
	return summaryKeyPrefix + sessionID + ":checkout_summary"
}

func (s *service) Execute(ctx context.Context, sessionID string, input Input) (*Result, error) {
	start := s.now()

	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCash
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", method))
	}
	if method == enums.PaymentMethodPayPal && s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment provider not configured")
	}

	lines := s.carts.Get(ctx, sessionID)
	tableID, hasTable, err := s.sessions.TableID(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read session")
	}

	// Collect every violation before touching the backend.
	if err := validate(lines, hasTable); err != nil {
		s.observe("rejected", start)
		return nil, err
	}

	orderID, err := s.resolveOrder(ctx, sessionID, tableID)
	if err != nil {
		return nil, err
	}
	ctx = s.withOrderFields(ctx, sessionID, tableID, orderID)

	submitted, failed := s.submitLines(ctx, orderID, lines)

	switch {
	case len(submitted) == 0 && len(failed) > 0:
		s.observe("failed", start)
		return nil, allFailedError(failed)
	case len(failed) > 0:
		// Partial success: keep the cart and session untouched so the
		// guest can retry the failed lines.
		if s.logg != nil {
			s.logg.Warn(ctx, "checkout.partial_failure")
		}
		s.observe(enums.CheckoutOutcomePartial.String(), start)
		return &Result{
			Outcome:       enums.CheckoutOutcomePartial,
			OrderID:       orderID,
			TableID:       tableID,
			Items:         submitted,
			Total:         totalOf(submitted),
			PaymentMethod: method,
			Failed:        failed,
		}, nil
	}

	if err := s.backend.UpdateOrderTotal(ctx, orderID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order total")
	}

	total := totalOf(lines)
	if err := s.writeSummary(ctx, sessionID, orderID, tableID, lines, total, method); err != nil && s.logg != nil {
		// The summary is a convenience; losing it must not fail checkout.
		s.logg.Warn(ctx, "checkout.summary_write_failed")
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		return nil, err
	}

	result := &Result{
		Outcome:       enums.CheckoutOutcomeCompleted,
		OrderID:       orderID,
		TableID:       tableID,
		Items:         lines,
		Total:         total,
		PaymentMethod: method,
	}

	if method == enums.PaymentMethodPayPal {
		// The order binding must survive the redirect; the return handler
		// reads it back and clears it after completion.
		if err := s.sessions.MarkCheckoutInitiated(ctx, sessionID, orderID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark checkout initiated")
		}
		approveURL, err := s.payments.Start(ctx, orderID, total)
		if err != nil {
			return nil, err
		}
		result.Outcome = enums.CheckoutOutcomeRedirect
		result.ApproveURL = approveURL
		if s.logg != nil {
			s.logg.Info(ctx, "checkout.redirecting_to_provider")
		}
		s.observe(enums.CheckoutOutcomeRedirect.String(), start)
		return result, nil
	}

	if err := s.sessions.ClearOrder(ctx, sessionID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear session order")
	}
	if s.logg != nil {
		s.logg.Info(ctx, "checkout.completed")
	}
	s.observe(enums.CheckoutOutcomeCompleted.String(), start)
	return result, nil
}

// LoadSummary returns the snapshot written by the last full-success
// checkout, or not-found once it expires.
func (s *service) LoadSummary(ctx context.Context, sessionID string) (*Summary, error) {
	raw, err := s.store.Get(ctx, summaryKey(sessionID))
	if err != nil {
		if err == kv.ErrNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout summary")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout summary")
	}
	var summary Summary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode checkout summary")
	}
	return &summary, nil
}

func (s *service) resolveOrder(ctx context.Context, sessionID string, tableID int64) (int64, error) {
	orderID, ok, err := s.sessions.OrderID(ctx, sessionID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read session")
	}
	if ok {
		return orderID, nil
	}

	order, err := s.backend.GetOrCreateActiveOrder(ctx, tableID)
	if err != nil {
		return 0, err
	}
	if err := s.sessions.SaveOrder(ctx, sessionID, order.OrderID); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache order id")
	}
	return order.OrderID, nil
}

// submitLines sends each cart line to the backend in array order. The
// submission is deliberately sequential so a failure is attributable to a
// specific line, and one failure never aborts the rest.
func (s *service) submitLines(ctx context.Context, orderID int64, lines []cart.Line) (submitted []cart.Line, failed []LineFailure) {
	for _, line := range lines {
		err := s.backend.AddOrderItem(ctx, orderapi.AddOrderItemRequest{
			OrderID:        orderID,
			MenuItemID:     line.ItemID,
			Quantity:       line.Quantity,
			MenuItemSizeID: line.SizeID,
		})
		if err != nil {
			failed = append(failed, LineFailure{Line: line, Reason: reasonOf(err)})
			continue
		}
		submitted = append(submitted, line)
	}
	return submitted, failed
}

func (s *service) writeSummary(ctx context.Context, sessionID string, orderID, tableID int64, lines []cart.Line, total decimal.Decimal, method enums.PaymentMethod) error {
	summary := Summary{
		OrderID:       orderID,
		TableID:       tableID,
		Items:         lines,
		Total:         total,
		PaymentMethod: method,
		SubmittedAt:   s.now().UTC(),
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, summaryKey(sessionID), string(payload), s.summaryTTL)
}

func (s *service) withOrderFields(ctx context.Context, sessionID string, tableID, orderID int64) context.Context {
	if s.logg == nil {
		return ctx
	}
	ctx = s.logg.WithSessionID(ctx, sessionID)
	ctx = s.logg.WithTableID(ctx, tableID)
	return s.logg.WithOrderID(ctx, orderID)
}

func (s *service) observe(outcome string, start time.Time) {
	s.metrics.ObserveCheckout(outcome, s.now().Sub(start))
}

func validate(lines []cart.Line, hasTable bool) error {
	var violations []string
	if len(lines) == 0 {
		violations = append(violations, "cart is empty")
	}
	if !hasTable {
		violations = append(violations, "no table is bound to this session; scan the table QR code again")
	}
	for _, line := range lines {
		if line.ItemID <= 0 {
			violations = append(violations, fmt.Sprintf("%s: missing menu item id", lineName(line)))
		}
		if line.Quantity <= 0 {
			violations = append(violations, fmt.Sprintf("%s: quantity must be positive", lineName(line)))
		}
	}
	if len(violations) == 0 {
		return nil
	}

	var combined error
	for _, violation := range violations {
		combined = multierr.Append(combined, fmt.Errorf("%s", violation))
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, combined, violations[0]).
		WithDetails(map[string]any{"violations": violations})
}

func allFailedError(failed []LineFailure) error {
	names := make([]string, 0, len(failed))
	var combined error
	for _, failure := range failed {
		names = append(names, fmt.Sprintf("%s: %s", lineName(failure.Line), failure.Reason))
		combined = multierr.Append(combined, fmt.Errorf("%s: %s", lineName(failure.Line), failure.Reason))
	}
	msg := fmt.Sprintf("no items could be submitted: %s", strings.Join(names, "; "))
	return pkgerrors.Wrap(pkgerrors.CodeDependency, combined, msg).
		WithDetails(map[string]any{"failed": names})
}

func reasonOf(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	return err.Error()
}

func lineName(line cart.Line) string {
	if line.Name != "" {
		return line.Name
	}
	return fmt.Sprintf("item %d", line.ItemID)
}

func totalOf(lines []cart.Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}
