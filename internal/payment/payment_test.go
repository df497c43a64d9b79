package payment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tablesidehq/tableside-backend/internal/orderapi"
	"github.com/tablesidehq/tableside-backend/internal/session"
	"github.com/tablesidehq/tableside-backend/pkg/config"
	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
	"github.com/tablesidehq/tableside-backend/pkg/kv"
)

const testSession = "guest-1"

type stubBackend struct {
	paymentOrder    *orderapi.PaymentOrder
	paymentOrderErr error
	createCalls     []string

	captureResult *orderapi.CaptureResult
	captureErr    error
	captureCalls  int

	completeErr   error
	completeCalls []int64
}

func (s *stubBackend) CreatePaymentOrder(_ context.Context, orderID int64, amount, currency string) (*orderapi.PaymentOrder, error) {
	s.createCalls = append(s.createCalls, amount+" "+currency)
	if s.paymentOrderErr != nil {
		return nil, s.paymentOrderErr
	}
	return s.paymentOrder, nil
}

func (s *stubBackend) CapturePayment(_ context.Context, token string, orderID int64) (*orderapi.CaptureResult, error) {
	s.captureCalls++
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	return s.captureResult, nil
}

func (s *stubBackend) CompleteOrder(_ context.Context, orderID int64) error {
	s.completeCalls = append(s.completeCalls, orderID)
	return s.completeErr
}

func defaultConverter(t *testing.T) *Converter {
	t.Helper()
	converter, err := NewConverter(config.PaymentConfig{
		DisplayCurrency:    "THB",
		SettlementCurrency: "USD",
		ConversionRate:     "0.028",
	})
	require.NoError(t, err)
	return converter
}

func TestConverterToSettlement(t *testing.T) {
	converter := defaultConverter(t)

	got := converter.ToSettlement(decimal.NewFromInt(335))
	require.Equal(t, "9.38", got.StringFixed(2))

	got = converter.ToSettlement(decimal.RequireFromString("120.50"))
	require.Equal(t, "3.37", got.StringFixed(2))
}

func TestNewConverterRejectsBadRate(t *testing.T) {
	_, err := NewConverter(config.PaymentConfig{ConversionRate: "zero"})
	require.Error(t, err)
	_, err = NewConverter(config.PaymentConfig{ConversionRate: "-1"})
	require.Error(t, err)
}

func TestStarterSendsConvertedAmount(t *testing.T) {
	backend := &stubBackend{paymentOrder: &orderapi.PaymentOrder{
		PaymentOrderID: "pp-1",
		ApproveURL:     "https://pay.example/approve/pp-1",
	}}
	starter, err := NewStarter(backend, defaultConverter(t))
	require.NoError(t, err)

	url, err := starter.Start(context.Background(), 42, decimal.NewFromInt(335))
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/approve/pp-1", url)
	require.Equal(t, []string{"9.38 USD"}, backend.createCalls)
}

func TestStarterRejectsNonPositiveAmount(t *testing.T) {
	starter, err := NewStarter(&stubBackend{}, defaultConverter(t))
	require.NoError(t, err)

	_, err = starter.Start(context.Background(), 42, decimal.Zero)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

type returnFixture struct {
	handler  *ReturnHandler
	backend  *stubBackend
	sessions *session.Manager
}

func newReturnFixture(t *testing.T) *returnFixture {
	t.Helper()
	store := kv.NewMemoryStore()
	sessions, err := session.NewManager(store, config.SessionConfig{
		OrderTTL: 12 * time.Hour,
		FlagTTL:  time.Hour,
	})
	require.NoError(t, err)

	backend := &stubBackend{captureResult: &orderapi.CaptureResult{Status: "COMPLETED"}}
	handler, err := NewReturnHandler(backend, sessions, nil, nil)
	require.NoError(t, err)

	return &returnFixture{handler: handler, backend: backend, sessions: sessions}
}

func requireStage(t *testing.T, err error, stage Stage) {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, string(stage), details["stage"])
}

func TestReturnHappyPath(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.SaveOrder(ctx, testSession, 42))
	require.NoError(t, f.sessions.MarkCheckoutInitiated(ctx, testSession, 42))

	result, err := f.handler.Handle(ctx, testSession, "tok-1")
	require.NoError(t, err)
	require.EqualValues(t, 42, result.OrderID)
	require.Equal(t, []int64{42}, f.backend.completeCalls)

	// The order binding is cleared and the success flag is set for the
	// landing page to consume exactly once.
	has, err := f.sessions.HasOrder(ctx, testSession)
	require.NoError(t, err)
	require.False(t, has)

	id, ok, err := f.sessions.ConsumePaymentSuccess(ctx, testSession)
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 42, id)
}

func TestReturnMissingTokenIsTerminal(t *testing.T) {
	f := newReturnFixture(t)

	_, err := f.handler.Handle(context.Background(), testSession, "  ")
	require.Error(t, err)
	requireStage(t, err, StageStart)
	require.Zero(t, f.backend.captureCalls)
}

func TestReturnMissingOrderIsTerminal(t *testing.T) {
	f := newReturnFixture(t)

	_, err := f.handler.Handle(context.Background(), testSession, "tok-1")
	require.Error(t, err)
	requireStage(t, err, StageStart)
	require.Zero(t, f.backend.captureCalls)
}

func TestReturnCaptureFailureIsTerminal(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.SaveOrder(ctx, testSession, 42))
	require.NoError(t, f.sessions.MarkCheckoutInitiated(ctx, testSession, 42))
	f.backend.captureErr = pkgerrors.New(pkgerrors.CodeDependency, "capture declined by provider")

	_, err := f.handler.Handle(ctx, testSession, "tok-1")
	require.Error(t, err)
	requireStage(t, err, StageCapturing)
	require.Contains(t, err.Error(), "capture declined by provider")

	// Completion never ran; the session binding survives for support.
	require.Empty(t, f.backend.completeCalls)
	has, err := f.sessions.HasOrder(ctx, testSession)
	require.NoError(t, err)
	require.True(t, has)
}

func TestReturnNonCompletedCaptureIsTerminal(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.SaveOrder(ctx, testSession, 42))
	require.NoError(t, f.sessions.MarkCheckoutInitiated(ctx, testSession, 42))
	f.backend.captureResult = &orderapi.CaptureResult{Status: "PENDING"}

	_, err := f.handler.Handle(ctx, testSession, "tok-1")
	require.Error(t, err)
	requireStage(t, err, StageCapturing)
	require.Empty(t, f.backend.completeCalls)
}

func TestReturnWithoutCheckoutFlagNeverCompletes(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.SaveOrder(ctx, testSession, 42))

	_, err := f.handler.Handle(ctx, testSession, "tok-1")
	require.Error(t, err)
	requireStage(t, err, StageVerifying)
	require.Empty(t, f.backend.completeCalls)

	// The success flag was never set.
	_, ok, err := f.sessions.ConsumePaymentSuccess(ctx, testSession)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReturnStaleFlagForOtherOrderIsRejected(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.SaveOrder(ctx, testSession, 43))
	require.NoError(t, f.sessions.MarkCheckoutInitiated(ctx, testSession, 42))

	_, err := f.handler.Handle(ctx, testSession, "tok-1")
	require.Error(t, err)
	requireStage(t, err, StageVerifying)
	require.Empty(t, f.backend.completeCalls)
}

func TestReturnReplayHaltsInVerifying(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.SaveOrder(ctx, testSession, 42))
	require.NoError(t, f.sessions.MarkCheckoutInitiated(ctx, testSession, 42))

	_, err := f.handler.Handle(ctx, testSession, "tok-1")
	require.NoError(t, err)

	// Re-bind the order as a replayed callback would see it, then replay.
	require.NoError(t, f.sessions.SaveOrder(ctx, testSession, 42))
	_, err = f.handler.Handle(ctx, testSession, "tok-1")
	require.Error(t, err)
	requireStage(t, err, StageVerifying)

	// The order was completed exactly once.
	require.Equal(t, []int64{42}, f.backend.completeCalls)
}

func TestReturnCompleteOrderFailureIsTerminal(t *testing.T) {
	f := newReturnFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessions.SaveOrder(ctx, testSession, 42))
	require.NoError(t, f.sessions.MarkCheckoutInitiated(ctx, testSession, 42))
	f.backend.completeErr = pkgerrors.New(pkgerrors.CodeDependency, "order already closed")

	_, err := f.handler.Handle(ctx, testSession, "tok-1")
	require.Error(t, err)
	requireStage(t, err, StageCompleting)

	// Flags are untouched on completion failure.
	initiated, err := f.sessions.IsCheckoutInitiated(ctx, testSession, 42)
	require.NoError(t, err)
	require.True(t, initiated)
}
