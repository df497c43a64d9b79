package payment

import (
	"context"
	"strings"

	"github.com/tablesidehq/tableside-backend/pkg/errors"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
	"github.com/tablesidehq/tableside-backend/pkg/metrics"
)

// Stage names the step of the provider-return flow an error occurred in.
type Stage string

const (
	StageStart      Stage = "start"
	StageCapturing  Stage = "capturing"
	StageVerifying  Stage = "verifying"
	StageCompleting Stage = "completing"
)

const captureCompleted = "COMPLETED"

type returnSessions interface {
	OrderID(ctx context.Context, sessionID string) (int64, bool, error)
	IsCheckoutInitiated(ctx context.Context, sessionID string, orderID int64) (bool, error)
	ConsumeCheckoutInitiated(ctx context.Context, sessionID string, orderID int64) (bool, error)
	MarkPaymentSuccess(ctx context.Context, sessionID string, orderID int64) error
	ClearOrder(ctx context.Context, sessionID string) error
}

// ReturnResult reports a completed provider return. The landing page
// consumes the payment-success flag and shows the confirmation.
type ReturnResult struct {
	OrderID int64 `json:"order_id"`
}

// ReturnHandler finishes the payment loop after the guest comes back from
// the provider. The flow is strictly linear: capture, verify the checkout
// flag, complete the order. Any failure is terminal; there are no retries
// and no way back into an earlier stage.
type ReturnHandler struct {
	backend  paymentBackend
	sessions returnSessions
	logg     *logger.Logger
	metrics  *metrics.CheckoutMetrics
}

// NewReturnHandler builds the provider-return handler.
func NewReturnHandler(backend paymentBackend, sessions returnSessions, logg *logger.Logger, checkoutMetrics *metrics.CheckoutMetrics) (*ReturnHandler, error) {
	if backend == nil {
		return nil, errors.New(errors.CodeInternal, "payment backend required")
	}
	if sessions == nil {
		return nil, errors.New(errors.CodeInternal, "session manager required")
	}
	return &ReturnHandler{backend: backend, sessions: sessions, logg: logg, metrics: checkoutMetrics}, nil
}

// Handle runs the return flow for the provider callback token.
func (h *ReturnHandler) Handle(ctx context.Context, sessionID, token string) (*ReturnResult, error) {
	// Start: both the callback token and a session order binding must exist.
	if strings.TrimSpace(token) == "" {
		return nil, stageError(StageStart, errors.CodeValidation, "payment token missing from provider callback")
	}
	orderID, ok, err := h.sessions.OrderID(ctx, sessionID)
	if err != nil {
		return nil, wrapStage(StageStart, err, "read session order")
	}
	if !ok {
		return nil, stageError(StageStart, errors.CodeStateConflict, "no order is bound to this session")
	}
	if h.logg != nil {
		ctx = h.logg.WithSessionID(ctx, sessionID)
		ctx = h.logg.WithOrderID(ctx, orderID)
	}

	// Capturing: ask the backend to capture against the provider.
	capture, err := h.backend.CapturePayment(ctx, token, orderID)
	if err != nil {
		h.metrics.IncCapture("error")
		return nil, wrapStage(StageCapturing, err, "capture payment")
	}
	if capture.Status != captureCompleted {
		h.metrics.IncCapture("rejected")
		return nil, stageError(StageCapturing, errors.CodeDependency, "payment capture finished in state "+capture.Status)
	}
	h.metrics.IncCapture("completed")

	// Verifying: the order must have gone through checkout in this session.
	// A stale or missing flag means the completion is not authorized.
	initiated, err := h.sessions.IsCheckoutInitiated(ctx, sessionID, orderID)
	if err != nil {
		return nil, wrapStage(StageVerifying, err, "read checkout flag")
	}
	if !initiated {
		if h.logg != nil {
			h.logg.Warn(ctx, "payment.return_without_checkout")
		}
		return nil, stageError(StageVerifying, errors.CodeStateConflict, "checkout was not initiated for this order")
	}

	// Completing: finalize the order, then flip the session flags. The
	// checkout flag is consumed here so a replayed callback URL stops in
	// the verifying stage instead of completing the order twice.
	if err := h.backend.CompleteOrder(ctx, orderID); err != nil {
		return nil, wrapStage(StageCompleting, err, "complete order")
	}
	if _, err := h.sessions.ConsumeCheckoutInitiated(ctx, sessionID, orderID); err != nil {
		return nil, wrapStage(StageCompleting, err, "consume checkout flag")
	}
	if err := h.sessions.MarkPaymentSuccess(ctx, sessionID, orderID); err != nil {
		return nil, wrapStage(StageCompleting, err, "mark payment success")
	}
	if err := h.sessions.ClearOrder(ctx, sessionID); err != nil {
		return nil, wrapStage(StageCompleting, err, "clear session order")
	}

	if h.logg != nil {
		h.logg.Info(ctx, "payment.completed")
	}
	return &ReturnResult{OrderID: orderID}, nil
}

func stageError(stage Stage, code errors.Code, message string) error {
	return errors.New(code, message).WithDetails(map[string]any{"stage": string(stage)})
}

func wrapStage(stage Stage, err error, message string) error {
	code := errors.CodeDependency
	if typed := errors.As(err); typed != nil {
		code = typed.Code()
		if typed.Message() != "" {
			message = typed.Message()
		}
	}
	return errors.Wrap(code, err, message).WithDetails(map[string]any{"stage": string(stage)})
}
