package controllers

import (
	"net/http"

	"github.com/tablesidehq/tableside-backend/api/middleware"
	"github.com/tablesidehq/tableside-backend/api/responses"
	"github.com/tablesidehq/tableside-backend/api/validators"
	"github.com/tablesidehq/tableside-backend/internal/checkout"
	"github.com/tablesidehq/tableside-backend/pkg/enums"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

type checkoutPayload struct {
	PaymentMethod string `json:"payment_method"`
}

// Checkout submits the session's cart as backend order items.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		var payload checkoutPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Execute(ctx, sessionID, checkout.Input{
			PaymentMethod: enums.PaymentMethod(payload.PaymentMethod),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Outcome == enums.CheckoutOutcomePartial {
			// Partial success is still a 2xx; the body carries the failures.
			status = http.StatusAccepted
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}

// CheckoutSummary returns the snapshot of the last fully submitted checkout.
func CheckoutSummary(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		summary, err := svc.LoadSummary(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
