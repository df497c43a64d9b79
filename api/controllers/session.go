package controllers

import (
	"net/http"

	"github.com/tablesidehq/tableside-backend/api/middleware"
	"github.com/tablesidehq/tableside-backend/api/responses"
	"github.com/tablesidehq/tableside-backend/internal/cart"
	"github.com/tablesidehq/tableside-backend/internal/session"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

type sessionState struct {
	TableID   *int64 `json:"table_id,omitempty"`
	HasOrder  bool   `json:"has_order"`
	CartCount int    `json:"cart_count"`
}

type paymentSuccessView struct {
	OrderID int64 `json:"order_id"`
}

// SessionState reports what the landing page needs to render: the bound
// table, whether an order is open, and the cart badge count.
func SessionState(sessions *session.Manager, carts cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		state := sessionState{CartCount: carts.ItemCount(ctx, sessionID)}

		tableID, ok, err := sessions.TableID(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if ok {
			state.TableID = &tableID
		}

		hasOrder, err := sessions.HasOrder(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		state.HasOrder = hasOrder

		responses.WriteSuccess(w, state)
	}
}

// ConsumePaymentSuccess pops the one-shot payment-success flag. The first
// call after a completed payment returns the order id; any later call is 204.
func ConsumePaymentSuccess(sessions *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		orderID, ok, err := sessions.ConsumePaymentSuccess(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if logg != nil {
			logg.Info(logg.WithOrderID(ctx, orderID), "session.payment_success_consumed")
		}
		responses.WriteSuccess(w, paymentSuccessView{OrderID: orderID})
	}
}
