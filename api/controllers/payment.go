package controllers

import (
	"net/http"
	"strings"

	"github.com/tablesidehq/tableside-backend/api/middleware"
	"github.com/tablesidehq/tableside-backend/api/responses"
	"github.com/tablesidehq/tableside-backend/internal/payment"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

// PaymentReturn finishes the payment loop when the provider redirects the
// guest back. The provider appends its callback token as a query parameter.
func PaymentReturn(handler *payment.ReturnHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		token := strings.TrimSpace(r.URL.Query().Get("token"))
		result, err := handler.Handle(ctx, sessionID, token)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
