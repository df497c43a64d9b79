package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tablesidehq/tableside-backend/api/responses"
	"github.com/tablesidehq/tableside-backend/api/validators"
	"github.com/tablesidehq/tableside-backend/internal/auth"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

// AuthLogin authenticates the staff account and returns a bearer token.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var dto auth.LoginDTO
		if err := validators.DecodeJSONBody(r, &dto); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Login(ctx, dto)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AdminResetGuestSession wipes a guest session's cart, order and flags so
// the next guest at the table starts clean.
func AdminResetGuestSession(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID := chi.URLParam(r, "sessionId")
		if err := svc.ResetGuestSession(ctx, sessionID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"session_id": sessionID, "status": "reset"})
	}
}
