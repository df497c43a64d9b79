package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tablesidehq/tableside-backend/pkg/config"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

// Guest session cookies outlive the browser session so the table binding
// survives the guest closing the tab mid-meal.
const guestCookieMaxAge = 30 * 24 * 60 * 60

// GuestSession guarantees every request carries a guest session id. A new
// id is minted and set as a cookie when the browser presents none.
func GuestSession(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := ""
			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				sessionID = cookie.Value
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   guestCookieMaxAge,
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
