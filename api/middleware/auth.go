package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/tablesidehq/tableside-backend/api/responses"
	pkgAuth "github.com/tablesidehq/tableside-backend/pkg/auth"
	"github.com/tablesidehq/tableside-backend/pkg/config"
	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

// Auth validates a staff bearer token and seeds the request context with
// the claims. Guest endpoints never use this.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.Role != pkgAuth.AdminRole {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "staff access required"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxAdminUser, claims.Username)
			if logg != nil {
				ctx = logg.WithField(ctx, "admin_user", claims.Username)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
