package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tablesidehq/tableside-backend/api/middleware"
	"github.com/tablesidehq/tableside-backend/api/responses"
	"github.com/tablesidehq/tableside-backend/internal/session"
	"github.com/tablesidehq/tableside-backend/internal/tables"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

type scanResult struct {
	TableID int64  `json:"table_id"`
	Label   string `json:"label"`
}

// ScanTable resolves a scanned QR token and binds the table to the guest
// session. Scanning a different table's code simply rebinds.
func ScanTable(tableSvc tables.Service, sessions *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		table, err := tableSvc.ResolveQR(ctx, chi.URLParam(r, "qrToken"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := sessions.SaveTable(ctx, sessionID, table.ID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithTableID(ctx, table.ID), "scan.table_bound")
		}
		responses.WriteSuccess(w, scanResult{TableID: table.ID, Label: table.Label})
	}
}
