package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tablesidehq/tableside-backend/api/middleware"
	"github.com/tablesidehq/tableside-backend/api/responses"
	"github.com/tablesidehq/tableside-backend/api/validators"
	"github.com/tablesidehq/tableside-backend/internal/cart"
	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

type addCartItemPayload struct {
	ItemID      int64  `json:"item_id" validate:"required,gt=0"`
	SizeID      string `json:"size_id"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
	UnitPrice   string `json:"unit_price" validate:"required"`
	Name        string `json:"name" validate:"required"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
}

type updateCartItemPayload struct {
	ItemID   int64  `json:"item_id" validate:"required,gt=0"`
	SizeID   string `json:"size_id"`
	Quantity int    `json:"quantity"`
}

type cartView struct {
	Items []cart.Line     `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

func viewOf(lines []cart.Line) cartView {
	view := cartView{Items: lines, Total: decimal.Zero}
	if view.Items == nil {
		view.Items = []cart.Line{}
	}
	for _, line := range lines {
		view.Total = view.Total.Add(line.Subtotal())
		view.Count += line.Quantity
	}
	return view
}

// CartFetch returns the session's cart.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)
		responses.WriteSuccess(w, viewOf(svc.Get(ctx, sessionID)))
	}
}

// CartAddItem adds or merges one line into the cart.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		var payload addCartItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		price, err := decimal.NewFromString(payload.UnitPrice)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unit_price must be a decimal string"))
			return
		}

		lines, err := svc.Add(ctx, sessionID, cart.Line{
			ItemID:      payload.ItemID,
			SizeID:      strings.TrimSpace(payload.SizeID),
			Quantity:    payload.Quantity,
			UnitPrice:   price,
			Name:        validators.SanitizeString(payload.Name, 200),
			ImageURL:    validators.SanitizeString(payload.ImageURL, 500),
			Description: validators.SanitizeString(payload.Description, 1000),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, viewOf(lines))
	}
}

// CartUpdateItem sets the quantity of one line. Zero or negative removes it.
func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		var payload updateCartItemPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		lines, err := svc.UpdateQuantity(ctx, sessionID, payload.ItemID, strings.TrimSpace(payload.SizeID), payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, viewOf(lines))
	}
}

// CartRemoveItem deletes one line by its (item, size) identity.
func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
		if err != nil || itemID <= 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "item id must be a positive integer"))
			return
		}
		sizeID := strings.TrimSpace(r.URL.Query().Get("sizeId"))

		lines, err := svc.Remove(ctx, sessionID, itemID, sizeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, viewOf(lines))
	}
}

// CartClear empties the cart.
func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := middleware.SessionIDFromContext(ctx)

		if err := svc.Clear(ctx, sessionID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, viewOf(nil))
	}
}
