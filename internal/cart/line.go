package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Line is one orderable configuration in a guest's cart: a menu item,
// its optional size variant, and the quantity. Price and display fields are
// snapshotted at add-time so the cart renders without refetching the menu.
type Line struct {
	ItemID      int64           `json:"item_id"`
	SizeID      string          `json:"size_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Name        string          `json:"name"`
	ImageURL    string          `json:"image_url,omitempty"`
	Description string          `json:"description,omitempty"`
}

// Key returns the composite identity of the line. At most one line exists
// per key; adding the same (item, size) again increments the quantity.
func (l Line) Key() string {
	return LineKey(l.ItemID, l.SizeID)
}

// Subtotal is unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey builds the composite key for an (item, size) pair. Single-size
// items use an empty size id and the trailing underscore stays.
func LineKey(itemID int64, sizeID string) string {
	return fmt.Sprintf("%d_%s", itemID, sizeID)
}
