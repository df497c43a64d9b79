package orderapi

import "github.com/shopspring/decimal"

// ActiveOrder is the backend's answer to "get or create the active order
// for a table". Exactly one order is active per table at a time; the
// backend enforces that and the gateway trusts it.
type ActiveOrder struct {
	OrderID     int64           `json:"OrderId"`
	OrderStatus string          `json:"OrderStatus"`
	TotalAmount decimal.Decimal `json:"TotalAmount"`
	IsNewOrder  bool            `json:"IsNewOrder"`
}

// AddOrderItemRequest submits one cart line as a backend order item.
type AddOrderItemRequest struct {
	OrderID        int64  `json:"OrderId"`
	MenuItemID     int64  `json:"MenuItemId"`
	Quantity       int    `json:"Quantity"`
	MenuItemSizeID string `json:"MenuItemSizeId,omitempty"`
}

// PaymentOrder is the provider-side order created before the redirect.
type PaymentOrder struct {
	PaymentOrderID string `json:"PaymentOrderId"`
	ApproveURL     string `json:"ApproveUrl"`
}

// CaptureResult reports the outcome of a payment capture.
type CaptureResult struct {
	Status string `json:"Status"`
}

type getOrCreateOrderRequest struct {
	TableID int64 `json:"TableId"`
}

type orderIDRequest struct {
	OrderID int64 `json:"OrderId"`
}

type createPaymentRequest struct {
	OrderID  int64  `json:"OrderId"`
	Amount   string `json:"Amount"`
	Currency string `json:"Currency"`
}

type capturePaymentRequest struct {
	Token   string `json:"Token"`
	OrderID int64  `json:"OrderId"`
}
