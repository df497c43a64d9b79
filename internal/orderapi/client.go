package orderapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/tablesidehq/tableside-backend/pkg/config"
	pkgerrors "github.com/tablesidehq/tableside-backend/pkg/errors"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

// Client talks to the restaurant backend's REST API. All durable order
// state lives there; the gateway only mirrors identifiers.
type Client struct {
	http *resty.Client
	logg *logger.Logger
}

type envelope struct {
	Status  int             `json:"Status"`
	Message string          `json:"Message"`
	Result  json.RawMessage `json:"Result"`
}

const statusOK = 200

// NewClient builds the backend client from config.
func NewClient(cfg config.OrderAPIConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("order api base url is required")
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(base, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		http.SetHeader("X-Api-Key", cfg.APIKey)
	}

	return &Client{http: http, logg: logg}, nil
}

// GetOrCreateActiveOrder resolves the single active order for a table,
// creating one when none is open.
func (c *Client) GetOrCreateActiveOrder(ctx context.Context, tableID int64) (*ActiveOrder, error) {
	if tableID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "table id is required")
	}

	var order ActiveOrder
	if err := c.post(ctx, "/api/orders/active", getOrCreateOrderRequest{TableID: tableID}, &order); err != nil {
		return nil, err
	}
	if order.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend returned no order id")
	}
	return &order, nil
}

// AddOrderItem appends one line to the backend order.
func (c *Client) AddOrderItem(ctx context.Context, req AddOrderItemRequest) error {
	if req.OrderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if req.MenuItemID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "menu item id is required")
	}
	if req.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return c.post(ctx, "/api/orders/items", req, nil)
}

// UpdateOrderTotal asks the backend to recompute and persist the order total.
func (c *Client) UpdateOrderTotal(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return c.post(ctx, "/api/orders/update-total", orderIDRequest{OrderID: orderID}, nil)
}

// CompleteOrder marks the order finalized after payment.
func (c *Client) CompleteOrder(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	return c.post(ctx, "/api/orders/complete", orderIDRequest{OrderID: orderID}, nil)
}

// CreatePaymentOrder opens a provider-side payment order for the given
// amount, already converted to the settlement currency.
func (c *Client) CreatePaymentOrder(ctx context.Context, orderID int64, amount string, currency string) (*PaymentOrder, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if amount == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount is required")
	}

	var payment PaymentOrder
	req := createPaymentRequest{OrderID: orderID, Amount: amount, Currency: currency}
	if err := c.post(ctx, "/api/payments/orders", req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CapturePayment captures the provider payment identified by the callback
// token for the given backend order.
func (c *Client) CapturePayment(ctx context.Context, token string, orderID int64) (*CaptureResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token is required")
	}
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var result CaptureResult
	if err := c.post(ctx, "/api/payments/capture", capturePaymentRequest{Token: token, OrderID: orderID}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		c.log(ctx, "error", path, map[string]any{"error": err.Error()})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order api unreachable")
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		c.log(ctx, "error", path, map[string]any{"status": resp.StatusCode()})
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order api returned malformed response")
	}

	if resp.IsError() || env.Status != statusOK {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = fmt.Sprintf("order api request failed with status %d", resp.StatusCode())
		}
		c.log(ctx, "error", path, map[string]any{"status": resp.StatusCode(), "message": msg})
		return pkgerrors.New(pkgerrors.CodeDependency, msg)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order api returned malformed result")
		}
	}

	c.log(ctx, "response", path, map[string]any{"status": resp.StatusCode()})
	return nil
}

func (c *Client) log(ctx context.Context, stage, path string, fields map[string]any) {
	if c.logg == nil {
		return
	}
	merged := map[string]any{"stage": stage, "path": path}
	for k, v := range fields {
		merged[k] = v
	}
	ctx = c.logg.WithFields(ctx, merged)
	c.logg.Info(ctx, "orderapi.call")
}
