package api

import (
	"context"
	"net/http"

	"github.com/buildmart/storefront-client/pkg/errors"
)

// CreateOrder submits the checkout payload. The backend signals success
// with a 201 and the created order in the body.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var out struct {
		Order Order `json:"order"`
	}
	if err := c.call(ctx, http.MethodPost, "/checkout", req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	if out.Order.ID == "" {
		return nil, errors.New(errors.CodeDependency, "checkout response carried no order")
	}
	return &out.Order, nil
}

// Order fetches the current state of an order.
func (c *Client) Order(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	var out struct {
		Order Order `json:"order"`
	}
	if err := c.call(ctx, http.MethodGet, "/orders/"+orderID, nil, &out, 0); err != nil {
		return nil, err
	}
	return &out.Order, nil
}

// OrderPaymentStatus asks the backend for the gateway-reported payment
// state of an order.
func (c *Client) OrderPaymentStatus(ctx context.Context, orderID string) (PaymentStatus, error) {
	if orderID == "" {
		return "", errors.New(errors.CodeValidation, "order id is required")
	}
	var out struct {
		Status PaymentStatus `json:"status"`
	}
	if err := c.call(ctx, http.MethodGet, "/orders/"+orderID+"/payment-status", nil, &out, 0); err != nil {
		return "", err
	}
	if out.Status == "" {
		return "", errors.New(errors.CodeDependency, "payment status response carried no status")
	}
	return out.Status, nil
}

// CancelOrder cancels an order with the given reason.
func (c *Client) CancelOrder(ctx context.Context, orderID, reason string) error {
	if orderID == "" {
		return errors.New(errors.CodeValidation, "order id is required")
	}
	if reason == "" {
		return errors.New(errors.CodeValidation, "cancellation reason is required")
	}
	body := map[string]string{"cancellation_reason": reason}
	return c.call(ctx, http.MethodPut, "/orders/"+orderID+"/cancel", body, nil, 0)
}
