package api

import (
	"context"
	"net/http"

	"github.com/buildmart/storefront-client/pkg/errors"
)

// RejectDelivery declines an assigned delivery with a reason.
func (c *Client) RejectDelivery(ctx context.Context, orderID, reason string) error {
	if orderID == "" {
		return errors.New(errors.CodeValidation, "order id is required")
	}
	if reason == "" {
		return errors.New(errors.CodeValidation, "rejection reason is required")
	}
	var out struct {
		Success bool `json:"success"`
	}
	body := map[string]string{"rejection_reason": reason}
	if err := c.call(ctx, http.MethodPut, "/delivery/orders/"+orderID+"/reject", body, &out, 0); err != nil {
		return err
	}
	if !out.Success {
		return errors.New(errors.CodeDependency, "backend did not confirm rejection")
	}
	return nil
}

// RequestDeliveryOTP starts the completion handshake. The backend
// either dispatches a one-time password to the customer or, for orders
// it completes outright, reports success with otp_sent unset.
func (c *Client) RequestDeliveryOTP(ctx context.Context, orderID string) (*CompleteDeliveryResponse, error) {
	if orderID == "" {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	var out CompleteDeliveryResponse
	if err := c.call(ctx, http.MethodPut, "/delivery/orders/"+orderID+"/complete", map[string]string{}, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmDelivery finishes the completion handshake with the customer's
// one-time password.
func (c *Client) ConfirmDelivery(ctx context.Context, orderID, otp string) (*CompleteDeliveryResponse, error) {
	if orderID == "" {
		return nil, errors.New(errors.CodeValidation, "order id is required")
	}
	if otp == "" {
		return nil, errors.New(errors.CodeValidation, "otp is required")
	}
	var out CompleteDeliveryResponse
	body := map[string]string{"otp": otp}
	if err := c.call(ctx, http.MethodPut, "/delivery/orders/"+orderID+"/complete", body, &out, 0); err != nil {
		return nil, err
	}
	return &out, nil
}
