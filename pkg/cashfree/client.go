package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/buildmart/storefront-client/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL           = "https://sandbox.cashfree.com/pg"
	defaultAPIVersion        = "2023-08-01"
	errorBodyReadLimit int64 = 1024

	// ChannelLink requests a UPI intent link session.
	ChannelLink = "link"
	// ChannelQRCode requests a UPI QR session.
	ChannelQRCode = "qrcode"
)

var (
	errCredentialsRequired = errors.New("cashfree app id and secret key are required")
)

// Client wraps the Cashfree payment-gateway endpoints used to initiate UPI
// collections for storefront orders.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	secretKey  string
	apiVersion string
	notifyURL  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured gateway base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithAPIVersion overrides the x-api-version header.
func WithAPIVersion(version string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(version)
		if trimmed != "" {
			c.apiVersion = trimmed
		}
	}
}

// WithNotifyURL sets the server-to-server notification URL attached to
// gateway orders.
func WithNotifyURL(notifyURL string) Option {
	return func(c *Client) {
		c.notifyURL = strings.TrimSpace(notifyURL)
	}
}

// NewClient builds the Cashfree client given the merchant credentials.
func NewClient(appID, secretKey string, opts ...Option) (*Client, error) {
	trimmedID := strings.TrimSpace(appID)
	trimmedSecret := strings.TrimSpace(secretKey)
	if trimmedID == "" || trimmedSecret == "" {
		return nil, errCredentialsRequired
	}

	client := &Client{
		appID:      trimmedID,
		secretKey:  trimmedSecret,
		baseURL:    defaultBaseURL,
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// CustomerDetails identifies the paying customer on a gateway order.
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// CreateOrderRequest describes a gateway order tied to one storefront order.
type CreateOrderRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	Customer CustomerDetails
}

// GatewayOrder is the normalized result of order creation.
type GatewayOrder struct {
	OrderID          string
	PaymentSessionID string
}

// CreateOrder registers the order with the gateway and returns the payment
// session id used for subsequent UPI session creation.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*GatewayOrder, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cashfree client not configured")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = "INR"
	}

	amount, _ := req.Amount.Round(2).Float64()
	payload := map[string]any{
		"order_id":       req.OrderID,
		"order_amount":   amount,
		"order_currency": currency,
		"customer_details": map[string]string{
			"customer_id":    req.Customer.CustomerID,
			"customer_email": req.Customer.CustomerEmail,
			"customer_phone": req.Customer.CustomerPhone,
		},
	}
	if c.notifyURL != "" {
		payload["order_meta"] = map[string]string{"notify_url": c.notifyURL}
	}

	var apiResp struct {
		Data struct {
			OrderID          string `json:"order_id"`
			PaymentSessionID string `json:"payment_session_id"`
		} `json:"data"`
	}
	if err := c.post(ctx, "orders", payload, &apiResp); err != nil {
		return nil, err
	}

	sessionID := strings.TrimSpace(apiResp.Data.PaymentSessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewaySession, "gateway response missing payment_session_id")
	}

	orderID := apiResp.Data.OrderID
	if orderID == "" {
		orderID = req.OrderID
	}
	return &GatewayOrder{OrderID: orderID, PaymentSessionID: sessionID}, nil
}

// UPISession is the redirect handoff for a UPI collection.
type UPISession struct {
	RedirectURL string
}

// CreateUPISession exchanges a payment session id for a UPI link or QR
// payload. channel must be ChannelLink or ChannelQRCode.
func (c *Client) CreateUPISession(ctx context.Context, paymentSessionID, channel string) (*UPISession, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cashfree client not configured")
	}
	if strings.TrimSpace(paymentSessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment session id is required")
	}
	if channel != ChannelLink && channel != ChannelQRCode {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported upi channel %q", channel))
	}

	payload := map[string]any{
		"payment_session_id": paymentSessionID,
		"payment_method": map[string]any{
			"upi": map[string]string{"channel": channel},
		},
	}

	var apiResp struct {
		Data struct {
			Payload struct {
				Web string `json:"web"`
			} `json:"payload"`
		} `json:"data"`
	}
	if err := c.post(ctx, "orders/sessions", payload, &apiResp); err != nil {
		return nil, err
	}

	redirect := strings.TrimSpace(apiResp.Data.Payload.Web)
	if redirect == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewaySession, "gateway response missing upi payload")
	}
	return &UPISession{RedirectURL: redirect}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGatewaySession, err, "marshal gateway request")
	}

	endpoint := fmt.Sprintf("%s/%s", strings.TrimRight(c.baseURL, "/"), strings.TrimLeft(path, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGatewaySession, err, "build gateway request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-client-id", c.appID)
	httpReq.Header.Set("x-client-secret", c.secretKey)
	httpReq.Header.Set("x-api-version", c.apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "execute gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeGatewaySession, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gateway request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGatewaySession, err, "decode gateway response")
	}
	return nil
}
