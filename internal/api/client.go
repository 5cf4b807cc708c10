package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/logger"
	"github.com/buildmart/storefront-client/pkg/metrics"
)

// Role controls how the client reacts to an authentication failure.
// Customer sessions refresh the service token and retry once; delivery
// sessions treat any auth failure as fatal and force a logout.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDelivery Role = "delivery"
)

// Backend responses signal token problems through these body markers
// even when the status code is not 401.
const (
	markerExpiredToken = "Invalid or expired API token."
	markerMalformedJWT = "jwt malformed"
)

// TokenSource supplies the tokens attached to every backend request.
// *session.Provider satisfies it.
type TokenSource interface {
	ServiceToken(ctx context.Context) (string, error)
	ForceRefreshServiceToken(ctx context.Context) (string, error)
	UserToken() string
}

// LogoutFunc is invoked when a delivery-role request hits a fatal auth
// failure.
type LogoutFunc func(ctx context.Context) error

// Client is the authenticated transport for the storefront backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	role       Role
	tokens     TokenSource
	logg       *logger.Logger
	metrics    *metrics.WorkflowMetrics
	onLogout   LogoutFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRole sets the auth-failure behavior. Defaults to RoleCustomer.
func WithRole(role Role) Option {
	return func(c *Client) {
		c.role = role
	}
}

// WithMetrics attaches workflow metrics.
func WithMetrics(m *metrics.WorkflowMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogoutHandler registers the callback fired on a fatal delivery
// auth failure.
func WithLogoutHandler(fn LogoutFunc) Option {
	return func(c *Client) {
		c.onLogout = fn
	}
}

// NewClient builds a backend client. The token source is mandatory
// because every endpoint requires the dual token headers.
func NewClient(baseURL string, tokens TokenSource, logg *logger.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New(errors.CodeValidation, "api client: base url is required")
	}
	if tokens == nil {
		return nil, errors.New(errors.CodeValidation, "api client: token source is required")
	}
	if logg == nil {
		return nil, errors.New(errors.CodeValidation, "api client: logger is required")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		role:       RoleCustomer,
		tokens:     tokens,
		logg:       logg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Role returns the configured auth-failure role.
func (c *Client) Role() Role {
	return c.role
}

type httpResult struct {
	status int
	body   []byte
}

func (r httpResult) authFailed() bool {
	if r.status == http.StatusUnauthorized {
		return true
	}
	text := string(r.body)
	return strings.Contains(text, markerExpiredToken) || strings.Contains(text, markerMalformedJWT)
}

func (c *Client) execute(ctx context.Context, method, path string, payload []byte, serviceToken string) (httpResult, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return httpResult{}, errors.Wrap(errors.CodeInternal, err, "build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+serviceToken)
	if user := c.tokens.UserToken(); user != "" {
		req.Header.Set("X-User-Token", "Bearer "+user)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return httpResult{}, errors.Wrap(errors.CodeNetwork, err, "execute backend request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return httpResult{}, errors.Wrap(errors.CodeNetwork, err, "read backend response")
	}
	return httpResult{status: resp.StatusCode, body: body}, nil
}

// call runs one backend request with the role-specific auth recovery.
// wantStatus of zero accepts any 2xx.
func (c *Client) call(ctx context.Context, method, path string, body, dest any, wantStatus int) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(errors.CodeInternal, err, "encode backend payload")
		}
	}

	token, err := c.tokens.ServiceToken(ctx)
	if err != nil {
		return err
	}
	res, err := c.execute(ctx, method, path, payload, token)
	if err != nil {
		return err
	}

	if res.authFailed() {
		switch c.role {
		case RoleDelivery:
			return c.failDeliveryAuth(ctx, path)
		default:
			res, err = c.retryAfterRefresh(ctx, method, path, payload)
			if err != nil {
				return err
			}
			if res.authFailed() {
				return errors.New(errors.CodeAuthExpired, "backend rejected refreshed token").
					WithDetails(map[string]any{"path": path})
			}
		}
	}

	return c.finish(res, path, dest, wantStatus)
}

func (c *Client) retryAfterRefresh(ctx context.Context, method, path string, payload []byte) (httpResult, error) {
	c.logg.Warn(c.logg.WithField(ctx, "path", path), "auth failure, refreshing service token")
	c.metrics.IncRetriedRequest(path)

	token, err := c.tokens.ForceRefreshServiceToken(ctx)
	if err != nil {
		return httpResult{}, err
	}
	return c.execute(ctx, method, path, payload, token)
}

func (c *Client) failDeliveryAuth(ctx context.Context, path string) error {
	ctx = c.logg.WithField(ctx, "path", path)
	if c.onLogout != nil {
		if err := c.onLogout(ctx); err != nil {
			c.logg.Error(ctx, "logout after auth failure", err)
		}
	}
	return errors.New(errors.CodeAuthExpired, "delivery session expired").
		WithDetails(map[string]any{"path": path})
}

func (c *Client) finish(res httpResult, path string, dest any, wantStatus int) error {
	ok := res.status >= 200 && res.status < 300
	if wantStatus != 0 {
		ok = res.status == wantStatus
	}
	if !ok {
		return serverError(res, path)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(res.body, dest); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "decode backend response").
			WithDetails(map[string]any{"path": path, "status": res.status})
	}
	return nil
}

func serverError(res httpResult, path string) error {
	message := serverMessage(res.body)
	code := errors.CodeDependency
	switch {
	case res.status == http.StatusNotFound:
		code = errors.CodeNotFound
	case res.status == http.StatusBadRequest:
		code = errors.CodeValidation
	case res.status == http.StatusConflict || res.status == http.StatusUnprocessableEntity:
		code = errors.CodeStateConflict
	}
	return errors.New(code, fmt.Sprintf("backend request failed: %s", message)).
		WithDetails(map[string]any{"path": path, "status": res.status})
}

// serverMessage digs the human message out of an error envelope,
// falling back to the raw body.
func serverMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 256 {
		text = text[:256]
	}
	if text == "" {
		text = "empty response"
	}
	return text
}
