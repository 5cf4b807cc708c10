package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/buildmart/storefront-client/pkg/errors"
)

// TokenExchanger trades the configured client credentials for a service
// API token. It carries no auth state of its own so the session provider
// can call it while the token cache is empty.
type TokenExchanger struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string
}

// ExchangerOption configures a TokenExchanger.
type ExchangerOption func(*TokenExchanger)

// WithExchangerHTTPClient overrides the underlying HTTP client.
func WithExchangerHTTPClient(hc *http.Client) ExchangerOption {
	return func(e *TokenExchanger) {
		if hc != nil {
			e.httpClient = hc
		}
	}
}

// NewTokenExchanger builds an exchanger against the backend base URL.
func NewTokenExchanger(baseURL, clientID, clientSecret string, opts ...ExchangerOption) (*TokenExchanger, error) {
	if baseURL == "" {
		return nil, errors.New(errors.CodeValidation, "token exchanger: base url is required")
	}
	if clientID == "" || clientSecret == "" {
		return nil, errors.New(errors.CodeValidation, "token exchanger: client credentials are required")
	}
	e := &TokenExchanger{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// ExchangeServiceToken posts the client credentials and returns the
// issued service token.
func (e *TokenExchanger) ExchangeServiceToken(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     e.clientID,
		"client_secret": e.clientSecret,
	})
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "token exchange: encode payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/auth/token", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(errors.CodeInternal, err, "token exchange: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(errors.CodeNetwork, err, "token exchange: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", errors.New(errors.CodeAuthExpired, "token exchange rejected").
			WithDetails(map[string]any{"status": resp.StatusCode, "body": string(body)})
	}

	var out struct {
		APIToken string `json:"apiToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "token exchange: decode response")
	}
	if out.APIToken == "" {
		return "", errors.New(errors.CodeDependency, "token exchange: response carried no token")
	}
	return out.APIToken, nil
}
