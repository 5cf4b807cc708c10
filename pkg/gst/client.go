package gst

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	pkgerrors "github.com/buildmart/storefront-client/pkg/errors"
)

const (
	errorBodyReadLimit int64 = 1024
	gstinLength              = 15
)

var (
	errBaseURLRequired = errors.New("gst verification base url is required")
	gstinPattern       = regexp.MustCompile(`^[0-9A-Z]{15}$`)
)

// Client calls the external GSTIN verification service used to auto-fill
// billing address fields. Failures here are advisory; callers degrade to
// manual entry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
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

// NewClient builds the GST verification client.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return client, nil
}

// Registration is the subset of verification output used for billing
// address auto-fill.
type Registration struct {
	LegalName string
	Street    string
	City      string
	State     string
	ZipCode   string
}

// ValidGSTIN reports whether the value is a plausible 15-character GSTIN.
func ValidGSTIN(gstin string) bool {
	return gstinPattern.MatchString(strings.ToUpper(strings.TrimSpace(gstin)))
}

// Verify resolves a GSTIN to the registered principal place of business.
func (c *Client) Verify(ctx context.Context, gstin string) (*Registration, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "gst client not configured")
	}
	normalized := strings.ToUpper(strings.TrimSpace(gstin))
	if !ValidGSTIN(normalized) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("gstin must be %d characters", gstinLength))
	}

	payload, err := json.Marshal(map[string]string{"gstin": normalized})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal gst request")
	}

	endpoint := strings.TrimRight(c.baseURL, "/") + "/verify"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build gst request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "execute gst request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "gst request failed")
	}

	var apiResp struct {
		Result struct {
			SourceOutput struct {
				LegalName string `json:"legal_name"`
				Principal struct {
					Street  string `json:"street"`
					City    string `json:"city"`
					State   string `json:"state"`
					Pincode string `json:"pincode"`
				} `json:"principal_place_of_business_fields"`
			} `json:"source_output"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode gst response")
	}

	principal := apiResp.Result.SourceOutput.Principal
	if principal.Street == "" && principal.City == "" && principal.State == "" && principal.Pincode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no registration found for gstin")
	}

	return &Registration{
		LegalName: apiResp.Result.SourceOutput.LegalName,
		Street:    principal.Street,
		City:      principal.City,
		State:     principal.State,
		ZipCode:   principal.Pincode,
	}, nil
}
