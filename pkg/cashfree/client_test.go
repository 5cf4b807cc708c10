package cashfree

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestClientCreateOrderRequest(t *testing.T) {
	respBody := `{"data":{"order_id":"ord_123","payment_session_id":"session_abc"}}`

	var capturedURL string
	var capturedHeaders http.Header
	var capturedPayload map[string]any

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedHeaders = req.Header.Clone()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		if err := json.Unmarshal(bodyBytes, &capturedPayload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("app-id", "secret-key",
		WithBaseURL("http://gateway.test/pg"),
		WithHTTPClient(&http.Client{Transport: rt}),
		WithNotifyURL("https://store.test/webhooks/cashfree"),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		OrderID:  "ord_123",
		Amount:   decimal.NewFromFloat(1499.50),
		Currency: "INR",
		Customer: CustomerDetails{
			CustomerID:    "user-9",
			CustomerEmail: "asha@example.com",
			CustomerPhone: "9999999999",
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if capturedURL != "http://gateway.test/pg/orders" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedHeaders.Get("x-client-id") != "app-id" || capturedHeaders.Get("x-client-secret") != "secret-key" {
		t.Fatalf("credential headers missing")
	}
	if capturedHeaders.Get("x-api-version") != defaultAPIVersion {
		t.Fatalf("unexpected api version %q", capturedHeaders.Get("x-api-version"))
	}
	if capturedPayload["order_amount"] != 1499.5 {
		t.Fatalf("unexpected amount %v", capturedPayload["order_amount"])
	}
	meta, ok := capturedPayload["order_meta"].(map[string]any)
	if !ok || meta["notify_url"] != "https://store.test/webhooks/cashfree" {
		t.Fatalf("notify_url missing from payload: %v", capturedPayload)
	}
	if order.PaymentSessionID != "session_abc" {
		t.Fatalf("unexpected session id %q", order.PaymentSessionID)
	}
}

func TestClientCreateOrderMissingSessionID(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"data":{}}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("app-id", "secret-key", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateOrder(context.Background(), CreateOrderRequest{
		OrderID: "ord_1",
		Amount:  decimal.NewFromInt(100),
	})
	if err == nil {
		t.Fatalf("expected error when payment_session_id is missing")
	}
}

func TestClientCreateUPISessionExtractsRedirect(t *testing.T) {
	respBody := `{"data":{"payload":{"web":"https://payments.test/upi/session_abc"}}}`

	var capturedPayload map[string]any
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/orders/sessions") {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		bodyBytes, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(bodyBytes, &capturedPayload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("app-id", "secret-key", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	session, err := client.CreateUPISession(context.Background(), "session_abc", ChannelLink)
	if err != nil {
		t.Fatalf("create upi session: %v", err)
	}
	if session.RedirectURL != "https://payments.test/upi/session_abc" {
		t.Fatalf("unexpected redirect %q", session.RedirectURL)
	}

	method, ok := capturedPayload["payment_method"].(map[string]any)
	if !ok {
		t.Fatalf("payment_method missing: %v", capturedPayload)
	}
	upi, ok := method["upi"].(map[string]any)
	if !ok || upi["channel"] != ChannelLink {
		t.Fatalf("unexpected upi channel: %v", method)
	}
}

func TestClientCreateUPISessionRejectsUnknownChannel(t *testing.T) {
	client, err := NewClient("app-id", "secret-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.CreateUPISession(context.Background(), "session_abc", "card"); err == nil {
		t.Fatalf("expected error for unknown channel")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
