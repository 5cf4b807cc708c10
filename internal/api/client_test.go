package api

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

type stubTokens struct {
	service    string
	refreshed  string
	user       string
	refreshes  int
	serviceErr error
}

func (s *stubTokens) ServiceToken(context.Context) (string, error) {
	if s.serviceErr != nil {
		return "", s.serviceErr
	}
	return s.service, nil
}

func (s *stubTokens) ForceRefreshServiceToken(context.Context) (string, error) {
	s.refreshes++
	if s.refreshed == "" {
		return s.service, nil
	}
	return s.refreshed, nil
}

func (s *stubTokens) UserToken() string {
	return s.user
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestClient(t *testing.T, tokens TokenSource, rt roundTripFunc, opts ...Option) *Client {
	t.Helper()
	opts = append(opts, WithHTTPClient(&http.Client{Transport: rt}))
	c, err := NewClient("https://backend.test", tokens, testLogger(), opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func TestClientSendsDualTokenHeaders(t *testing.T) {
	tokens := &stubTokens{service: "svc-token", user: "user-token"}
	var gotAuth, gotUser string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotAuth = req.Header.Get("Authorization")
		gotUser = req.Header.Get("X-User-Token")
		return jsonResponse(http.StatusOK, `{"profile":{"id":"u1","email":"a@b.c"}}`), nil
	})
	c := newTestClient(t, tokens, rt)

	profile, err := c.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if profile.ID != "u1" {
		t.Fatalf("unexpected profile id %q", profile.ID)
	}
	if gotAuth != "Bearer svc-token" {
		t.Fatalf("unexpected Authorization header %q", gotAuth)
	}
	if gotUser != "Bearer user-token" {
		t.Fatalf("unexpected X-User-Token header %q", gotUser)
	}
}

func TestCustomerClientRetriesOnceAfterRefresh(t *testing.T) {
	tokens := &stubTokens{service: "stale", refreshed: "fresh", user: "user-token"}
	var seenTokens []string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		seenTokens = append(seenTokens, req.Header.Get("Authorization"))
		if len(seenTokens) == 1 {
			return jsonResponse(http.StatusUnauthorized, `{"message":"Invalid or expired API token."}`), nil
		}
		return jsonResponse(http.StatusOK, `{"cart":{"items":[],"total":"0"}}`), nil
	})
	c := newTestClient(t, tokens, rt)

	if _, err := c.Cart(context.Background()); err != nil {
		t.Fatalf("Cart: %v", err)
	}
	if tokens.refreshes != 1 {
		t.Fatalf("expected 1 refresh, got %d", tokens.refreshes)
	}
	if len(seenTokens) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(seenTokens))
	}
	if seenTokens[1] != "Bearer fresh" {
		t.Fatalf("retry used token %q", seenTokens[1])
	}
}

func TestCustomerClientDoesNotRetryTwice(t *testing.T) {
	tokens := &stubTokens{service: "stale", refreshed: "still-stale"}
	requests := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		requests++
		return jsonResponse(http.StatusUnauthorized, `{"message":"Invalid or expired API token."}`), nil
	})
	c := newTestClient(t, tokens, rt)

	_, err := c.Cart(context.Background())
	if !errors.Is(err, errors.CodeAuthExpired) {
		t.Fatalf("expected AUTH_EXPIRED, got %v", err)
	}
	if requests != 2 {
		t.Fatalf("expected exactly 2 requests, got %d", requests)
	}
	if tokens.refreshes != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", tokens.refreshes)
	}
}

func TestDeliveryClientLogsOutOnBodyMarker(t *testing.T) {
	tokens := &stubTokens{service: "svc", user: "user-token"}
	requests := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		requests++
		return jsonResponse(http.StatusOK, `{"error":{"message":"jwt malformed"}}`), nil
	})
	loggedOut := false
	c := newTestClient(t, tokens, rt,
		WithRole(RoleDelivery),
		WithLogoutHandler(func(context.Context) error {
			loggedOut = true
			return nil
		}),
	)

	err := c.RejectDelivery(context.Background(), "ord-1", "address unreachable")
	if !errors.Is(err, errors.CodeAuthExpired) {
		t.Fatalf("expected AUTH_EXPIRED, got %v", err)
	}
	if !loggedOut {
		t.Fatal("expected logout handler to fire")
	}
	if requests != 1 {
		t.Fatalf("delivery role must not retry, got %d requests", requests)
	}
	if tokens.refreshes != 0 {
		t.Fatalf("delivery role must not refresh, got %d", tokens.refreshes)
	}
}

func TestCreateOrderRequiresCreatedStatus(t *testing.T) {
	tokens := &stubTokens{service: "svc"}
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/checkout" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"order":{"id":"ord-1"}}`), nil
	})
	c := newTestClient(t, tokens, rt)

	_, err := c.CreateOrder(context.Background(), CreateOrderRequest{PaymentMethod: PaymentMethodCOD})
	if err == nil {
		t.Fatal("expected error for non-201 checkout response")
	}
}

func TestServerErrorCarriesEnvelopeMessage(t *testing.T) {
	tokens := &stubTokens{service: "svc"}
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusConflict, `{"error":{"message":"order already cancelled"}}`), nil
	})
	c := newTestClient(t, tokens, rt)

	err := c.CancelOrder(context.Background(), "ord-1", "Processing timeout")
	if !errors.Is(err, errors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT, got %v", err)
	}
	if !strings.Contains(err.Error(), "order already cancelled") {
		t.Fatalf("expected server message in error, got %v", err)
	}
}

func TestExchangerParsesAPIToken(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/auth/token" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"apiToken":"issued-token"}`), nil
	})
	e, err := NewTokenExchanger("https://backend.test", "client", "secret",
		WithExchangerHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("NewTokenExchanger: %v", err)
	}

	token, err := e.ExchangeServiceToken(context.Background())
	if err != nil {
		t.Fatalf("ExchangeServiceToken: %v", err)
	}
	if token != "issued-token" {
		t.Fatalf("unexpected token %q", token)
	}
}
