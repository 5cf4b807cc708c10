package cart

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/buildmart/storefront-client/internal/api"
	"github.com/buildmart/storefront-client/pkg/logger"
	"github.com/shopspring/decimal"
)

type stubBackend struct {
	cart      *api.Cart
	cartErr   error
	mutated   *api.Cart
	fetches   int
	mutations int
}

func (s *stubBackend) Cart(context.Context) (*api.Cart, error) {
	s.fetches++
	if s.cartErr != nil {
		return nil, s.cartErr
	}
	return s.cart, nil
}

func (s *stubBackend) AddCartItem(context.Context, string, int) (*api.Cart, error) {
	s.mutations++
	return s.mutated, nil
}

func (s *stubBackend) UpdateCartItem(context.Context, string, int) (*api.Cart, error) {
	s.mutations++
	return s.mutated, nil
}

func (s *stubBackend) RemoveCartItem(context.Context, string) (*api.Cart, error) {
	s.mutations++
	return s.mutated, nil
}

func (s *stubBackend) ClearCart(context.Context) error {
	return nil
}

func newService(t *testing.T, backend *stubBackend) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(backend, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestAddItemReturnsReconciledCart(t *testing.T) {
	serverCart := &api.Cart{Total: decimal.RequireFromString("240.00")}
	backend := &stubBackend{
		cart:    serverCart,
		mutated: &api.Cart{Total: decimal.RequireFromString("200.00")},
	}
	svc := newService(t, backend)

	cart, err := svc.AddItem(context.Background(), "prod-1", 2)
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if !cart.Total.Equal(serverCart.Total) {
		t.Fatalf("expected re-fetched total %s, got %s", serverCart.Total, cart.Total)
	}
	if backend.fetches != 1 {
		t.Fatalf("expected one re-fetch, got %d", backend.fetches)
	}
}

func TestMutationResponseStandsInWhenRefetchFails(t *testing.T) {
	mutated := &api.Cart{Total: decimal.RequireFromString("99.00")}
	backend := &stubBackend{
		cartErr: fmt.Errorf("backend unavailable"),
		mutated: mutated,
	}
	svc := newService(t, backend)

	cart, err := svc.RemoveItem(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if !cart.Total.Equal(mutated.Total) {
		t.Fatalf("expected mutation total %s, got %s", mutated.Total, cart.Total)
	}
}
