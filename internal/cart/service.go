package cart

import (
	"context"
	"fmt"

	"github.com/buildmart/storefront-client/internal/api"
	"github.com/buildmart/storefront-client/pkg/logger"
)

type backend interface {
	Cart(ctx context.Context) (*api.Cart, error)
	AddCartItem(ctx context.Context, productID string, quantity int) (*api.Cart, error)
	UpdateCartItem(ctx context.Context, itemID string, quantity int) (*api.Cart, error)
	RemoveCartItem(ctx context.Context, itemID string) (*api.Cart, error)
	ClearCart(ctx context.Context) error
}

// Service keeps the local cart view in sync with the backend. Totals
// are always the server's numbers, never recomputed locally.
type Service interface {
	Get(ctx context.Context) (*api.Cart, error)
	AddItem(ctx context.Context, productID string, quantity int) (*api.Cart, error)
	UpdateItem(ctx context.Context, itemID string, quantity int) (*api.Cart, error)
	RemoveItem(ctx context.Context, itemID string) (*api.Cart, error)
	Clear(ctx context.Context) error
}

type service struct {
	backend backend
	logg    *logger.Logger
}

// NewService builds a cart service over the backend client.
func NewService(client backend, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{backend: client, logg: logg}, nil
}

func (s *service) Get(ctx context.Context) (*api.Cart, error) {
	return s.backend.Cart(ctx)
}

func (s *service) AddItem(ctx context.Context, productID string, quantity int) (*api.Cart, error) {
	cart, err := s.backend.AddCartItem(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, cart), nil
}

func (s *service) UpdateItem(ctx context.Context, itemID string, quantity int) (*api.Cart, error) {
	cart, err := s.backend.UpdateCartItem(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, cart), nil
}

func (s *service) RemoveItem(ctx context.Context, itemID string) (*api.Cart, error) {
	cart, err := s.backend.RemoveCartItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, cart), nil
}

func (s *service) Clear(ctx context.Context) error {
	return s.backend.ClearCart(ctx)
}

// reconcile re-fetches the cart after a mutation so server-side pricing
// adjustments land immediately. The mutation's own response stands in
// when the re-fetch fails.
func (s *service) reconcile(ctx context.Context, fallback *api.Cart) *api.Cart {
	fresh, err := s.backend.Cart(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart re-fetch failed, keeping mutation response")
		return fallback
	}
	return fresh
}
