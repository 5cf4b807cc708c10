package api

import (
	"context"
	"net/http"

	"github.com/buildmart/storefront-client/pkg/errors"
)

// Cart fetches the current cart contents.
func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	var out struct {
		Cart Cart `json:"cart"`
	}
	if err := c.call(ctx, http.MethodGet, "/cart", nil, &out, 0); err != nil {
		return nil, err
	}
	return &out.Cart, nil
}

// AddCartItem adds a product to the cart and returns the updated cart.
func (c *Client) AddCartItem(ctx context.Context, productID string, quantity int) (*Cart, error) {
	if productID == "" {
		return nil, errors.New(errors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}
	var out struct {
		Cart Cart `json:"cart"`
	}
	body := map[string]any{"product_id": productID, "quantity": quantity}
	if err := c.call(ctx, http.MethodPost, "/cart/items", body, &out, 0); err != nil {
		return nil, err
	}
	return &out.Cart, nil
}

// UpdateCartItem changes the quantity of a cart row.
func (c *Client) UpdateCartItem(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	if itemID == "" {
		return nil, errors.New(errors.CodeValidation, "cart item id is required")
	}
	if quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive")
	}
	var out struct {
		Cart Cart `json:"cart"`
	}
	body := map[string]any{"quantity": quantity}
	if err := c.call(ctx, http.MethodPut, "/cart/items/"+itemID, body, &out, 0); err != nil {
		return nil, err
	}
	return &out.Cart, nil
}

// RemoveCartItem deletes a cart row and returns the updated cart.
func (c *Client) RemoveCartItem(ctx context.Context, itemID string) (*Cart, error) {
	if itemID == "" {
		return nil, errors.New(errors.CodeValidation, "cart item id is required")
	}
	var out struct {
		Cart Cart `json:"cart"`
	}
	if err := c.call(ctx, http.MethodDelete, "/cart/items/"+itemID, nil, &out, 0); err != nil {
		return nil, err
	}
	return &out.Cart, nil
}

// ClearCart empties the cart after a placed order.
func (c *Client) ClearCart(ctx context.Context) error {
	return c.call(ctx, http.MethodDelete, "/cart", nil, nil, 0)
}
