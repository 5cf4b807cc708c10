package api

import (
	"github.com/buildmart/storefront-client/pkg/types"
	"github.com/shopspring/decimal"
)

// PaymentMethod selects the checkout branch.
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cash_on_delivery"
	PaymentMethodUPILink PaymentMethod = "upi_link"
)

// IsValid reports whether the client knows how to orchestrate the method.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodUPILink:
		return true
	default:
		return false
	}
}

// PaymentStatus is the gateway-facing payment state of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

// IsTerminal reports whether polling should stop on this status.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusPaid, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// OrderStatus is the storefront lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// LineItem is one purchasable row on an order.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Order is the client-side view of a storefront order.
type Order struct {
	ID                 string          `json:"id"`
	Number             string          `json:"order_number"`
	ShippingAddress    types.Address   `json:"shipping_address"`
	BillingAddress     types.Address   `json:"billing_address"`
	PaymentMethod      PaymentMethod   `json:"payment_method"`
	Notes              string          `json:"notes,omitempty"`
	DeliveryDistanceKm float64         `json:"delivery_distance"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Tax                decimal.Decimal `json:"tax"`
	DeliveryCharge     decimal.Decimal `json:"delivery_charge"`
	Discount           decimal.Decimal `json:"discount"`
	Total              decimal.Decimal `json:"total"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	Status             OrderStatus     `json:"status"`
	Items              []LineItem      `json:"items"`
}

// CreateOrderRequest is the checkout payload. IdempotencyKey lets the
// backend collapse duplicate submissions of the same checkout attempt.
type CreateOrderRequest struct {
	IdempotencyKey   string        `json:"idempotency_key"`
	ShippingAddress  types.Address `json:"shipping_address"`
	BillingAddress   types.Address `json:"billing_address"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	Notes            string        `json:"notes,omitempty"`
	DeliveryDistance float64       `json:"delivery_distance"`
}

// CompleteDeliveryResponse covers both legs of the two-call completion
// protocol: the first call reports the OTP challenge, the second confirms.
type CompleteDeliveryResponse struct {
	Success bool   `json:"success"`
	OTPSent bool   `json:"otp_sent"`
	Message string `json:"message,omitempty"`
}

// CartItem is one row in the shopping cart.
type CartItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Cart is the current cart contents with the computed total.
type Cart struct {
	Items []CartItem      `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Notification is a storefront notification row.
type Notification struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Read  bool   `json:"read"`
}

// Profile identifies the authenticated user for payment-session creation.
type Profile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
}
