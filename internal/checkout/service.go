package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/buildmart/storefront-client/internal/api"
	"github.com/buildmart/storefront-client/internal/geo"
	"github.com/buildmart/storefront-client/pkg/cashfree"
	"github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/gst"
	"github.com/buildmart/storefront-client/pkg/logger"
	"github.com/buildmart/storefront-client/pkg/maps"
	"github.com/buildmart/storefront-client/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// State tracks where a checkout attempt sits in its lifecycle.
type State string

const (
	StateFormEntry              State = "FORM_ENTRY"
	StateValidating             State = "VALIDATING"
	StateSubmittingOrder        State = "SUBMITTING_ORDER"
	StateCreatingPaymentSession State = "CREATING_PAYMENT_SESSION"
	StateAwaitingPayment        State = "AWAITING_PAYMENT"
	StateOrderPlaced            State = "ORDER_PLACED"
)

type backend interface {
	Cart(ctx context.Context) (*api.Cart, error)
	ClearCart(ctx context.Context) error
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*api.Order, error)
}

type gateway interface {
	CreateOrder(ctx context.Context, req cashfree.CreateOrderRequest) (*cashfree.GatewayOrder, error)
	CreateUPISession(ctx context.Context, paymentSessionID, channel string) (*cashfree.UPISession, error)
}

type profileSource interface {
	Profile(ctx context.Context) (*api.Profile, error)
}

type geocoder interface {
	Geocode(ctx context.Context, address string) (*maps.GeocodeResult, error)
	PincodeLookup(ctx context.Context, pincode, country string) (*maps.GeocodeResult, error)
}

type distanceValidator interface {
	Validate(ctx context.Context, destination types.LatLng) (*geo.Report, error)
	RadiusKm() float64
}

// Form is the checkout payload entered by the user. Destination may be
// left zero, in which case the shipping address is geocoded.
type Form struct {
	ShippingAddress       types.Address     `validate:"required"`
	BillingSameAsShipping bool              `validate:"-"`
	BillingAddress        types.Address     `validate:"-"`
	PaymentMethod         api.PaymentMethod `validate:"required"`
	Notes                 string            `validate:"max=500"`
	Destination           types.LatLng      `validate:"-"`
}

// PaymentSession is the gateway handoff for a UPI order.
type PaymentSession struct {
	GatewayOrderID   string
	PaymentSessionID string
	RedirectURL      string
}

// Submission is the result of a completed SubmitOrder call.
type Submission struct {
	Order   *api.Order
	State   State
	Payment *PaymentSession
}

// Service orchestrates the checkout flow from form validation through
// order placement and, for UPI, gateway session creation.
type Service interface {
	SubmitOrder(ctx context.Context, form Form) (*Submission, error)
	InitiatePaymentSession(ctx context.Context, order *api.Order) (*PaymentSession, error)
	AutofillFromGSTIN(ctx context.Context, gstin string) (*types.Address, error)
	ResolvePincode(ctx context.Context, pincode, country string) (*types.Address, error)
}

type gstVerifier interface {
	Verify(ctx context.Context, gstin string) (*gst.Registration, error)
}

type service struct {
	backend  backend
	gateway  gateway
	profiles profileSource
	geocoder geocoder
	gst      gstVerifier
	distance distanceValidator
	logg     *logger.Logger
	validate *validator.Validate

	mu            sync.Mutex
	gatewayOrders map[string]*cashfree.GatewayOrder
}

// NewService wires the checkout orchestrator. The geocoder and GST
// verifier are optional; without them pincode resolution and GSTIN
// autofill are unavailable but checkout itself still works.
func NewService(client backend, gw gateway, profiles profileSource, geocoder geocoder, verifier gstVerifier, distance distanceValidator, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile source required")
	}
	if distance == nil {
		return nil, fmt.Errorf("distance validator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		backend:       client,
		gateway:       gw,
		profiles:      profiles,
		geocoder:      geocoder,
		gst:           verifier,
		distance:      distance,
		logg:          logg,
		validate:      validator.New(),
		gatewayOrders: make(map[string]*cashfree.GatewayOrder),
	}, nil
}

// SubmitOrder runs the full checkout: validation, the deliverability
// gate, order creation, and for UPI the payment session handoff. Cash
// on delivery never touches the gateway.
func (s *service) SubmitOrder(ctx context.Context, form Form) (*Submission, error) {
	ctx = s.logg.WithField(ctx, "payment_method", string(form.PaymentMethod))

	if err := s.validateForm(ctx, &form); err != nil {
		return nil, err
	}

	report, err := s.checkDeliverability(ctx, form)
	if err != nil {
		return nil, err
	}

	cart, err := s.backend.Cart(ctx)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, errors.New(errors.CodeValidation, "cart is empty")
	}

	billing := form.BillingAddress
	if form.BillingSameAsShipping {
		billing = form.ShippingAddress
	}
	order, err := s.backend.CreateOrder(ctx, api.CreateOrderRequest{
		IdempotencyKey:   uuid.NewString(),
		ShippingAddress:  form.ShippingAddress,
		BillingAddress:   billing,
		PaymentMethod:    form.PaymentMethod,
		Notes:            strings.TrimSpace(form.Notes),
		DeliveryDistance: report.DistanceKm,
	})
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	if form.PaymentMethod == api.PaymentMethodCOD {
		s.clearCart(ctx)
		s.logg.Info(ctx, "order placed with cash on delivery")
		return &Submission{Order: order, State: StateOrderPlaced}, nil
	}

	payment, err := s.InitiatePaymentSession(ctx, order)
	if err != nil {
		// The order exists; the caller retries the session against it.
		return &Submission{Order: order, State: StateCreatingPaymentSession}, err
	}
	s.clearCart(ctx)
	s.logg.Info(ctx, "order awaiting upi payment")
	return &Submission{Order: order, State: StateAwaitingPayment, Payment: payment}, nil
}

// InitiatePaymentSession registers the order with the gateway and opens
// a UPI session. Retrying against the same order reuses the gateway
// order instead of creating a duplicate.
func (s *service) InitiatePaymentSession(ctx context.Context, order *api.Order) (*PaymentSession, error) {
	if order == nil || order.ID == "" {
		return nil, errors.New(errors.CodeValidation, "order is required")
	}

	profile, err := s.profiles.Profile(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeProfileNotLoaded, err, "user profile unavailable for payment session")
	}

	gwOrder, err := s.gatewayOrder(ctx, order, profile)
	if err != nil {
		return nil, err
	}

	upi, err := s.gateway.CreateUPISession(ctx, gwOrder.PaymentSessionID, cashfree.ChannelLink)
	if err != nil {
		return nil, err
	}
	return &PaymentSession{
		GatewayOrderID:   gwOrder.OrderID,
		PaymentSessionID: gwOrder.PaymentSessionID,
		RedirectURL:      upi.RedirectURL,
	}, nil
}

func (s *service) gatewayOrder(ctx context.Context, order *api.Order, profile *api.Profile) (*cashfree.GatewayOrder, error) {
	s.mu.Lock()
	cached := s.gatewayOrders[order.ID]
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, cashfree.CreateOrderRequest{
		OrderID:  gatewayOrderID(order.ID),
		Amount:   order.Total,
		Currency: "INR",
		Customer: cashfree.CustomerDetails{
			CustomerID:    profile.ID,
			CustomerEmail: profile.Email,
			CustomerPhone: profile.Phone,
		},
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.gatewayOrders[order.ID] = gwOrder
	s.mu.Unlock()
	return gwOrder, nil
}

func (s *service) validateForm(ctx context.Context, form *Form) error {
	if !form.PaymentMethod.IsValid() {
		return errors.New(errors.CodeValidation, fmt.Sprintf("unsupported payment method %q", form.PaymentMethod))
	}
	if err := s.validate.Struct(form); err != nil {
		return errors.Wrap(errors.CodeValidation, err, "checkout form invalid")
	}
	if !form.ShippingAddress.IsComplete() {
		return errors.New(errors.CodeValidation, "shipping address is incomplete")
	}
	if !form.BillingSameAsShipping && !form.BillingAddress.IsComplete() {
		return errors.New(errors.CodeValidation, "billing address is incomplete")
	}
	return nil
}

func (s *service) checkDeliverability(ctx context.Context, form Form) (*geo.Report, error) {
	destination := form.Destination
	if destination.IsZero() {
		if s.geocoder == nil {
			return nil, errors.New(errors.CodeValidation, "delivery coordinates are required")
		}
		result, err := s.geocoder.Geocode(ctx, form.ShippingAddress.String())
		if err != nil {
			return nil, errors.Wrap(errors.CodeValidation, err, "shipping address could not be located")
		}
		destination = result.Location
	}

	report, err := s.distance.Validate(ctx, destination)
	if err != nil {
		return nil, err
	}
	if !report.WithinRadius {
		return nil, errors.New(errors.CodeValidation,
			fmt.Sprintf("delivery address is %.1fkm away, outside the %.0fkm delivery radius", report.DistanceKm, s.distance.RadiusKm())).
			WithDetails(map[string]any{"distance_km": report.DistanceKm})
	}
	return report, nil
}

func (s *service) clearCart(ctx context.Context) {
	if err := s.backend.ClearCart(ctx); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart clear after order failed")
	}
}

// gatewayOrderID derives a gateway-safe order reference. The suffix
// keeps retried registrations distinguishable in gateway dashboards
// while the storefront order id stays the stable prefix.
func gatewayOrderID(orderID string) string {
	return orderID + "-" + uuid.NewString()[:8]
}
