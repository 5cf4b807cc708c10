// Package storefrontclient wires the checkout, payment, and delivery
// workflows of the BuildMart storefront into one embeddable client.
package storefrontclient

import (
	"context"
	"fmt"

	"github.com/buildmart/storefront-client/internal/account"
	"github.com/buildmart/storefront-client/internal/api"
	"github.com/buildmart/storefront-client/internal/cart"
	"github.com/buildmart/storefront-client/internal/checkout"
	"github.com/buildmart/storefront-client/internal/delivery"
	"github.com/buildmart/storefront-client/internal/geo"
	"github.com/buildmart/storefront-client/internal/payments"
	"github.com/buildmart/storefront-client/internal/session"
	"github.com/buildmart/storefront-client/internal/storage"
	"github.com/buildmart/storefront-client/pkg/cashfree"
	"github.com/buildmart/storefront-client/pkg/config"
	"github.com/buildmart/storefront-client/pkg/gst"
	"github.com/buildmart/storefront-client/pkg/logger"
	"github.com/buildmart/storefront-client/pkg/maps"
	"github.com/buildmart/storefront-client/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Client aggregates the storefront workflows. Construct it once at
// startup and share it; every surface is safe for concurrent use.
type Client struct {
	Session  *session.Provider
	Account  account.Service
	Cart     cart.Service
	Checkout checkout.Service
	Delivery delivery.Service
	Payments *payments.Poller
	Geo      *geo.Validator

	store storage.Store
	logg  *logger.Logger
}

// Option customizes client construction.
type Option func(*options)

type options struct {
	sink       payments.Sink
	registerer prometheus.Registerer
}

// WithPaymentSink overrides the default payment outcome sink.
func WithPaymentSink(sink payments.Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sink = sink
		}
	}
}

// WithMetricsRegisterer overrides where workflow metrics register.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		if reg != nil {
			o.registerer = reg
		}
	}
}

// New builds the full client from configuration. Optional providers
// (maps, GST verification) are wired only when configured; the rest of
// the client works without them.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	o := &options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(o)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	workflowMetrics := metrics.NewWorkflowMetrics(o.registerer)

	exchanger, err := api.NewTokenExchanger(cfg.Backend.BaseURL, cfg.Backend.ClientID, cfg.Backend.ClientSecret)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	provider, err := session.NewProvider(ctx, session.ProviderParams{
		Store:     store,
		Exchanger: exchanger,
		Logger:    logg,
		Metrics:   workflowMetrics,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	customerClient, err := api.NewClient(cfg.Backend.BaseURL, provider, logg,
		api.WithRole(api.RoleCustomer),
		api.WithMetrics(workflowMetrics),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	deliveryClient, err := api.NewClient(cfg.Backend.BaseURL, provider, logg,
		api.WithRole(api.RoleDelivery),
		api.WithMetrics(workflowMetrics),
		api.WithLogoutHandler(provider.Logout),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	gatewayClient, err := cashfree.NewClient(cfg.Cashfree.AppID, cfg.Cashfree.SecretKey,
		cashfree.WithBaseURL(cfg.Cashfree.BaseURL),
		cashfree.WithAPIVersion(cfg.Cashfree.APIVersion),
		cashfree.WithNotifyURL(cfg.Cashfree.NotifyURL),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var mapsClient *maps.Client
	if cfg.GoogleMaps.APIKey != "" {
		mapsClient, err = maps.NewClient(cfg.GoogleMaps.APIKey, maps.WithTimeout(cfg.GoogleMaps.Timeout))
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	var gstClient *gst.Client
	if cfg.GST.BaseURL != "" {
		gstClient, err = gst.NewClient(cfg.GST.BaseURL, cfg.GST.APIKey)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}

	var router geo.Router
	if mapsClient != nil {
		router = mapsClient
	}
	validator, err := geo.NewValidator(cfg.Delivery, cfg.GoogleMaps.Timeout, router, logg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	accountService, err := account.NewService(customerClient, logg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	cartService, err := cart.NewService(customerClient, logg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	checkoutService, err := checkout.NewService(customerClient, gatewayClient, accountService, mapsClient, gstClient, validator, logg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	deliveryService, err := delivery.NewService(deliveryClient, logg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	sink := o.sink
	if sink == nil {
		sink = &notificationSink{account: accountService, logg: logg}
	}
	poller, err := payments.NewPoller(payments.PollerParams{
		Backend: customerClient,
		Sink:    sink,
		Logger:  logg,
		Metrics: workflowMetrics,
		Config:  cfg.Poller,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Client{
		Session:  provider,
		Account:  accountService,
		Cart:     cartService,
		Checkout: checkoutService,
		Delivery: deliveryService,
		Payments: poller,
		Geo:      validator,
		store:    store,
		logg:     logg,
	}, nil
}

// Store exposes the local key-value store for auxiliary consumers such
// as the webhook idempotency guard.
func (c *Client) Store() storage.Store {
	return c.store
}

// Close releases the client's local resources.
func (c *Client) Close() error {
	var err error
	if c.store != nil {
		err = multierr.Append(err, c.store.Close())
	}
	return err
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch {
	case cfg.Storage.IsRedis():
		return storage.NewRedisStore(ctx, cfg.Redis)
	case cfg.Storage.IsMemory():
		return storage.NewMemoryStore(), nil
	default:
		return storage.NewSQLiteStore(cfg.Storage.Path)
	}
}

// notificationSink is the default payment outcome handler. It refreshes
// the notification feed so the payment push shows up without waiting
// for the next app foreground.
type notificationSink struct {
	account account.Service
	logg    *logger.Logger
}

func (s *notificationSink) OnPaid(ctx context.Context, orderID string) {
	s.refresh(s.logg.WithOrderID(ctx, orderID), "payment confirmed")
}

func (s *notificationSink) OnFailed(ctx context.Context, orderID string) {
	s.refresh(s.logg.WithOrderID(ctx, orderID), "payment failed")
}

func (s *notificationSink) OnTimeout(ctx context.Context, orderID string) {
	s.refresh(s.logg.WithOrderID(ctx, orderID), "payment timed out, order canceled")
}

func (s *notificationSink) refresh(ctx context.Context, msg string) {
	s.logg.Info(ctx, msg)
	if _, err := s.account.Notifications(ctx); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "notification refresh failed")
	}
}
