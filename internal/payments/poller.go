package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/buildmart/storefront-client/internal/api"
	"github.com/buildmart/storefront-client/pkg/config"
	"github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/logger"
	"github.com/buildmart/storefront-client/pkg/metrics"
)

// CancelReasonTimeout is the backend-visible reason attached to orders
// canceled because payment never confirmed.
const CancelReasonTimeout = "Processing timeout"

// Outcome is the single terminal result of a polling run.
type Outcome string

const (
	OutcomePaid    Outcome = "paid"
	OutcomeFailed  Outcome = "failed"
	OutcomeTimeout Outcome = "timeout"
	OutcomeStopped Outcome = "stopped"
)

type backend interface {
	OrderPaymentStatus(ctx context.Context, orderID string) (api.PaymentStatus, error)
	CancelOrder(ctx context.Context, orderID, reason string) error
}

// Sink receives exactly one callback per polling run.
type Sink interface {
	OnPaid(ctx context.Context, orderID string)
	OnFailed(ctx context.Context, orderID string)
	OnTimeout(ctx context.Context, orderID string)
}

// PollerParams configure a Poller.
type PollerParams struct {
	Backend backend
	Sink    Sink
	Logger  *logger.Logger
	Metrics *metrics.WorkflowMetrics
	Config  config.PollerConfig
}

// Poller watches an order's payment status after a UPI handoff. It
// resolves each order to exactly one outcome: paid, failed, or the
// timeout cancellation. Webhook notifications short-circuit the wait.
type Poller struct {
	backend    backend
	sink       Sink
	logg       *logger.Logger
	metrics    *metrics.WorkflowMetrics
	interval   time.Duration
	timeout    time.Duration
	graceDelay time.Duration

	mu      sync.Mutex
	watches map[string]chan api.PaymentStatus
}

// NewPoller builds a payment status poller.
func NewPoller(params PollerParams) (*Poller, error) {
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if params.Sink == nil {
		return nil, fmt.Errorf("sink required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.GraceDelay < 0 {
		cfg.GraceDelay = 0
	}
	return &Poller{
		backend:    params.Backend,
		sink:       params.Sink,
		logg:       params.Logger,
		metrics:    params.Metrics,
		interval:   cfg.Interval,
		timeout:    cfg.Timeout,
		graceDelay: cfg.GraceDelay,
		watches:    make(map[string]chan api.PaymentStatus),
	}, nil
}

// NotifyPaid short-circuits an active polling run with a webhook-borne
// paid signal. Unknown orders are ignored.
func (p *Poller) NotifyPaid(orderID string) {
	p.notify(orderID, api.PaymentStatusPaid)
}

// NotifyFailed short-circuits an active polling run with a failure.
func (p *Poller) NotifyFailed(orderID string) {
	p.notify(orderID, api.PaymentStatusFailed)
}

func (p *Poller) notify(orderID string, status api.PaymentStatus) {
	p.mu.Lock()
	ch := p.watches[orderID]
	p.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- status:
	default:
	}
}

func (p *Poller) register(orderID string) (chan api.PaymentStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.watches[orderID]; exists {
		return nil, errors.New(errors.CodeStateConflict, "order is already being polled")
	}
	ch := make(chan api.PaymentStatus, 1)
	p.watches[orderID] = ch
	return ch, nil
}

func (p *Poller) unregister(orderID string) {
	p.mu.Lock()
	delete(p.watches, orderID)
	p.mu.Unlock()
}

// Run polls until the payment reaches a terminal status or the timeout
// elapses. Transient backend errors do not abort the run.
func (p *Poller) Run(ctx context.Context, orderID string) (Outcome, error) {
	if orderID == "" {
		return OutcomeStopped, errors.New(errors.CodeValidation, "order id is required")
	}
	signal, err := p.register(orderID)
	if err != nil {
		return OutcomeStopped, err
	}
	defer p.unregister(orderID)

	ctx = p.logg.WithOrderID(ctx, orderID)
	p.logg.Info(ctx, "payment polling started")
	start := time.Now()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(p.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logg.Info(ctx, "payment polling canceled")
			p.observe(OutcomeStopped, start)
			return OutcomeStopped, errors.Wrap(errors.CodeTimeout, ctx.Err(), "payment polling interrupted")

		case status := <-signal:
			p.logg.Info(p.logg.WithField(ctx, "status", string(status)), "webhook resolved payment status")
			if outcome, done := p.settle(ctx, orderID, status, start); done {
				return outcome, nil
			}

		case <-deadline.C:
			return p.settleTimeout(ctx, orderID, start)

		case <-ticker.C:
			p.metrics.IncPollTick()
			status, err := p.backend.OrderPaymentStatus(ctx, orderID)
			if err != nil {
				p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "payment status poll failed")
				continue
			}
			if outcome, done := p.settle(ctx, orderID, status, start); done {
				return outcome, nil
			}
		}
	}
}

func (p *Poller) settle(ctx context.Context, orderID string, status api.PaymentStatus, start time.Time) (Outcome, bool) {
	switch status {
	case api.PaymentStatusPaid:
		p.logg.Info(ctx, "payment confirmed")
		p.sink.OnPaid(ctx, orderID)
		p.observe(OutcomePaid, start)
		return OutcomePaid, true
	case api.PaymentStatusFailed:
		p.logg.Warn(ctx, "payment failed")
		p.sink.OnFailed(ctx, orderID)
		p.observe(OutcomeFailed, start)
		return OutcomeFailed, true
	default:
		return "", false
	}
}

// settleTimeout gives the gateway one last grace window, then cancels
// the order so stock is not held against an unpaid checkout.
func (p *Poller) settleTimeout(ctx context.Context, orderID string, start time.Time) (Outcome, error) {
	if p.graceDelay > 0 {
		grace := time.NewTimer(p.graceDelay)
		defer grace.Stop()
		select {
		case <-ctx.Done():
			p.observe(OutcomeStopped, start)
			return OutcomeStopped, errors.Wrap(errors.CodeTimeout, ctx.Err(), "payment polling interrupted")
		case <-grace.C:
		}
	}

	if status, err := p.backend.OrderPaymentStatus(ctx, orderID); err == nil {
		if outcome, done := p.settle(ctx, orderID, status, start); done {
			return outcome, nil
		}
	}

	// The timeout is handed to the sink even when the cancel call
	// fails: the order may stay open server-side, but the caller must
	// not be left waiting on a payment that will never confirm.
	cancelErr := p.backend.CancelOrder(ctx, orderID, CancelReasonTimeout)
	if cancelErr != nil {
		p.logg.Error(ctx, "cancel after payment timeout", cancelErr)
	} else {
		p.logg.Warn(ctx, "order canceled after payment timeout")
	}
	p.sink.OnTimeout(ctx, orderID)
	p.observe(OutcomeTimeout, start)
	return OutcomeTimeout, cancelErr
}

func (p *Poller) observe(outcome Outcome, start time.Time) {
	p.metrics.ObservePollOutcome(string(outcome), time.Since(start))
}
