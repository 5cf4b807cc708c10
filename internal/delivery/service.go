package delivery

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/buildmart/storefront-client/internal/api"
	"github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/logger"
)

// ChallengeState is where an order sits in the OTP handshake.
type ChallengeState string

const (
	ChallengeNone      ChallengeState = "NONE"
	ChallengeRequested ChallengeState = "OTP_REQUESTED"
	ChallengeVerified  ChallengeState = "VERIFIED"
)

var otpPattern = regexp.MustCompile(`^[0-9]{6}$`)

type backend interface {
	Order(ctx context.Context, orderID string) (*api.Order, error)
	RejectDelivery(ctx context.Context, orderID, reason string) error
	RequestDeliveryOTP(ctx context.Context, orderID string) (*api.CompleteDeliveryResponse, error)
	ConfirmDelivery(ctx context.Context, orderID, otp string) (*api.CompleteDeliveryResponse, error)
}

// Progress is the agent-facing view of an active delivery.
type Progress struct {
	Checked   int
	Total     int
	Challenge ChallengeState
}

// Complete reports whether the handover gesture is satisfied: at least
// one line item checked off against the physical goods.
func (p Progress) Complete() bool {
	return p.Checked > 0
}

// Service drives the agent-side delivery confirmation flow: the item
// checklist, the OTP handshake, and rejection. Completion is gated
// twice: at least one item must be checked against the goods before an
// OTP can be requested, and the customer's OTP must verify before the
// order closes. The checklist never leaves the client.
type Service interface {
	StartDelivery(ctx context.Context, orderID string) (*Progress, error)
	MarkItemChecked(ctx context.Context, orderID, productID string) (*Progress, error)
	Progress(orderID string) (*Progress, error)
	RequestOTP(ctx context.Context, orderID string) error
	ConfirmOTP(ctx context.Context, orderID, otp string) error
	Reject(ctx context.Context, orderID, reason string) error
}

type deliveryState struct {
	checklist map[string]bool
	challenge ChallengeState
}

func (d *deliveryState) progress() *Progress {
	checked := 0
	for _, ok := range d.checklist {
		if ok {
			checked++
		}
	}
	return &Progress{Checked: checked, Total: len(d.checklist), Challenge: d.challenge}
}

func (d *deliveryState) anyChecked() bool {
	for _, ok := range d.checklist {
		if ok {
			return true
		}
	}
	return false
}

type service struct {
	backend backend
	logg    *logger.Logger

	mu     sync.Mutex
	active map[string]*deliveryState
}

// NewService builds the delivery confirmation service.
func NewService(client backend, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		backend: client,
		logg:    logg,
		active:  make(map[string]*deliveryState),
	}, nil
}

// StartDelivery loads the order and seeds the item checklist.
func (s *service) StartDelivery(ctx context.Context, orderID string) (*Progress, error) {
	order, err := s.backend.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if len(order.Items) == 0 {
		return nil, errors.New(errors.CodeStateConflict, "order has no items to deliver")
	}

	checklist := make(map[string]bool, len(order.Items))
	for _, item := range order.Items {
		checklist[item.ProductID] = false
	}
	state := &deliveryState{checklist: checklist, challenge: ChallengeNone}

	s.mu.Lock()
	s.active[orderID] = state
	progress := state.progress()
	s.mu.Unlock()

	s.logg.Info(s.logg.WithOrderID(ctx, orderID), "delivery started")
	return progress, nil
}

// MarkItemChecked ticks one line item off the handover checklist.
func (s *service) MarkItemChecked(ctx context.Context, orderID, productID string) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.stateLocked(orderID)
	if err != nil {
		return nil, err
	}
	if _, ok := state.checklist[productID]; !ok {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("product %s is not on this order", productID))
	}
	state.checklist[productID] = true
	return state.progress(), nil
}

// Progress reports the checklist and challenge state for an active
// delivery.
func (s *service) Progress(orderID string) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.stateLocked(orderID)
	if err != nil {
		return nil, err
	}
	return state.progress(), nil
}

// RequestOTP asks the backend to send the customer a one-time password.
// At least one item must be checked off first. Requesting again resends.
func (s *service) RequestOTP(ctx context.Context, orderID string) error {
	s.mu.Lock()
	state, err := s.stateLocked(orderID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !state.anyChecked() {
		progress := state.progress()
		s.mu.Unlock()
		return errors.New(errors.CodeStateConflict,
			fmt.Sprintf("checklist untouched: 0 of %d items checked", progress.Total))
	}
	if state.challenge == ChallengeVerified {
		s.mu.Unlock()
		return errors.New(errors.CodeStateConflict, "delivery already verified")
	}
	s.mu.Unlock()

	resp, err := s.backend.RequestDeliveryOTP(ctx, orderID)
	if err != nil {
		return err
	}
	if !resp.OTPSent {
		// Success without a dispatched OTP is the backend waiving the
		// challenge: the completion call already went through.
		if resp.Success {
			s.mu.Lock()
			delete(s.active, orderID)
			s.mu.Unlock()
			s.logg.Info(s.logg.WithOrderID(ctx, orderID), "delivery confirmed without otp")
			return nil
		}
		return errors.New(errors.CodeDependency, "backend did not confirm otp dispatch")
	}

	s.mu.Lock()
	if state, ok := s.active[orderID]; ok {
		state.challenge = ChallengeRequested
	}
	s.mu.Unlock()
	s.logg.Info(s.logg.WithOrderID(ctx, orderID), "delivery otp requested")
	return nil
}

// ConfirmOTP submits the customer's one-time password. The value is
// checked locally before the network call; a wrong password keeps the
// challenge open for another attempt.
func (s *service) ConfirmOTP(ctx context.Context, orderID, otp string) error {
	if !otpPattern.MatchString(otp) {
		return errors.New(errors.CodeValidation, "otp must be 6 digits")
	}

	s.mu.Lock()
	state, err := s.stateLocked(orderID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if state.challenge != ChallengeRequested {
		s.mu.Unlock()
		return errors.New(errors.CodeStateConflict, "no otp challenge is open for this order")
	}
	s.mu.Unlock()

	resp, err := s.backend.ConfirmDelivery(ctx, orderID, otp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(errors.CodeValidation, "otp rejected").
			WithDetails(map[string]any{"message": resp.Message})
	}

	s.mu.Lock()
	delete(s.active, orderID)
	s.mu.Unlock()
	s.logg.Info(s.logg.WithOrderID(ctx, orderID), "delivery confirmed")
	return nil
}

// Reject declines the delivery with a reason and drops any local state.
func (s *service) Reject(ctx context.Context, orderID, reason string) error {
	if reason == "" {
		return errors.New(errors.CodeValidation, "rejection reason is required")
	}
	if err := s.backend.RejectDelivery(ctx, orderID, reason); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.active, orderID)
	s.mu.Unlock()
	s.logg.Info(s.logg.WithOrderID(ctx, orderID), "delivery rejected")
	return nil
}

func (s *service) stateLocked(orderID string) (*deliveryState, error) {
	state, ok := s.active[orderID]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "no active delivery for this order")
	}
	return state, nil
}
