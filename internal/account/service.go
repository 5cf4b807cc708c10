package account

import (
	"context"
	"fmt"
	"sync"

	"github.com/buildmart/storefront-client/internal/api"
	"github.com/buildmart/storefront-client/pkg/logger"
)

type backend interface {
	Profile(ctx context.Context) (*api.Profile, error)
	Notifications(ctx context.Context) ([]api.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
}

// Service serves the user profile and notification feed. The profile is
// cached after the first successful fetch because payment-session
// creation needs it on a hot path.
type Service interface {
	Profile(ctx context.Context) (*api.Profile, error)
	InvalidateProfile()
	Notifications(ctx context.Context) ([]api.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
}

type service struct {
	backend backend
	logg    *logger.Logger

	mu      sync.Mutex
	profile *api.Profile
}

// NewService builds an account service over the backend client.
func NewService(client backend, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{backend: client, logg: logg}, nil
}

func (s *service) Profile(ctx context.Context) (*api.Profile, error) {
	s.mu.Lock()
	cached := s.profile
	s.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	profile, err := s.backend.Profile(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	return profile, nil
}

// InvalidateProfile drops the cached profile. Call it on logout or when
// the user token changes.
func (s *service) InvalidateProfile() {
	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()
}

func (s *service) Notifications(ctx context.Context) ([]api.Notification, error) {
	return s.backend.Notifications(ctx)
}

func (s *service) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return s.backend.MarkNotificationRead(ctx, notificationID)
}
