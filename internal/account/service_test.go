package account

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/buildmart/storefront-client/internal/api"
	"github.com/buildmart/storefront-client/pkg/logger"
)

type stubBackend struct {
	profile      *api.Profile
	profileErr   error
	profileCalls int
}

func (s *stubBackend) Profile(context.Context) (*api.Profile, error) {
	s.profileCalls++
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return s.profile, nil
}

func (s *stubBackend) Notifications(context.Context) ([]api.Notification, error) {
	return []api.Notification{{ID: "n1", Title: "Order placed"}}, nil
}

func (s *stubBackend) MarkNotificationRead(context.Context, string) error {
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

func TestProfileIsCachedAfterFirstFetch(t *testing.T) {
	backend := &stubBackend{profile: &api.Profile{ID: "u1", Email: "a@b.c"}}
	svc := newService(t, backend)

	for i := 0; i < 3; i++ {
		profile, err := svc.Profile(context.Background())
		if err != nil {
			t.Fatalf("Profile: %v", err)
		}
		if profile.ID != "u1" {
			t.Fatalf("unexpected profile id %q", profile.ID)
		}
	}
	if backend.profileCalls != 1 {
		t.Fatalf("expected one backend fetch, got %d", backend.profileCalls)
	}
}

func TestInvalidateProfileForcesRefetch(t *testing.T) {
	backend := &stubBackend{profile: &api.Profile{ID: "u1"}}
	svc := newService(t, backend)

	if _, err := svc.Profile(context.Background()); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	svc.InvalidateProfile()
	if _, err := svc.Profile(context.Background()); err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if backend.profileCalls != 2 {
		t.Fatalf("expected two backend fetches, got %d", backend.profileCalls)
	}
}

func TestProfileErrorIsNotCached(t *testing.T) {
	backend := &stubBackend{profileErr: fmt.Errorf("backend unavailable")}
	svc := newService(t, backend)

	if _, err := svc.Profile(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	backend.profileErr = nil
	backend.profile = &api.Profile{ID: "u1"}
	profile, err := svc.Profile(context.Background())
	if err != nil {
		t.Fatalf("Profile after recovery: %v", err)
	}
	if profile.ID != "u1" {
		t.Fatalf("unexpected profile id %q", profile.ID)
	}
}
