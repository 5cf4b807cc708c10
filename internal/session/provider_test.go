package session

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/buildmart/storefront-client/internal/storage"
	"github.com/buildmart/storefront-client/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

type stubExchanger struct {
	calls   atomic.Int64
	block   chan struct{}
	token   string
	failErr error
}

func (s *stubExchanger) ExchangeServiceToken(ctx context.Context) (string, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.failErr != nil {
		return "", s.failErr
	}
	return s.token, nil
}

func newTestProvider(t *testing.T, exchanger Exchanger) (*Provider, storage.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	provider, err := NewProvider(context.Background(), ProviderParams{
		Store:     store,
		Exchanger: exchanger,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return provider, store
}

func TestServiceTokenLazyExchangeThenCached(t *testing.T) {
	exchanger := &stubExchanger{token: "svc-1"}
	provider, store := newTestProvider(t, exchanger)
	ctx := context.Background()

	token, err := provider.ServiceToken(ctx)
	if err != nil {
		t.Fatalf("service token: %v", err)
	}
	if token != "svc-1" {
		t.Fatalf("unexpected token %q", token)
	}
	if got := exchanger.calls.Load(); got != 1 {
		t.Fatalf("expected 1 exchange, got %d", got)
	}

	// Second read must come from cache.
	if _, err := provider.ServiceToken(ctx); err != nil {
		t.Fatalf("cached service token: %v", err)
	}
	if got := exchanger.calls.Load(); got != 1 {
		t.Fatalf("cache miss triggered exchange, calls=%d", got)
	}

	persisted, err := store.Get(ctx, storage.KeyServiceToken)
	if err != nil || persisted != "svc-1" {
		t.Fatalf("token not persisted: %q %v", persisted, err)
	}
}

func TestForceRefreshIsSingleFlight(t *testing.T) {
	exchanger := &stubExchanger{token: "svc-2", block: make(chan struct{})}
	provider, _ := newTestProvider(t, exchanger)
	ctx := context.Background()

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			token, err := provider.ForceRefreshServiceToken(ctx)
			if err != nil {
				t.Errorf("refresh %d: %v", idx, err)
				return
			}
			results[idx] = token
		}(i)
	}

	// Give every goroutine time to join the in-flight refresh.
	time.Sleep(50 * time.Millisecond)
	close(exchanger.block)
	wg.Wait()

	if got := exchanger.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 exchange, got %d", got)
	}
	for i, token := range results {
		if token != "svc-2" {
			t.Fatalf("caller %d got %q", i, token)
		}
	}
}

func TestLogoutPreservesServiceToken(t *testing.T) {
	exchanger := &stubExchanger{token: "svc-3"}
	provider, store := newTestProvider(t, exchanger)
	ctx := context.Background()

	if _, err := provider.ServiceToken(ctx); err != nil {
		t.Fatalf("service token: %v", err)
	}
	if err := provider.SetUserToken(ctx, "user-jwt"); err != nil {
		t.Fatalf("set user token: %v", err)
	}

	if err := provider.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if provider.UserToken() != "" {
		t.Fatalf("user token must be cleared on logout")
	}
	if _, err := store.Get(ctx, storage.KeyUserToken); err == nil {
		t.Fatalf("user token must be removed from the store")
	}
	if token, err := provider.ServiceToken(ctx); err != nil || token != "svc-3" {
		t.Fatalf("service token must survive logout: %q %v", token, err)
	}
}

func TestProviderWarmsFromStore(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	if err := store.Set(ctx, storage.KeyServiceToken, "persisted-svc"); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	exchanger := &stubExchanger{token: "fresh"}
	provider, err := NewProvider(ctx, ProviderParams{
		Store:     store,
		Exchanger: exchanger,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	token, err := provider.ServiceToken(ctx)
	if err != nil || token != "persisted-svc" {
		t.Fatalf("expected persisted token, got %q %v", token, err)
	}
	if exchanger.calls.Load() != 0 {
		t.Fatalf("warm cache must not trigger exchange")
	}
}

func TestUserClaimsDecodesWithoutVerification(t *testing.T) {
	exchanger := &stubExchanger{token: "svc"}
	provider, _ := newTestProvider(t, exchanger)
	ctx := context.Background()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if err := provider.SetUserToken(ctx, signed); err != nil {
		t.Fatalf("set user token: %v", err)
	}

	claims, err := provider.UserClaims()
	if err != nil {
		t.Fatalf("user claims: %v", err)
	}
	if claims.Subject != "user-42" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}

	if err := provider.SetUserToken(ctx, "not-a-jwt"); err != nil {
		t.Fatalf("set malformed token: %v", err)
	}
	if _, err := provider.UserClaims(); err == nil {
		t.Fatalf("malformed token must error")
	}
}
