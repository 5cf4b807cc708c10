package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/buildmart/storefront-client/internal/storage"
	pkgerrors "github.com/buildmart/storefront-client/pkg/errors"
	"github.com/buildmart/storefront-client/pkg/logger"
	"github.com/buildmart/storefront-client/pkg/metrics"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "service-token"

// Exchanger performs the client-credential exchange against the auth
// endpoint and returns a fresh service token.
type Exchanger interface {
	ExchangeServiceToken(ctx context.Context) (string, error)
}

// Provider owns the credential pair: the app-level service token and the
// per-user access token. It is the only writer of either token; every
// networked component reads through it.
type Provider struct {
	store     storage.Store
	exchanger Exchanger
	logg      *logger.Logger
	metrics   *metrics.WorkflowMetrics

	mu           sync.RWMutex
	serviceToken string
	userToken    string

	group singleflight.Group
}

// ProviderParams configure the provider.
type ProviderParams struct {
	Store     storage.Store
	Exchanger Exchanger
	Logger    *logger.Logger
	Metrics   *metrics.WorkflowMetrics
}

// NewProvider builds the provider and warms the in-memory cache from the
// local store.
func NewProvider(ctx context.Context, params ProviderParams) (*Provider, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Exchanger == nil {
		return nil, fmt.Errorf("exchanger required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	p := &Provider{
		store:     params.Store,
		exchanger: params.Exchanger,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}

	if token, err := params.Store.Get(ctx, storage.KeyServiceToken); err == nil {
		p.serviceToken = token
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("loading service token: %w", err)
	}
	if token, err := params.Store.Get(ctx, storage.KeyUserToken); err == nil {
		p.userToken = token
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("loading user token: %w", err)
	}

	return p, nil
}

// ServiceToken returns the cached service token, performing a lazy exchange
// when none is held yet.
func (p *Provider) ServiceToken(ctx context.Context) (string, error) {
	p.mu.RLock()
	token := p.serviceToken
	p.mu.RUnlock()
	if token != "" {
		return token, nil
	}
	return p.refresh(ctx, "lazy")
}

// ForceRefreshServiceToken always performs the exchange. Concurrent callers
// collapse into one in-flight exchange and share its result.
func (p *Provider) ForceRefreshServiceToken(ctx context.Context) (string, error) {
	return p.refresh(ctx, "forced")
}

func (p *Provider) refresh(ctx context.Context, trigger string) (string, error) {
	result, err, _ := p.group.Do(refreshKey, func() (any, error) {
		token, err := p.exchanger.ExchangeServiceToken(ctx)
		if err != nil {
			p.logg.Error(ctx, "service token exchange failed", err)
			return "", err
		}
		p.metrics.IncTokenRefresh(trigger)

		p.mu.Lock()
		p.serviceToken = token
		p.mu.Unlock()

		if err := p.store.Set(ctx, storage.KeyServiceToken, token); err != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "service token not persisted")
		}
		return token, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// UserToken returns the stored user token, or empty pre-login.
func (p *Provider) UserToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.userToken
}

// SetUserToken stores the user token after authentication.
func (p *Provider) SetUserToken(ctx context.Context, token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user token is required")
	}
	p.mu.Lock()
	p.userToken = trimmed
	p.mu.Unlock()
	return p.store.Set(ctx, storage.KeyUserToken, trimmed)
}

// ClearUserToken removes the user token. The service token deliberately
// survives logout.
func (p *Provider) ClearUserToken(ctx context.Context) error {
	p.mu.Lock()
	p.userToken = ""
	p.mu.Unlock()
	return p.store.Delete(ctx, storage.KeyUserToken)
}

// Logout clears the user token and logs the transition.
func (p *Provider) Logout(ctx context.Context) error {
	p.logg.Info(ctx, "clearing user session")
	return p.ClearUserToken(ctx)
}

// UserClaims decodes the registered claims of the stored user token without
// verifying the signature; verification is the backend's job, the client
// only needs the subject and expiry.
func (p *Provider) UserClaims() (*jwt.RegisteredClaims, error) {
	token := p.UserToken()
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeAuthExpired, "no user token held")
	}
	claims := &jwt.RegisteredClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeAuthExpired, err, "user token malformed")
	}
	return claims, nil
}
