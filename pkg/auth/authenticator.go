package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/huddle/pkg/apperrors"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

// CallerSource loads callers with their current roles
type CallerSource interface {
	LoadCaller(ctx context.Context, userID string) (*rbac.Caller, error)
	LoadCallerByEmail(ctx context.Context, email string) (*rbac.Caller, error)
}

// CacheConfig bounds the verified-token cache. A zero Size disables it.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// Authenticator resolves bearer tokens to callers
type Authenticator struct {
	verifiers []Verifier
	callers   CallerSource
	tokens    *TokenGenerator
	cache     *expirable.LRU[string, Identity]
}

// NewAuthenticator creates an Authenticator trying verifiers in order
func NewAuthenticator(callers CallerSource, cache CacheConfig, verifiers ...Verifier) *Authenticator {
	a := &Authenticator{
		verifiers: verifiers,
		callers:   callers,
		tokens:    NewTokenGenerator(),
	}
	if cache.Size > 0 {
		a.cache = expirable.NewLRU[string, Identity](cache.Size, nil, cache.TTL)
	}
	return a
}

// Authenticate verifies token and loads its caller. Unknown users are
// reported as ErrInvalidToken.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*rbac.Caller, error) {
	identity, err := a.identify(ctx, token)
	if err != nil {
		return nil, err
	}

	var caller *rbac.Caller
	if identity.UserID != "" {
		caller, err = a.callers.LoadCaller(ctx, identity.UserID)
	} else {
		caller, err = a.callers.LoadCallerByEmail(ctx, identity.Email)
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load caller: %w", err)
	}
	return caller, nil
}

func (a *Authenticator) identify(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	key := a.tokens.HashToken(token)
	if a.cache != nil {
		if identity, ok := a.cache.Get(key); ok {
			return identity, nil
		}
	}

	var lastErr error = ErrInvalidToken
	for _, v := range a.verifiers {
		identity, err := v.Verify(ctx, token)
		if err != nil {
			lastErr = err
			continue
		}
		if a.cache != nil {
			a.cache.Add(key, identity)
		}
		return identity, nil
	}
	return Identity{}, lastErr
}
