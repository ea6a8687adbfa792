// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/googler/googler/jwt"
)

// Scopes requested of Google on every authorization request.
var Scopes = []string{"openid", "email", "profile"}

// Provider runs Google's authorization code flow with PKCE. It is safe for
// concurrent use.
type Provider struct {
	config    *Config
	client    *http.Client
	store     StateStore
	ownStore  *MemStateStore
	validator *jwt.Validator
	logger    hclog.Logger
	now       func() time.Time

	mu sync.Mutex

	// backgroundCtx is the context used by the provider for background
	// activities like refreshing the jwks key set.
	backgroundCtx context.Context

	// backgroundCtxCancel is used to cancel any background activities running
	// in spawned go routines.
	backgroundCtxCancel context.CancelFunc
}

// NewProvider creates a Provider for the Config. It makes no network calls,
// the provider's signing keys are fetched the first time an id_token is
// verified.
//
// Without WithStateStore the Provider keeps states in its own
// MemStateStore. See Provider.Done() which must be called to release provider
// resources.
//
// Supported options: WithStateStore, WithKeySet, WithLogger, WithNow
func NewProvider(c *Config, opt ...Option) (*Provider, error) {
	const op = "oidc.NewProvider"
	if c == nil {
		return nil, fmt.Errorf("%s: provider config is nil: %w: %w", op, ErrConfiguration, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: provider config is invalid: %w", op, err)
	}
	opts := getProviderOpts(opt...)

	ctx, cancel := context.WithCancel(context.Background())
	// initializing the Provider with it's background ctx/cancel will
	// allow us to use p.Done() to release any resources when returning errors
	// from this function.
	p := &Provider{
		config:              c,
		store:               opts.withStateStore,
		logger:              opts.withLogger,
		now:                 opts.withNowFunc,
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}

	client, err := c.HTTPClient()
	if err != nil {
		p.Done()
		return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
	}
	p.client = client

	keySet := opts.withKeySet
	if keySet == nil {
		keySet, err = jwt.NewJSONWebKeySet(HTTPClientContext(p.backgroundCtx, client), c.JWKSURL, "")
		if err != nil {
			p.Done()
			return nil, fmt.Errorf("%s: unable to create key set: %w: %w", op, ErrConfiguration, err)
		}
	}
	if p.validator, err = jwt.NewValidator([]jwt.KeySet{keySet}); err != nil {
		p.Done()
		return nil, fmt.Errorf("%s: unable to create id_token validator: %w: %w", op, ErrConfiguration, err)
	}

	if p.store == nil {
		p.ownStore = NewMemStateStore(WithLogger(p.logger), WithNow(p.now))
		p.store = p.ownStore
	}
	return p, nil
}

// Done with the provider's background resources and must be called for every
// Provider created
func (p *Provider) Done() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.backgroundCtxCancel != nil {
		p.backgroundCtxCancel()
		p.backgroundCtxCancel = nil
	}
	if p.ownStore != nil {
		p.ownStore.Done()
	}
}

// AuthURL starts an authorization code flow. It mints a new state and PKCE
// code verifier, stores the verifier under the state for Config.StateTTL and
// returns the url of Google's consent screen to redirect the user to. No
// network calls are made, other than to a remote StateStore.
func (p *Provider) AuthURL(ctx context.Context) (string, error) {
	const op = "Provider.AuthURL"
	redirectURL, err := p.config.RedirectURL()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s, err := NewState(p.config.StateTTL, WithNow(p.now))
	if err != nil {
		return "", fmt.Errorf("%s: unable to create state: %w", op, err)
	}
	if err := p.store.Put(ctx, s.ID(), s.Verifier().Verifier(), s.TTL()); err != nil {
		return "", fmt.Errorf("%s: unable to store state: %w", op, err)
	}
	p.logger.Debug("authorization request created", "op", op, "state", s.ID(), "expires_at", s.ExpiresAt())

	return p.oauth2Config(redirectURL).AuthCodeURL(
		s.ID(),
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.SetAuthURLParam("code_challenge", s.Verifier().Challenge()),
		oauth2.SetAuthURLParam("code_challenge_method", string(s.Verifier().Method())),
	), nil
}

// Exchange redeems the authorization code the provider returned to the
// callback. The state is consumed before the provider is contacted, so a
// given state can be exchanged at most once whatever the outcome.
//
// Errors wrap ErrInvalidRequest when state or code are empty,
// ErrInvalidOrExpiredState when the state is unknown, used or expired, and
// ErrTokenExchangeFailed when the token endpoint rejects the code or can't be
// reached. A rejection is returned as a *TokenExchangeError.
func (p *Provider) Exchange(ctx context.Context, state, code string) (*TokenResponse, error) {
	const op = "Provider.Exchange"
	switch {
	case state == "":
		return nil, fmt.Errorf("%s: state is empty: %w", op, ErrInvalidRequest)
	case code == "":
		return nil, fmt.Errorf("%s: code is empty: %w", op, ErrInvalidRequest)
	}

	verifier, err := p.store.Take(ctx, state)
	switch {
	case errors.Is(err, ErrNotFound):
		p.logger.Debug("unknown or expired state", "op", op, "state", state)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidOrExpiredState)
	case err != nil:
		return nil, fmt.Errorf("%s: unable to read state: %w", op, err)
	}

	redirectURL, err := p.config.RedirectURL()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.HTTPTimeout)
	defer cancel()
	oauth2Token, err := p.oauth2Config(redirectURL).Exchange(
		HTTPClientContext(ctx, p.client),
		code,
		oauth2.VerifierOption(verifier),
	)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			tokenErr := &TokenExchangeError{
				ErrorCode:   retrieveErr.ErrorCode,
				Description: retrieveErr.ErrorDescription,
				Body:        retrieveErr.Body,
			}
			if retrieveErr.Response != nil {
				tokenErr.StatusCode = retrieveErr.Response.StatusCode
			}
			p.logger.Warn("token endpoint rejected the authorization code", "op", op, "status", tokenErr.StatusCode, "error", tokenErr.ErrorCode)
			return nil, fmt.Errorf("%s: %w", op, tokenErr)
		}
		p.logger.Warn("token exchange failed", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrTokenExchangeFailed, err)
	}

	tk := &TokenResponse{
		AccessToken:  AccessToken(oauth2Token.AccessToken),
		RefreshToken: RefreshToken(oauth2Token.RefreshToken),
		TokenType:    oauth2Token.TokenType,
		Expiry:       oauth2Token.Expiry,
	}
	if idToken, ok := oauth2Token.Extra("id_token").(string); ok {
		tk.IDToken = IDToken(idToken)
	}
	if scope, ok := oauth2Token.Extra("scope").(string); ok {
		tk.Scope = scope
	}
	tk.ExpiresIn = expiresIn(oauth2Token.Extra("expires_in"))
	p.logger.Debug("authorization code exchanged", "op", op, "state", state, "has_id_token", tk.IDToken != "", "has_refresh_token", tk.RefreshToken != "")
	return tk, nil
}

// VerifyIDToken verifies the id_token of a TokenResponse and returns its
// claims. The checks run in order: signature, signing algorithm and time
// claims (ErrInvalidSignatureOrExpired), then audience (ErrAudienceMismatch),
// then issuer (ErrIssuerMismatch).
func (p *Provider) VerifyIDToken(ctx context.Context, tk *TokenResponse) (*IdentityClaims, error) {
	const op = "Provider.VerifyIDToken"
	if tk == nil || tk.IDToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingIDToken)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.HTTPTimeout)
	defer cancel()
	raw, err := p.validator.Validate(ctx, string(tk.IDToken), jwt.Expected{
		Issuers:           p.config.Issuers,
		Audiences:         []string{p.config.ClientID},
		SigningAlgorithms: p.config.SupportedSigningAlgs,
		Now:               p.now,
	})
	if err != nil {
		p.logger.Debug("id_token rejected", "op", op, "error", err)
		switch {
		case errors.Is(err, jwt.ErrInvalidAudience):
			return nil, fmt.Errorf("%s: %w: %w", op, ErrAudienceMismatch, err)
		case errors.Is(err, jwt.ErrInvalidIssuer):
			return nil, fmt.Errorf("%s: %w: %w", op, ErrIssuerMismatch, err)
		default:
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSignatureOrExpired, err)
		}
	}

	claims, err := newIdentityClaims(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSignatureOrExpired, err)
	}
	// a token issued to several audiences must name us as the party it was
	// issued to.
	if len(claims.Audience) > 1 && claims.AuthorizedParty != p.config.ClientID {
		return nil, fmt.Errorf("%s: azp %q is not the client id: %w", op, claims.AuthorizedParty, ErrAudienceMismatch)
	}
	return claims, nil
}

// Authenticate completes a flow from its callback parameters: it exchanges
// the code and verifies the returned id_token.
func (p *Provider) Authenticate(ctx context.Context, state, code string) (*TokenResponse, *IdentityClaims, error) {
	const op = "Provider.Authenticate"
	tk, err := p.Exchange(ctx, state, code)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, err := p.VerifyIDToken(ctx, tk)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	p.logger.Debug("user authenticated", "op", op, "sub", claims.Subject)
	return tk, claims, nil
}

func (p *Provider) oauth2Config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: string(p.config.ClientSecret),
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.config.AuthEndpoint,
			TokenURL:  p.config.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: Scopes,
	}
}

// expiresIn reads the raw expires_in value of a token response, which
// providers send as either a json number or a string.
func expiresIn(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case json.Number:
		n, _ := t.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

// providerOptions is the set of available options for Provider functions
type providerOptions struct {
	withStateStore StateStore
	withKeySet     jwt.KeySet
	withLogger     hclog.Logger
	withNowFunc    func() time.Time
}

// providerDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func providerDefaults() providerOptions {
	return providerOptions{
		withLogger:  hclog.NewNullLogger(),
		withNowFunc: time.Now,
	}
}

// getProviderOpts gets the provider defaults and applies the opt overrides
// passed in
func getProviderOpts(opt ...Option) providerOptions {
	opts := providerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithStateStore provides an optional StateStore for the provider, such as
// redisstore.Store for deployments with more than one replica.
func WithStateStore(s StateStore) Option {
	return func(o interface{}) {
		if o, ok := o.(*providerOptions); ok {
			o.withStateStore = s
		}
	}
}

// WithKeySet provides an optional key set for verifying id_token signatures,
// in place of the provider's jwks url.
func WithKeySet(ks jwt.KeySet) Option {
	return func(o interface{}) {
		if o, ok := o.(*providerOptions); ok {
			o.withKeySet = ks
		}
	}
}
