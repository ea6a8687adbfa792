// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/googler/googler/jwt"
	"github.com/googler/googler/oidc/internal/strutils"
	sdkHttp "github.com/googler/googler/sdk/http"
)

// Google's endpoints and issuers.
const (
	GoogleAuthEndpoint  = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenEndpoint = "https://oauth2.googleapis.com/token"
	GoogleJWKSURL       = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleIssuers are the "iss" values Google signs id_tokens with.
var GoogleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

const (
	// DefaultCallbackPath is the path, relative to the base url, that the
	// provider redirects back to.
	DefaultCallbackPath = "/google/callback"

	// DefaultHTTPTimeout bounds each call made to the provider.
	DefaultHTTPTimeout = 10 * time.Second
)

// ClientSecret is an oauth client secret.
type ClientSecret string

// RedactedClientSecret is the redacted string or json for an oauth client secret
const RedactedClientSecret = "[REDACTED: client secret]"

// String will redact the client secret
func (t ClientSecret) String() string {
	return RedactedClientSecret
}

// MarshalJSON will redact the client secret
func (t ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config represents the configuration for Google's authorization code flow
// with PKCE. A Config should not be modified once it's been passed to
// NewProvider.
type Config struct {
	// ClientID is the relying party id
	ClientID string

	// ClientSecret is the relying party secret
	ClientSecret ClientSecret

	// BaseURL is the externally reachable url of this service. The redirect
	// url is CallbackPath resolved against it.
	BaseURL string

	// CallbackPath is the path the provider redirects to after the user
	// authenticates. Defaults to DefaultCallbackPath.
	CallbackPath string

	// Issuers are the accepted "iss" values of an id_token. Defaults to
	// GoogleIssuers.
	Issuers []string

	// ForceHTTPS rewrites an http redirect url to https, for deployments
	// behind a tls terminating proxy.
	ForceHTTPS bool

	// DropHTTPS rewrites an https redirect url to http. It is only allowed for
	// loopback hosts unless AllowInsecureRedirect is set.
	DropHTTPS bool

	// AllowInsecureRedirect permits DropHTTPS for non loopback hosts.
	AllowInsecureRedirect bool

	// StateTTL is how long an authorization request is redeemable. Defaults to
	// DefaultStateTTL.
	StateTTL time.Duration

	// HTTPTimeout bounds each call made to the provider's token and jwks
	// endpoints. Defaults to DefaultHTTPTimeout.
	HTTPTimeout time.Duration

	// ProviderCA is an optional PEM encoded CA cert to use when sending
	// requests to the provider.
	ProviderCA string

	// SupportedSigningAlgs is the allow-list of id_token signing algorithms.
	// Defaults to RS256.
	SupportedSigningAlgs []jwt.Alg

	// AuthEndpoint, TokenEndpoint and JWKSURL default to Google's.
	AuthEndpoint  string
	TokenEndpoint string
	JWKSURL       string
}

// NewConfig composes a new Config and validates it.
//
// Supported options: WithCallbackPath, WithIssuers, WithForceHTTPS,
// WithDropHTTPS, WithAllowInsecureRedirect, WithStateTTL, WithHTTPTimeout,
// WithProviderCA, WithSupportedSigningAlgs, WithEndpoints
func NewConfig(clientID string, clientSecret ClientSecret, baseURL string, opt ...Option) (*Config, error) {
	const op = "oidc.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		ClientID:              clientID,
		ClientSecret:          clientSecret,
		BaseURL:               baseURL,
		CallbackPath:          opts.withCallbackPath,
		Issuers:               opts.withIssuers,
		ForceHTTPS:            opts.withForceHTTPS,
		DropHTTPS:             opts.withDropHTTPS,
		AllowInsecureRedirect: opts.withAllowInsecureRedirect,
		StateTTL:              opts.withStateTTL,
		HTTPTimeout:           opts.withHTTPTimeout,
		ProviderCA:            opts.withProviderCA,
		SupportedSigningAlgs:  opts.withSupportedSigningAlgs,
		AuthEndpoint:          opts.withAuthEndpoint,
		TokenEndpoint:         opts.withTokenEndpoint,
		JWKSURL:               opts.withJWKSURL,
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// Validate the configuration. Every problem found is reported, and the
// returned error wraps ErrConfiguration. It doesn't contact the provider.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: config is nil: %w: %w", op, ErrConfiguration, ErrNilParameter)
	}
	var result *multierror.Error
	if c.ClientID == "" {
		result = multierror.Append(result, errors.New("client id is empty"))
	}
	if c.ClientSecret == "" {
		result = multierror.Append(result, errors.New("client secret is empty"))
	}
	base, err := url.Parse(c.BaseURL)
	switch {
	case c.BaseURL == "":
		result = multierror.Append(result, errors.New("base url is empty"))
	case err != nil:
		result = multierror.Append(result, fmt.Errorf("base url is invalid: %w", err))
	case !strutils.StrListContains([]string{"http", "https"}, base.Scheme) || base.Host == "":
		result = multierror.Append(result, fmt.Errorf("base url %q is not an absolute http or https url", c.BaseURL))
	}
	if c.CallbackPath == "" {
		result = multierror.Append(result, errors.New("callback path is empty"))
	}
	if c.ForceHTTPS && c.DropHTTPS {
		result = multierror.Append(result, errors.New("force https and drop https are mutually exclusive"))
	}
	if c.DropHTTPS && !c.AllowInsecureRedirect && base != nil && !isLoopbackHost(base.Hostname()) {
		result = multierror.Append(result, fmt.Errorf("drop https for non loopback host %q requires allowing insecure redirects", base.Hostname()))
	}
	if len(c.Issuers) == 0 {
		result = multierror.Append(result, errors.New("issuers is empty"))
	}
	if c.StateTTL <= 0 {
		result = multierror.Append(result, errors.New("state ttl not greater than zero"))
	}
	if c.HTTPTimeout <= 0 {
		result = multierror.Append(result, errors.New("http timeout not greater than zero"))
	}
	if len(c.SupportedSigningAlgs) == 0 {
		result = multierror.Append(result, errors.New("supported algorithms is empty"))
	} else if err := jwt.SupportedSigningAlgorithm(c.SupportedSigningAlgs...); err != nil {
		result = multierror.Append(result, err)
	}
	for _, e := range []struct{ name, v string }{
		{"auth endpoint", c.AuthEndpoint},
		{"token endpoint", c.TokenEndpoint},
		{"jwks url", c.JWKSURL},
	} {
		if u, err := url.Parse(e.v); err != nil || u.Host == "" {
			result = multierror.Append(result, fmt.Errorf("%s %q is not an absolute url", e.name, e.v))
		}
	}
	if c.ProviderCA != "" {
		if _, err := c.HTTPClient(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrConfiguration, err)
	}
	return nil
}

// RedirectURL returns the url the provider redirects back to: CallbackPath
// resolved against BaseURL, with the DropHTTPS or ForceHTTPS scheme rewrite
// applied.
func (c *Config) RedirectURL() (string, error) {
	const op = "Config.RedirectURL"
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%s: base url is invalid: %w: %w", op, ErrConfiguration, err)
	}
	path, err := url.Parse(c.CallbackPath)
	if err != nil {
		return "", fmt.Errorf("%s: callback path is invalid: %w: %w", op, ErrConfiguration, err)
	}
	redirect := base.ResolveReference(path).String()
	switch {
	case c.DropHTTPS:
		if strings.HasPrefix(redirect, "https://") {
			redirect = "http://" + strings.TrimPrefix(redirect, "https://")
		}
	case c.ForceHTTPS:
		if strings.HasPrefix(redirect, "http://") {
			redirect = "https://" + strings.TrimPrefix(redirect, "http://")
		}
	}
	return redirect, nil
}

// HTTPClient is a helper function that creates a new http client for the
// provider configured
func (c *Config) HTTPClient() (*http.Client, error) {
	const op = "Config.HTTPClient"
	client, err := sdkHttp.NewClient(c.ProviderCA, c.HTTPTimeout)
	if err != nil {
		if errors.Is(err, sdkHttp.ErrInvalidCertificatePem) {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// HTTPClientContext is a helper function that returns a new Context that
// carries the provided HTTP client. This method sets the same context key used
// by the github.com/coreos/go-oidc and golang.org/x/oauth2 packages, so the
// returned context works for those packages as well.
func HTTPClientContext(ctx context.Context, client *http.Client) context.Context {
	return sdkHttp.ClientContext(ctx, client)
}

func isLoopbackHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// configOptions is the set of available options
type configOptions struct {
	withCallbackPath          string
	withIssuers               []string
	withForceHTTPS            bool
	withDropHTTPS             bool
	withAllowInsecureRedirect bool
	withStateTTL              time.Duration
	withHTTPTimeout           time.Duration
	withProviderCA            string
	withSupportedSigningAlgs  []jwt.Alg
	withAuthEndpoint          string
	withTokenEndpoint         string
	withJWKSURL               string
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{
		withCallbackPath:         DefaultCallbackPath,
		withIssuers:              append([]string(nil), GoogleIssuers...),
		withStateTTL:             DefaultStateTTL,
		withHTTPTimeout:          DefaultHTTPTimeout,
		withSupportedSigningAlgs: []jwt.Alg{jwt.RS256},
		withAuthEndpoint:         GoogleAuthEndpoint,
		withTokenEndpoint:        GoogleTokenEndpoint,
		withJWKSURL:              GoogleJWKSURL,
	}
}

// getConfigOpts gets the defaults and applies the opt overrides passed
// in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithCallbackPath provides an optional callback path for the config
func WithCallbackPath(p string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withCallbackPath = p
		}
	}
}

// WithIssuers provides an optional list of accepted issuers for the config
func WithIssuers(iss ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withIssuers = strutils.RemoveDuplicatesStable(iss, false)
		}
	}
}

// WithForceHTTPS rewrites http redirect urls to https
func WithForceHTTPS() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withForceHTTPS = true
		}
	}
}

// WithDropHTTPS rewrites https redirect urls to http
func WithDropHTTPS() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withDropHTTPS = true
		}
	}
}

// WithAllowInsecureRedirect permits WithDropHTTPS for non loopback hosts
func WithAllowInsecureRedirect() Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAllowInsecureRedirect = true
		}
	}
}

// WithStateTTL provides an optional state ttl for the config
func WithStateTTL(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withStateTTL = d
		}
	}
}

// WithHTTPTimeout provides an optional provider call timeout for the config
func WithHTTPTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withHTTPTimeout = d
		}
	}
}

// WithProviderCA provides an optional CA cert for the provider's config
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}

// WithSupportedSigningAlgs provides an optional id_token signing algorithm
// allow-list for the config
func WithSupportedSigningAlgs(algs ...jwt.Alg) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withSupportedSigningAlgs = algs
		}
	}
}

// WithEndpoints overrides the provider's authorization, token and jwks urls.
// Empty values keep the defaults.
func WithEndpoints(auth, token, jwks string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			if auth != "" {
				o.withAuthEndpoint = auth
			}
			if token != "" {
				o.withTokenEndpoint = token
			}
			if jwks != "" {
				o.withJWKSURL = jwks
			}
		}
	}
}
