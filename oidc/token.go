// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"time"
)

// DefaultTokenExpirySkew defines a default time skew when checking a
// TokenResponse's expiration.
const DefaultTokenExpirySkew = 10 * time.Second

// TokenResponse is the result of a successful authorization code exchange.
// Its token fields redact themselves when printed or marshaled.
type TokenResponse struct {
	AccessToken  AccessToken
	IDToken      IDToken
	RefreshToken RefreshToken

	// TokenType is usually "Bearer".
	TokenType string

	// ExpiresIn is the access token lifetime in seconds, as returned by the
	// provider. Zero when the provider didn't say.
	ExpiresIn int64

	// Expiry is when the access token expires. Zero when unknown.
	Expiry time.Time

	// Scope is the space delimited list of scopes granted.
	Scope string
}

// IsExpired returns true if the access token has expired. A zero Expiry
// never expires. Supports the WithExpirySkew option and if none is provided
// it will use the DefaultTokenExpirySkew.
//
// Supported options: WithExpirySkew, WithNow
func (t *TokenResponse) IsExpired(opt ...Option) bool {
	if t == nil || t.Expiry.IsZero() {
		return false
	}
	opts := getTokenOpts(opt...)
	return t.Expiry.Round(0).Before(opts.withNowFunc().Add(opts.withExpirySkew))
}

// Valid returns true when there's an access token that hasn't expired.
func (t *TokenResponse) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return !t.IsExpired()
}

// AccessToken is an oauth access_token
type AccessToken string

// RedactedAccessToken is the redacted string or json for an oauth access_token
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// MarshalJSON will redact the token
func (t AccessToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedAccessToken)
}

// tokenOptions is the set of available options for TokenResponse functions
type tokenOptions struct {
	withExpirySkew time.Duration
	withNowFunc    func() time.Time
}

// tokenDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func tokenDefaults() tokenOptions {
	return tokenOptions{
		withExpirySkew: DefaultTokenExpirySkew,
		withNowFunc:    time.Now,
	}
}

// getTokenOpts gets the token defaults and applies the opt overrides passed
// in
func getTokenOpts(opt ...Option) tokenOptions {
	opts := tokenDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
