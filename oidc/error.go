// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter           = errors.New("invalid parameter")
	ErrNilParameter               = errors.New("nil parameter")
	ErrInvalidCACert              = errors.New("invalid CA certificate")
	ErrNotFound                   = errors.New("not found")
	ErrUnsupportedChallengeMethod = errors.New("unsupported PKCE code challenge method")

	// ErrConfiguration is returned when a Config is missing required values
	// or carries conflicting ones. It is fatal and surfaces at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrEntropy is returned when the random source fails while minting a
	// state or code verifier. It is not recoverable.
	ErrEntropy = errors.New("entropy source failed")

	// ErrInvalidRequest is returned when the callback is missing its state or
	// code parameter.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidOrExpiredState is returned when a callback state was never
	// issued, was already used, or has expired. The user must restart the
	// flow.
	ErrInvalidOrExpiredState = errors.New("invalid or expired state")

	// ErrTokenExchangeFailed is returned when the provider rejects the code
	// exchange or the token endpoint can't be reached in time.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	ErrMissingIDToken            = errors.New("id_token is missing")
	ErrInvalidSignatureOrExpired = errors.New("id_token signature is invalid or token is expired")
	ErrAudienceMismatch          = errors.New("id_token audience mismatch")
	ErrIssuerMismatch            = errors.New("id_token issuer mismatch")
)

// TokenExchangeError is returned by Provider.Exchange when the token endpoint
// answers with a non-success status. It matches ErrTokenExchangeFailed with
// errors.Is.
type TokenExchangeError struct {
	// StatusCode is the http status returned by the token endpoint.
	StatusCode int

	// ErrorCode and Description are the provider's "error" and
	// "error_description" values, when the body carried them.
	ErrorCode   string
	Description string

	// Body is the raw response body from the provider.
	Body []byte
}

// Error implements the error interface.
func (e *TokenExchangeError) Error() string {
	if e.ErrorCode != "" {
		if e.Description != "" {
			return fmt.Sprintf("%s: %d %s: %s", ErrTokenExchangeFailed, e.StatusCode, e.ErrorCode, e.Description)
		}
		return fmt.Sprintf("%s: %d %s", ErrTokenExchangeFailed, e.StatusCode, e.ErrorCode)
	}
	return fmt.Sprintf("%s: %d: %s", ErrTokenExchangeFailed, e.StatusCode, e.Body)
}

// Unwrap returns ErrTokenExchangeFailed.
func (e *TokenExchangeError) Unwrap() error { return ErrTokenExchangeFailed }
