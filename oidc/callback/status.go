// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"errors"
	"net/http"

	"github.com/googler/googler/oidc"
)

// errorClass maps a failure to its http status, its error code and a message
// that is safe to show the user.
type errorClass struct {
	err     error
	status  int
	code    string
	message string
}

var errorClasses = []errorClass{
	{oidc.ErrInvalidRequest, http.StatusBadRequest, "invalid_request", "Authentication failed: missing required parameters."},
	{oidc.ErrInvalidOrExpiredState, http.StatusBadRequest, "invalid_state", "Invalid or expired login attempt, please sign in again."},
	{oidc.ErrTokenExchangeFailed, http.StatusBadGateway, "token_exchange_failed", "Unable to complete sign in with the provider."},
	{oidc.ErrMissingIDToken, http.StatusUnauthorized, "invalid_token", "The provider did not return an identity."},
	{oidc.ErrInvalidSignatureOrExpired, http.StatusUnauthorized, "invalid_token", "The identity returned by the provider could not be verified."},
	{oidc.ErrAudienceMismatch, http.StatusUnauthorized, "invalid_token", "The identity returned by the provider was issued to another application."},
	{oidc.ErrIssuerMismatch, http.StatusUnauthorized, "invalid_token", "The identity returned by the provider has an unexpected issuer."},
}

var internalClass = errorClass{status: http.StatusInternalServerError, code: "server_error", message: "An unexpected error occurred, please try again."}

func classify(err error) errorClass {
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c
		}
	}
	return internalClass
}

// StatusCode returns the http status for a callback error: 400 for a
// malformed request or an unknown, used or expired state, 502 when the token
// exchange failed, 401 when the id_token was missing or failed verification
// and 500 otherwise.
func StatusCode(err error) int { return classify(err).status }

// ErrorCode returns the error code for a callback error.
func ErrorCode(err error) string { return classify(err).code }

// Message returns a message for a callback error that is safe to show the
// user.
func Message(err error) string { return classify(err).message }
