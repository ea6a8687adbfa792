// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"

	"github.com/go-jose/go-jose/v3/jwt"
)

// IDToken is an oidc id_token
type IDToken string

// RedactedIDToken is the redacted string or json for an oidc id_token
const RedactedIDToken = "[REDACTED: id_token]"

// String will redact the token
func (t IDToken) String() string {
	return RedactedIDToken
}

// MarshalJSON will redact the token
func (t IDToken) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedIDToken)
}

// Claims decodes the id_token's claims into claims WITHOUT verifying the
// token. Only use it on a token that Provider.VerifyIDToken has accepted.
func (t IDToken) Claims(claims interface{}) error {
	const op = "IDToken.Claims"
	if len(t) == 0 {
		return fmt.Errorf("%s: id_token is empty: %w", op, ErrInvalidParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	parsed, err := jwt.ParseSigned(string(t))
	if err != nil {
		return fmt.Errorf("%s: unable to parse id_token: %w: %w", op, ErrInvalidParameter, err)
	}
	if err := parsed.UnsafeClaimsWithoutVerification(claims); err != nil {
		return fmt.Errorf("%s: unable to decode claims: %w: %w", op, ErrInvalidParameter, err)
	}
	return nil
}
