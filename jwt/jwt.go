// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
)

// DefaultLeeway is the clock skew allowed when checking the exp, nbf and iat
// claims and no ClockSkewLeeway is given.
const DefaultLeeway = jwt.DefaultLeeway

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidTimeClaim = errors.New("invalid time based claim")
	ErrInvalidAudience  = errors.New("invalid audience")
	ErrInvalidIssuer    = errors.New("invalid issuer")
)

// Expected defines the expected claims values to assert when validating a JWT.
// For claims that involve validation of the JWT with respect to time, leeway
// fields are provided to account for potential clock skew.
type Expected struct {
	// Issuers is the set of accepted "iss" claim values. The token's issuer
	// must equal one of them. Ignored when empty.
	Issuers []string

	// Audiences is the set of accepted "aud" claim values. At least one of
	// them must be present in the token's audiences. Ignored when empty.
	Audiences []string

	// SigningAlgorithms provides the list of expected JWS "alg" header parameter
	// values to match against the JWT. Defaults to RS256.
	SigningAlgorithms []Alg

	// ClockSkewLeeway is used to account for clock skew when validating
	// the exp, nbf and iat claims. Defaults to DefaultLeeway, a negative
	// value disables the leeway.
	ClockSkewLeeway time.Duration

	// Now provides the current time. Defaults to time.Now.
	Now func() time.Time
}

// Validator validates JSON Web Tokens (JWT) by providing signature
// verification and claims set validation.
type Validator struct {
	keySets []KeySet
}

// NewValidator returns a Validator that uses the given KeySets to verify JWT
// signatures. The first key set that verifies a token's signature wins.
func NewValidator(keySets []KeySet) (*Validator, error) {
	if len(keySets) == 0 {
		return nil, errors.New("keySets must not be empty")
	}
	for _, ks := range keySets {
		if ks == nil {
			return nil, errors.New("keySets must not contain a nil KeySet")
		}
	}
	return &Validator{
		keySets: keySets,
	}, nil
}

// Validate validates JWTs of the JWS compact serialization form. The checks
// run in a fixed order: signing algorithm and signature, then time based
// claims, then audience, then issuer. The first failure is returned and
// wraps one of ErrInvalidToken, ErrInvalidSignature, ErrInvalidTimeClaim,
// ErrInvalidAudience or ErrInvalidIssuer.
//
// On success the complete claims set is returned.
func (v *Validator) Validate(ctx context.Context, token string, expected Expected) (map[string]interface{}, error) {
	const op = "Validator.Validate"
	if token == "" {
		return nil, fmt.Errorf("%s: token must not be empty: %w", op, ErrInvalidToken)
	}

	algs := expected.SigningAlgorithms
	if len(algs) == 0 {
		algs = []Alg{RS256}
	}
	if err := SupportedSigningAlgorithm(algs...); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidSignature, err)
	}
	if err := validateSigningAlgorithm(token, algs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	claims, err := v.verifySignature(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	std, err := registeredClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now
	if expected.Now != nil {
		now = expected.Now
	}
	leeway := expected.ClockSkewLeeway
	switch {
	case leeway == 0:
		leeway = DefaultLeeway
	case leeway < 0:
		leeway = 0
	}
	if std.Expiry == nil {
		return nil, fmt.Errorf("%s: exp claim is missing: %w", op, ErrInvalidTimeClaim)
	}
	if err := std.ValidateWithLeeway(jwt.Expected{Time: now()}, leeway); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidTimeClaim, err)
	}

	if len(expected.Audiences) > 0 && !audienceMatches(std.Audience, expected.Audiences) {
		return nil, fmt.Errorf("%s: audience %q not accepted: %w", op, []string(std.Audience), ErrInvalidAudience)
	}

	if len(expected.Issuers) > 0 && !contains(expected.Issuers, std.Issuer) {
		return nil, fmt.Errorf("%s: issuer %q not accepted: %w", op, std.Issuer, ErrInvalidIssuer)
	}

	return claims, nil
}

func (v *Validator) verifySignature(ctx context.Context, token string) (map[string]interface{}, error) {
	var lastErr error
	for _, ks := range v.keySets {
		claims, err := ks.VerifySignature(ctx, token)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, lastErr)
}

// audienceMatches compares audiences exactly, a trailing slash included.
func audienceMatches(got jwt.Audience, want []string) bool {
	for _, w := range want {
		if contains(got, w) {
			return true
		}
	}
	return false
}

// validateSigningAlgorithm checks the JWS "alg" header of the token against
// the list of expected algorithms.
func validateSigningAlgorithm(token string, expectedAlgorithms []Alg) error {
	jws, err := jose.ParseSigned(token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if len(jws.Signatures) != 1 {
		return fmt.Errorf("token must contain exactly one signature: %w", ErrInvalidToken)
	}
	alg := Alg(jws.Signatures[0].Header.Algorithm)
	for _, a := range expectedAlgorithms {
		if a == alg {
			return nil
		}
	}
	return fmt.Errorf("token signed with unexpected algorithm %q: %w", alg, ErrInvalidSignature)
}

// registeredClaims decodes the registered claim names out of a verified
// claims set.
func registeredClaims(claims map[string]interface{}) (*jwt.Claims, error) {
	b, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("unable to encode claims: %w: %w", ErrInvalidToken, err)
	}
	var std jwt.Claims
	if err := json.Unmarshal(b, &std); err != nil {
		return nil, fmt.Errorf("unable to decode registered claims: %w: %w", ErrInvalidToken, err)
	}
	return &std, nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
