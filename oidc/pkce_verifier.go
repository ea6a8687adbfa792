// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/googler/googler/sdk/id"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

const (
	// S256 is the only PKCE code challenge method this package issues.
	//
	// See: https://tools.ietf.org/html/rfc7636#section-4.2
	S256 ChallengeMethod = "S256"
)

const (
	// verifierBytes of entropy encode to a verifierLen character verifier,
	// within the 43-128 range RFC 7636 allows.
	verifierBytes = 64
	verifierLen   = 86
)

// RedactedCodeVerifier is the redacted string or json for a PKCE code verifier
const RedactedCodeVerifier = "[REDACTED: code_verifier]"

// CodeVerifier represents an OAuth PKCE code verifier and its derived
// challenge. The verifier stays on the server, only the challenge is sent in
// the authorization request.
//
// See: https://tools.ietf.org/html/rfc7636#section-4.1
type CodeVerifier struct {
	verifier  string
	challenge string
	method    ChallengeMethod
}

// NewCodeVerifier creates a new CodeVerifier (*CodeVerifier) using the S256
// challenge method.
func NewCodeVerifier() (*CodeVerifier, error) {
	const op = "oidc.NewCodeVerifier"
	verifier, err := id.Random(verifierBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate verifier: %w: %w", op, ErrEntropy, err)
	}
	v := &CodeVerifier{
		verifier: verifier,
		method:   S256,
	}
	if v.challenge, err = CreateCodeChallenge(v.method, v); err != nil {
		return nil, fmt.Errorf("%s: unable to create code challenge: %w", op, err)
	}
	return v, nil
}

func (v *CodeVerifier) Verifier() string        { return v.verifier }  // Verifier returns the code verifier
func (v *CodeVerifier) Challenge() string       { return v.challenge } // Challenge returns the code verifier's code challenge
func (v *CodeVerifier) Method() ChallengeMethod { return v.method }    // Method returns the code verifier's challenge method

// String will redact the verifier
func (v *CodeVerifier) String() string {
	return RedactedCodeVerifier
}

// MarshalJSON will redact the verifier
func (v *CodeVerifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedCodeVerifier)
}

// CreateCodeChallenge creates a code challenge from the verifier. Only S256
// is supported.
//
// See: https://tools.ietf.org/html/rfc7636#section-4.2
func CreateCodeChallenge(method ChallengeMethod, v *CodeVerifier) (string, error) {
	const op = "oidc.CreateCodeChallenge"
	if v == nil {
		return "", fmt.Errorf("%s: code verifier is nil: %w", op, ErrNilParameter)
	}
	switch method {
	case S256:
		return s256Challenge(v.verifier), nil
	default:
		return "", fmt.Errorf("%s: %q: %w", op, method, ErrUnsupportedChallengeMethod)
	}
}

// VerifyCodeChallenge reports whether challenge is the S256 challenge of
// verifier. The comparison is constant time.
func VerifyCodeChallenge(verifier, challenge string) bool {
	if verifier == "" || challenge == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s256Challenge(verifier)), []byte(challenge)) == 1
}

func s256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
