// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreserved characters per RFC 7636 section 4.1, limited to the base64url
// alphabet we generate from.
var verifierCharset = regexp.MustCompile(`^[A-Za-z0-9\-_]{43,128}$`)

func TestNewCodeVerifier(t *testing.T) {
	t.Parallel()
	t.Run("basics", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewCodeVerifier()
		require.NoError(err)
		assert.Equal(verifierLen, len(got.Verifier()))
		assert.Regexp(verifierCharset, got.Verifier())
		assert.Equal(S256, got.Method())

		challenge, err := CreateCodeChallenge(S256, got)
		require.NoError(err)
		assert.Equal(challenge, got.Challenge())
	})
	t.Run("redacted", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		got, err := NewCodeVerifier()
		require.NoError(err)
		assert.Equal(RedactedCodeVerifier, got.String())
		assert.NotContains(fmt.Sprintf("%v", got), got.Verifier())
		b, err := json.Marshal(got)
		require.NoError(err)
		assert.Equal(fmt.Sprintf(`"%s"`, RedactedCodeVerifier), string(b))
	})
	t.Run("distinct", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		seen := map[string]struct{}{}
		for i := 0; i < 1000; i++ {
			v, err := NewCodeVerifier()
			require.NoError(err)
			_, dup := seen[v.Verifier()]
			assert.False(dup)
			seen[v.Verifier()] = struct{}{}
		}
	})
}

func TestCreateCodeChallenge(t *testing.T) {
	t.Parallel()
	calcHash := func(data []byte) string {
		h := sha256.New()
		_, _ = h.Write(data)
		sum := h.Sum(nil)
		return base64.RawURLEncoding.EncodeToString(sum)
	}
	t.Run("basics", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		v, err := NewCodeVerifier()
		require.NoError(err)
		challenge, err := CreateCodeChallenge(S256, v)
		require.NoError(err)
		assert.Equal(calcHash([]byte(v.Verifier())), challenge)
	})
	t.Run("rfc7636-appendix-b", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		v := &CodeVerifier{verifier: "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"}
		challenge, err := CreateCodeChallenge(S256, v)
		require.NoError(err)
		assert.Equal("E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challenge)
	})
	t.Run("invalid-method", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		v, err := NewCodeVerifier()
		require.NoError(err)
		challenge, err := CreateCodeChallenge(ChallengeMethod("S512"), v)
		require.Error(err)
		assert.Empty(challenge)
		assert.True(errors.Is(err, ErrUnsupportedChallengeMethod))
	})
	t.Run("nil-verifier", func(t *testing.T) {
		_, err := CreateCodeChallenge(S256, nil)
		assert.ErrorIs(t, err, ErrNilParameter)
	})
}

func TestVerifyCodeChallenge(t *testing.T) {
	t.Parallel()
	v, err := NewCodeVerifier()
	require.NoError(t, err)
	other, err := NewCodeVerifier()
	require.NoError(t, err)

	tests := []struct {
		name      string
		verifier  string
		challenge string
		want      bool
	}{
		{name: "matching", verifier: v.Verifier(), challenge: v.Challenge(), want: true},
		{name: "mismatched-verifier", verifier: other.Verifier(), challenge: v.Challenge()},
		{name: "fabricated-challenge", verifier: v.Verifier(), challenge: "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"},
		{name: "plain-challenge", verifier: v.Verifier(), challenge: v.Verifier()},
		{name: "empty-verifier", verifier: "", challenge: v.Challenge()},
		{name: "empty-challenge", verifier: v.Verifier(), challenge: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyCodeChallenge(tt.verifier, tt.challenge))
		})
	}
}
