// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package jwt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/require"
)

// TestGenerateKeys will generate a test ECDSA P-256 pub/priv key pair.
func TestGenerateKeys(t *testing.T) (crypto.PublicKey, crypto.PrivateKey) {
	t.Helper()
	require := require.New(t)
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(err)
	return &priv.PublicKey, priv
}

// TestPublicKeyPEM returns the PKIX PEM encoding of the public key.
func TestPublicKeyPEM(t *testing.T, pub crypto.PublicKey) string {
	t.Helper()
	require := require.New(t)
	derBytes, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: derBytes}))
}

// TestSignJWT will bundle the provided claims into a test signed JWT. The
// optional keyID is set as the "kid" header.
func TestSignJWT(t *testing.T, key crypto.PrivateKey, alg string, claims interface{}, keyID []byte) string {
	t.Helper()
	require := require.New(t)

	opts := (&jose.SignerOptions{}).WithType("JWT")
	if len(keyID) > 0 {
		opts = opts.WithHeader(jose.HeaderKey("kid"), string(keyID))
	}
	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.SignatureAlgorithm(alg), Key: key},
		opts,
	)
	require.NoError(err)

	raw, err := jwt.Signed(sig).
		Claims(claims).
		CompactSerialize()
	require.NoError(err)
	return raw
}

// TestJWKS converts a public key into JWKS data suitable for a key set
// endpoint response.
func TestJWKS(t *testing.T, pub crypto.PublicKey, alg Alg, keyID string) *jose.JSONWebKeySet {
	t.Helper()
	require := require.New(t)
	require.NotNil(pub)
	return &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{
			{
				Key:       pub,
				KeyID:     keyID,
				Algorithm: string(alg),
				Use:       "sig",
			},
		},
	}
}
