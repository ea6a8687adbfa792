// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_newIdentityClaims(t *testing.T) {
	t.Parallel()
	exp := time.Unix(1700000000, 0)
	tests := []struct {
		name    string
		raw     map[string]interface{}
		want    func(*testing.T, *IdentityClaims)
		wantErr bool
	}{
		{
			name: "full",
			raw: map[string]interface{}{
				"iss":            "https://accounts.google.com",
				"aud":            "client-id",
				"azp":            "client-id",
				"sub":            "110169484474386276334",
				"email":          "alice@example.com",
				"email_verified": true,
				"name":           "Alice Example",
				"given_name":     "Alice",
				"family_name":    "Example",
				"picture":        "https://example.com/alice.png",
				"locale":         "en",
				"hd":             "example.com",
				"exp":            float64(exp.Unix()),
				"iat":            float64(exp.Add(-time.Hour).Unix()),
			},
			want: func(t *testing.T, c *IdentityClaims) {
				assert := assert.New(t)
				assert.Equal("https://accounts.google.com", c.Issuer)
				assert.Equal([]string{"client-id"}, c.Audience)
				assert.Equal("client-id", c.AuthorizedParty)
				assert.Equal("110169484474386276334", c.Subject)
				assert.Equal("alice@example.com", c.Email)
				assert.True(c.EmailVerified)
				assert.Equal("Alice Example", c.Name)
				assert.Equal("Alice", c.GivenName)
				assert.Equal("Example", c.FamilyName)
				assert.Equal("https://example.com/alice.png", c.Picture)
				assert.Equal("en", c.Locale)
				assert.Equal("example.com", c.HostedDomain)
				assert.True(exp.Equal(c.Expiry))
				assert.True(exp.Add(-time.Hour).Equal(c.IssuedAt))
				assert.True(c.NotBefore.IsZero())
				assert.Equal("en", c.Raw["locale"])
			},
		},
		{
			name: "string-email-verified",
			raw: map[string]interface{}{
				"aud":            []interface{}{"a", "b"},
				"email_verified": "true",
			},
			want: func(t *testing.T, c *IdentityClaims) {
				assert.True(t, c.EmailVerified)
				assert.Equal(t, []string{"a", "b"}, c.Audience)
			},
		},
		{
			name: "missing-email-verified",
			raw:  map[string]interface{}{"sub": "alice"},
			want: func(t *testing.T, c *IdentityClaims) {
				assert.False(t, c.EmailVerified)
			},
		},
		{
			name:    "bad-email-verified",
			raw:     map[string]interface{}{"email_verified": "maybe"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newIdentityClaims(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want(t, got)
		})
	}
}
