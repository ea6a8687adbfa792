// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
)

// IdentityClaims are the verified claims of a Google id_token.
type IdentityClaims struct {
	Issuer          string
	Audience        []string
	AuthorizedParty string
	Subject         string

	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	Picture       string
	Locale        string

	// HostedDomain is the Google Workspace domain of the account, empty for
	// consumer accounts.
	HostedDomain string

	Expiry    time.Time
	IssuedAt  time.Time
	NotBefore time.Time

	// Raw holds every claim in the token, including ones not mapped above.
	Raw map[string]interface{}
}

// googleClaims is the wire form of a Google id_token payload.
type googleClaims struct {
	Issuer          string           `json:"iss"`
	Audience        jwt.Audience     `json:"aud"`
	AuthorizedParty string           `json:"azp"`
	Subject         string           `json:"sub"`
	Email           string           `json:"email"`
	EmailVerified   flexBool         `json:"email_verified"`
	Name            string           `json:"name"`
	GivenName       string           `json:"given_name"`
	FamilyName      string           `json:"family_name"`
	Picture         string           `json:"picture"`
	Locale          string           `json:"locale"`
	HostedDomain    string           `json:"hd"`
	Expiry          *jwt.NumericDate `json:"exp"`
	IssuedAt        *jwt.NumericDate `json:"iat"`
	NotBefore       *jwt.NumericDate `json:"nbf"`
}

// newIdentityClaims maps a verified claims set.
func newIdentityClaims(raw map[string]interface{}) (*IdentityClaims, error) {
	const op = "oidc.newIdentityClaims"
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to encode claims: %w", op, err)
	}
	var gc googleClaims
	if err := json.Unmarshal(b, &gc); err != nil {
		return nil, fmt.Errorf("%s: unable to decode claims: %w", op, err)
	}
	c := &IdentityClaims{
		Issuer:          gc.Issuer,
		Audience:        []string(gc.Audience),
		AuthorizedParty: gc.AuthorizedParty,
		Subject:         gc.Subject,
		Email:           gc.Email,
		EmailVerified:   bool(gc.EmailVerified),
		Name:            gc.Name,
		GivenName:       gc.GivenName,
		FamilyName:      gc.FamilyName,
		Picture:         gc.Picture,
		Locale:          gc.Locale,
		HostedDomain:    gc.HostedDomain,
		Raw:             raw,
	}
	if gc.Expiry != nil {
		c.Expiry = gc.Expiry.Time()
	}
	if gc.IssuedAt != nil {
		c.IssuedAt = gc.IssuedAt.Time()
	}
	if gc.NotBefore != nil {
		c.NotBefore = gc.NotBefore.Time()
	}
	return c, nil
}

// flexBool accepts both a json bool and a quoted "true"/"false", Google has
// sent email_verified both ways.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*b = false
	case bool:
		*b = flexBool(t)
	case string:
		parsed, err := strconv.ParseBool(t)
		if err != nil {
			return fmt.Errorf("invalid boolean %q: %w", t, err)
		}
		*b = flexBool(parsed)
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}
