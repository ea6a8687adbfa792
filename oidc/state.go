// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"
	"time"
)

// DefaultStateTTL is how long an authorization request stays redeemable when
// the Config doesn't set a StateTTL.
const DefaultStateTTL = 30 * time.Second

// State represents one pending authorization code flow. Its ID is sent to
// the provider as the oauth2 "state" parameter and comes back on the
// callback, where it is used to look up the PKCE code verifier created along
// with it.
type State struct {
	// id is an unguessable, url-safe value used to correlate the
	// authorization request with its callback
	id string

	// verifier is the PKCE code verifier bound to the id. It never leaves the
	// server.
	verifier *CodeVerifier

	createdAt time.Time
	ttl       time.Duration

	nowFunc func() time.Time
}

// NewState creates a new State with a fresh id and PKCE code verifier. The
// ttl must be greater than zero.
//
// Supported options: WithNow
func NewState(ttl time.Duration, opt ...Option) (*State, error) {
	const op = "oidc.NewState"
	if ttl <= 0 {
		return nil, fmt.Errorf("%s: ttl not greater than zero: %w", op, ErrInvalidParameter)
	}
	opts := getStOpts(opt...)

	id, err := NewID()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a state's id: %w", op, err)
	}
	v, err := NewCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("%s: unable to generate a state's code verifier: %w", op, err)
	}
	return &State{
		id:        id,
		verifier:  v,
		createdAt: opts.withNowFunc(),
		ttl:       ttl,
		nowFunc:   opts.withNowFunc,
	}, nil
}

func (s *State) ID() string              { return s.id }        // ID returns the state's id
func (s *State) Verifier() *CodeVerifier { return s.verifier }  // Verifier returns the state's PKCE code verifier
func (s *State) CreatedAt() time.Time    { return s.createdAt } // CreatedAt returns when the state was created
func (s *State) TTL() time.Duration      { return s.ttl }       // TTL returns how long the state is redeemable

// ExpiresAt returns the instant the state stops being redeemable.
func (s *State) ExpiresAt() time.Time {
	return s.createdAt.Add(s.ttl)
}

// String returns the state's id. The id is not a secret, it travels in the
// authorization url.
func (s *State) String() string {
	return s.id
}

func (s *State) now() time.Time {
	return s.nowFunc()
}

// IsExpired returns true once the state's ttl has elapsed. A state is
// expired at exactly createdAt+ttl.
func (s *State) IsExpired() bool {
	return !s.now().Before(s.ExpiresAt())
}

// stOptions is the set of available options for State functions
type stOptions struct {
	withNowFunc func() time.Time
}

// stDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func stDefaults() stOptions {
	return stOptions{
		withNowFunc: time.Now,
	}
}

// getStOpts gets the state defaults and applies the opt overrides passed in
func getStOpts(opt ...Option) stOptions {
	opts := stDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
