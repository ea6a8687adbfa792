// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState(t *testing.T) {
	t.Parallel()
	testNow := func() time.Time {
		return time.Now().Add(-1 * time.Minute)
	}
	tests := []struct {
		name        string
		ttl         time.Duration
		opts        []Option
		wantNowFunc func() time.Time
		wantErr     bool
		wantIsErr   error
	}{
		{
			name:        "valid-WithNow",
			ttl:         DefaultStateTTL,
			opts:        []Option{WithNow(testNow)},
			wantNowFunc: testNow,
		},
		{
			name:        "valid-no-opt",
			ttl:         DefaultStateTTL,
			wantNowFunc: time.Now,
		},
		{
			name:      "zero-ttl",
			ttl:       0,
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
		{
			name:      "negative-ttl",
			ttl:       -time.Second,
			wantErr:   true,
			wantIsErr: ErrInvalidParameter,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewState(tt.ttl, tt.opts...)
			if tt.wantErr {
				require.Error(err)
				assert.Truef(errors.Is(err, tt.wantIsErr), "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				return
			}
			require.NoError(err)
			assert.Len(got.ID(), DefaultIDLength)
			assert.Equal(got.ID(), got.String())
			require.NotNil(got.Verifier())
			assert.NotEqual(got.ID(), got.Verifier().Verifier())
			assert.Equal(tt.ttl, got.TTL())
			assert.Equal(got.CreatedAt().Add(tt.ttl), got.ExpiresAt())
			assert.WithinDuration(tt.wantNowFunc(), got.CreatedAt(), time.Second)
			testAssertEqualFunc(t, tt.wantNowFunc, got.nowFunc, "now = %p,want %p", tt.wantNowFunc, got.nowFunc)
		})
	}
}

func TestState_IsExpired(t *testing.T) {
	t.Parallel()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := created
	now := func() time.Time { return clock }

	s, err := NewState(30*time.Second, WithNow(now))
	require.NoError(t, err)

	tests := []struct {
		name    string
		at      time.Time
		expired bool
	}{
		{name: "at-creation", at: created},
		{name: "just-before-ttl", at: created.Add(30*time.Second - time.Millisecond)},
		{name: "exactly-ttl", at: created.Add(30 * time.Second), expired: true},
		{name: "after-ttl", at: created.Add(31 * time.Second), expired: true},
	}
	for _, tt := range tests {
		clock = tt.at
		assert.Equalf(t, tt.expired, s.IsExpired(), "%s: IsExpired() at %s", tt.name, tt.at)
	}
}
