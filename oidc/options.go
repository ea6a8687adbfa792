// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// WithNow provides an optional func for determining what the current time it
// is for: State, MemStateStore, Provider and TokenResponse.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if now == nil {
			return
		}
		switch v := o.(type) {
		case *stOptions:
			v.withNowFunc = now
		case *memStoreOptions:
			v.withNowFunc = now
		case *providerOptions:
			v.withNowFunc = now
		case *tokenOptions:
			v.withNowFunc = now
		}
	}
}

// WithLogger provides an optional logger for: MemStateStore and Provider.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if l == nil {
			return
		}
		switch v := o.(type) {
		case *memStoreOptions:
			v.withLogger = l
		case *providerOptions:
			v.withLogger = l
		}
	}
}

// WithExpirySkew provides an optional expiry skew duration for: TokenResponse
func WithExpirySkew(d time.Duration) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *tokenOptions:
			v.withExpirySkew = d
		}
	}
}
