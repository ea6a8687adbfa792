// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"fmt"

	"github.com/googler/googler/sdk/id"
)

// DefaultIDLength is the length of an ID without a prefix. IDs carry 256
// bits of entropy, base64url encoded without padding.
const DefaultIDLength = 43

// NewID generates an ID with an optional prefix. The ID generated is
// suitable for a State ID.
//
// Supported options: WithPrefix
func NewID(opt ...Option) (string, error) {
	const op = "oidc.NewID"
	opts := getIDOpts(opt...)
	id, err := id.New(opts.withPrefix)
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w: %w", op, ErrEntropy, err)
	}
	return id, nil
}

// idOptions is the set of available options.
type idOptions struct {
	withPrefix string
}

// idDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func idDefaults() idOptions {
	return idOptions{}
}

// getIDOpts gets the defaults and applies the opt overrides passed
// in.
func getIDOpts(opt ...Option) idOptions {
	opts := idDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithPrefix provides an optional prefix for a new ID. When this options is
// provided, NewID will prepend the prefix and an underscore to the new
// identifier.
func WithPrefix(prefix string) Option {
	return func(o interface{}) {
		if o, ok := o.(*idOptions); ok {
			o.withPrefix = prefix
		}
	}
}
