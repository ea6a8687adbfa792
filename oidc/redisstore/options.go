// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package redisstore

import (
	"github.com/hashicorp/go-hclog"

	"github.com/googler/googler/oidc"
)

// Option is an alias of oidc.Option, so the store's options can be passed
// along with the oidc package's.
type Option = oidc.Option

type options struct {
	withKeyPrefix string
	withLogger    hclog.Logger
}

func getDefaultOptions() options {
	return options{
		withKeyPrefix: DefaultKeyPrefix,
		withLogger:    hclog.NewNullLogger(),
	}
}

func getOpts(opt ...Option) options {
	opts := getDefaultOptions()
	oidc.ApplyOpts(&opts, opt...)
	return opts
}

// WithKeyPrefix overrides DefaultKeyPrefix. An empty prefix stores states
// under their bare id.
func WithKeyPrefix(prefix string) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok {
			o.withKeyPrefix = prefix
		}
	}
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*options); ok && l != nil {
			o.withLogger = l
		}
	}
}
