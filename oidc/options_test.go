// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func Test_ApplyOpts(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	opts := tokenDefaults()
	ApplyOpts(&opts, nil, WithExpirySkew(time.Minute))
	assert.Equal(time.Minute, opts.withExpirySkew)
}

func Test_WithNow(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	now := func() time.Time { return time.Unix(0, 0) }

	st := getStOpts(WithNow(now))
	testAssertEqualFunc(t, now, st.withNowFunc, "stOptions now")

	mem := getMemStoreOpts(WithNow(now))
	testAssertEqualFunc(t, now, mem.withNowFunc, "memStoreOptions now")

	p := getProviderOpts(WithNow(now))
	testAssertEqualFunc(t, now, p.withNowFunc, "providerOptions now")

	// a nil func leaves the default in place
	st = getStOpts(WithNow(nil))
	assert.NotNil(st.withNowFunc)
}

func Test_WithLogger(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	l := hclog.New(&hclog.LoggerOptions{Name: "test"})
	assert.Equal(l, getMemStoreOpts(WithLogger(l)).withLogger)
	assert.Equal(l, getProviderOpts(WithLogger(l)).withLogger)
}
