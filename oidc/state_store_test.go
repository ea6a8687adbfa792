// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock is a settable clock for exercising ttl boundaries.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemStateStore_Put(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStateStore(WithSweepInterval(0))
	t.Cleanup(s.Done)

	tests := []struct {
		name      string
		state     string
		verifier  string
		ttl       time.Duration
		wantIsErr error
	}{
		{name: "valid", state: "st", verifier: "v", ttl: time.Second},
		{name: "empty-state", verifier: "v", ttl: time.Second, wantIsErr: ErrInvalidParameter},
		{name: "empty-verifier", state: "st", ttl: time.Second, wantIsErr: ErrInvalidParameter},
		{name: "zero-ttl", state: "st", verifier: "v", wantIsErr: ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Put(ctx, tt.state, tt.verifier, tt.ttl)
			if tt.wantIsErr != nil {
				assert.ErrorIs(t, err, tt.wantIsErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestMemStateStore_GetTake(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	s := NewMemStateStore(WithSweepInterval(0))
	t.Cleanup(s.Done)

	require.NoError(s.Put(ctx, "st", "verifier", time.Minute))

	got, err := s.Get(ctx, "st")
	require.NoError(err)
	assert.Equal("verifier", got)

	// Get doesn't consume
	got, err = s.Take(ctx, "st")
	require.NoError(err)
	assert.Equal("verifier", got)

	_, err = s.Take(ctx, "st")
	assert.ErrorIs(err, ErrNotFound)
	_, err = s.Get(ctx, "st")
	assert.ErrorIs(err, ErrNotFound)

	_, err = s.Take(ctx, "never-issued")
	assert.ErrorIs(err, ErrNotFound)

	require.NoError(s.Put(ctx, "st2", "verifier", time.Minute))
	require.NoError(s.Delete(ctx, "st2"))
	require.NoError(s.Delete(ctx, "st2"))
	_, err = s.Take(ctx, "st2")
	assert.ErrorIs(err, ErrNotFound)
}

func TestMemStateStore_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const ttl = 30 * time.Second

	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr bool
	}{
		{name: "just-before-ttl", elapsed: ttl - time.Millisecond},
		{name: "exactly-ttl", elapsed: ttl, wantErr: true},
		{name: "after-ttl", elapsed: ttl + time.Millisecond, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			clock := newTestClock()
			s := NewMemStateStore(WithSweepInterval(0), WithNow(clock.Now))
			t.Cleanup(s.Done)

			require.NoError(s.Put(ctx, "st", "verifier", ttl))
			clock.Advance(tt.elapsed)
			got, err := s.Take(ctx, "st")
			if tt.wantErr {
				assert.ErrorIs(err, ErrNotFound)
				assert.Equal(0, s.Len())
				return
			}
			require.NoError(err)
			assert.Equal("verifier", got)
		})
	}
}

func TestMemStateStore_purge(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	clock := newTestClock()
	s := NewMemStateStore(WithSweepInterval(0), WithNow(clock.Now))
	t.Cleanup(s.Done)

	require.NoError(s.Put(ctx, "short", "v", time.Second))
	require.NoError(s.Put(ctx, "long", "v", time.Hour))
	clock.Advance(time.Minute)
	assert.Equal(1, s.purge())
	assert.Equal(1, s.Len())
	_, err := s.Get(ctx, "long")
	assert.NoError(err)
}

func TestMemStateStore_sweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newTestClock()
	s := NewMemStateStore(WithSweepInterval(10*time.Millisecond), WithNow(clock.Now))
	t.Cleanup(s.Done)

	require.NoError(t, s.Put(ctx, "st", "v", time.Second))
	clock.Advance(2 * time.Second)
	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 10*time.Millisecond)

	s.Done()
	s.Done()
}

func TestMemStateStore_ConcurrentTake(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStateStore(WithSweepInterval(0))
	t.Cleanup(s.Done)
	require.NoError(t, s.Put(ctx, "st", "verifier", time.Minute))

	const racers = 50
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := s.Take(ctx, "st"); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func Test_getMemStoreOpts(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	opts := getMemStoreOpts(WithSweepInterval(time.Second))
	assert.Equal(time.Second, opts.withSweepInterval)
	assert.NotNil(opts.withLogger)
	assert.NotNil(opts.withNowFunc)
}
