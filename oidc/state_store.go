// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// StateStore holds the PKCE code verifier for every pending authorization
// request, keyed by the request's state id. Entries are single use: Take must
// return a given entry to at most one caller, even when callers race.
//
// Implementations must return an error wrapping ErrNotFound when the state
// is absent or has expired.
type StateStore interface {
	// Put records verifier under state for ttl.
	Put(ctx context.Context, state, verifier string, ttl time.Duration) error

	// Get returns the verifier stored under state without consuming it.
	Get(ctx context.Context, state string) (string, error)

	// Take atomically returns and removes the verifier stored under state.
	Take(ctx context.Context, state string) (string, error)

	// Delete removes state. Deleting an absent state is not an error.
	Delete(ctx context.Context, state string) error
}

// DefaultSweepInterval is how often a MemStateStore purges expired entries.
const DefaultSweepInterval = time.Minute

type memEntry struct {
	verifier  string
	expiresAt time.Time
}

// MemStateStore is an in-process StateStore. It is only suitable for a
// single replica deployment.
type MemStateStore struct {
	mu      sync.Mutex
	entries map[string]memEntry

	now    func() time.Time
	logger hclog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// ensure that MemStateStore implements the StateStore interface
var _ StateStore = (*MemStateStore)(nil)

// NewMemStateStore creates a new MemStateStore and starts its expiry sweeper.
// Call Done to stop the sweeper.
//
// Supported options: WithSweepInterval, WithNow, WithLogger
func NewMemStateStore(opt ...Option) *MemStateStore {
	opts := getMemStoreOpts(opt...)
	s := &MemStateStore{
		entries: map[string]memEntry{},
		now:     opts.withNowFunc,
		logger:  opts.withLogger,
		stop:    make(chan struct{}),
	}
	if opts.withSweepInterval > 0 {
		go s.sweep(opts.withSweepInterval)
	}
	return s
}

// Put implements the StateStore.Put() interface function. An existing entry
// for the same state is replaced.
func (s *MemStateStore) Put(_ context.Context, state, verifier string, ttl time.Duration) error {
	const op = "MemStateStore.Put"
	switch {
	case state == "":
		return fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	case verifier == "":
		return fmt.Errorf("%s: verifier is empty: %w", op, ErrInvalidParameter)
	case ttl <= 0:
		return fmt.Errorf("%s: ttl not greater than zero: %w", op, ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state] = memEntry{verifier: verifier, expiresAt: s.now().Add(ttl)}
	return nil
}

// Get implements the StateStore.Get() interface function.
func (s *MemStateStore) Get(_ context.Context, state string) (string, error) {
	const op = "MemStateStore.Get"
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(state)
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return e.verifier, nil
}

// Take implements the StateStore.Take() interface function.
func (s *MemStateStore) Take(_ context.Context, state string) (string, error) {
	const op = "MemStateStore.Take"
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(state)
	if !ok {
		return "", fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	delete(s.entries, state)
	return e.verifier, nil
}

// Delete implements the StateStore.Delete() interface function.
func (s *MemStateStore) Delete(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, state)
	return nil
}

// Len returns the number of entries held, expired or not.
func (s *MemStateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Done stops the expiry sweeper. It is safe to call more than once.
func (s *MemStateStore) Done() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// lookup must be called with s.mu held. Expired entries are removed as they
// are found.
func (s *MemStateStore) lookup(state string) (memEntry, bool) {
	e, ok := s.entries[state]
	if !ok {
		return memEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, state)
		return memEntry{}, false
	}
	return e, true
}

func (s *MemStateStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.purge(); n > 0 {
				s.logger.Trace("purged expired states", "count", n)
			}
		}
	}
}

func (s *MemStateStore) purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// memStoreOptions is the set of available options for MemStateStore
type memStoreOptions struct {
	withSweepInterval time.Duration
	withNowFunc       func() time.Time
	withLogger        hclog.Logger
}

// memStoreDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func memStoreDefaults() memStoreOptions {
	return memStoreOptions{
		withSweepInterval: DefaultSweepInterval,
		withNowFunc:       time.Now,
		withLogger:        hclog.NewNullLogger(),
	}
}

// getMemStoreOpts gets the defaults and applies the opt overrides passed in
func getMemStoreOpts(opt ...Option) memStoreOptions {
	opts := memStoreDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithSweepInterval provides an optional interval for purging expired
// entries from a MemStateStore. Zero or less disables the sweeper, leaving
// expired entries to be dropped when they're next looked up.
func WithSweepInterval(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*memStoreOptions); ok {
			o.withSweepInterval = d
		}
	}
}
