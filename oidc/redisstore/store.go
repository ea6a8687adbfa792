// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Package redisstore provides an oidc.StateStore backed by Redis, for
// deployments where the callback may land on a different replica than the
// one that started the flow.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"github.com/googler/googler/oidc"
)

// DefaultKeyPrefix namespaces the keys the store writes.
const DefaultKeyPrefix = "google:auth:state"

// Store is an oidc.StateStore backed by Redis. Expiry is enforced by Redis
// and Take uses GETDEL, so a state is handed out at most once across every
// replica sharing the Redis instance.
type Store struct {
	rdb       redis.UniversalClient
	keyPrefix string
	logger    hclog.Logger
}

// ensure that Store implements the oidc.StateStore interface
var _ oidc.StateStore = (*Store)(nil)

// New creates a Store using the Redis client. The caller owns the client.
//
// Supported options: WithKeyPrefix, WithLogger
func New(rdb redis.UniversalClient, opt ...Option) (*Store, error) {
	const op = "redisstore.New"
	if rdb == nil {
		return nil, fmt.Errorf("%s: redis client is nil: %w", op, oidc.ErrNilParameter)
	}
	opts := getOpts(opt...)
	return &Store{
		rdb:       rdb,
		keyPrefix: opts.withKeyPrefix,
		logger:    opts.withLogger,
	}, nil
}

func (s *Store) key(state string) string {
	if s.keyPrefix == "" {
		return state
	}
	return s.keyPrefix + ":" + state
}

// Put implements the oidc.StateStore.Put() interface function.
func (s *Store) Put(ctx context.Context, state, verifier string, ttl time.Duration) error {
	const op = "Store.Put"
	switch {
	case state == "":
		return fmt.Errorf("%s: state is empty: %w", op, oidc.ErrInvalidParameter)
	case verifier == "":
		return fmt.Errorf("%s: verifier is empty: %w", op, oidc.ErrInvalidParameter)
	case ttl <= 0:
		return fmt.Errorf("%s: ttl not greater than zero: %w", op, oidc.ErrInvalidParameter)
	}
	if err := s.rdb.Set(ctx, s.key(state), verifier, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Trace("state stored", "op", op, "state", state, "ttl", ttl)
	return nil
}

// Get implements the oidc.StateStore.Get() interface function.
func (s *Store) Get(ctx context.Context, state string) (string, error) {
	const op = "Store.Get"
	v, err := s.rdb.Get(ctx, s.key(state)).Result()
	return s.result(op, v, err)
}

// Take implements the oidc.StateStore.Take() interface function. It
// requires Redis 6.2 or later.
func (s *Store) Take(ctx context.Context, state string) (string, error) {
	const op = "Store.Take"
	v, err := s.rdb.GetDel(ctx, s.key(state)).Result()
	return s.result(op, v, err)
}

// Delete implements the oidc.StateStore.Delete() interface function.
func (s *Store) Delete(ctx context.Context, state string) error {
	const op = "Store.Delete"
	if err := s.rdb.Del(ctx, s.key(state)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) result(op, v string, err error) (string, error) {
	switch {
	case errors.Is(err, redis.Nil):
		return "", fmt.Errorf("%s: %w", op, oidc.ErrNotFound)
	case err != nil:
		s.logger.Error("redis request failed", "op", op, "error", err)
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}
