// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// Command spa serves the backend half of a single page app's Google sign in.
//
// Required environment: GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET. Set REDIS_URL
// to share pending states between replicas.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/googler/googler/oidc"
	"github.com/googler/googler/oidc/redisstore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadEnvConfig()
	if err != nil {
		return err
	}
	logger := cfg.logger()

	pc, err := cfg.providerConfig()
	if err != nil {
		return err
	}

	popts := []oidc.Option{oidc.WithLogger(logger.Named("provider"))}
	rdb, err := cfg.redisClient()
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		s, err := redisstore.New(rdb, redisstore.WithLogger(logger.Named("redis")))
		if err != nil {
			return err
		}
		popts = append(popts, oidc.WithStateStore(s))
	}

	p, err := oidc.NewProvider(pc, popts...)
	if err != nil {
		return err
	}
	defer p.Done()

	h, err := routes(p, cfg.LoginPath, pc.CallbackPath, logger)
	if err != nil {
		return err
	}
	redirectURL, err := pc.RedirectURL()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.ListenAddr, "callback", redirectURL)
		srvCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-srvCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server closed with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
