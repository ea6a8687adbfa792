// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"github.com/googler/googler/oidc"
)

// envConfig is read from the environment on startup.
type envConfig struct {
	ClientID              string        `env:"GOOGLE_CLIENT_ID,required"`
	ClientSecret          string        `env:"GOOGLE_CLIENT_SECRET,required"`
	BaseURL               string        `env:"BASE_URL" envDefault:"http://localhost:3000"`
	CallbackPath          string        `env:"GOOGLE_CALLBACK_PATH" envDefault:"/google/callback"`
	LoginPath             string        `env:"GOOGLE_LOGIN_PATH" envDefault:"/google/login"`
	ListenAddr            string        `env:"LISTEN_ADDR" envDefault:"localhost:3000"`
	LogLevel              string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL              string        `env:"REDIS_URL"`
	ForceHTTPS            bool          `env:"FORCE_HTTPS"`
	DropHTTPS             bool          `env:"DROP_HTTPS"`
	// AllowInsecureRedirect permits DROP_HTTPS on a host other than localhost.
	AllowInsecureRedirect bool          `env:"ALLOW_INSECURE_REDIRECT"`
	StateTTL              time.Duration `env:"STATE_TTL" envDefault:"30s"`
}

func loadEnvConfig() (envConfig, error) {
	const op = "loadEnvConfig"
	var c envConfig
	if err := env.Parse(&c); err != nil {
		return envConfig{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (c envConfig) providerConfig() (*oidc.Config, error) {
	opts := []oidc.Option{
		oidc.WithCallbackPath(c.CallbackPath),
		oidc.WithStateTTL(c.StateTTL),
	}
	if c.ForceHTTPS {
		opts = append(opts, oidc.WithForceHTTPS())
	}
	if c.DropHTTPS {
		opts = append(opts, oidc.WithDropHTTPS())
	}
	if c.AllowInsecureRedirect {
		opts = append(opts, oidc.WithAllowInsecureRedirect())
	}
	return oidc.NewConfig(c.ClientID, oidc.ClientSecret(c.ClientSecret), c.BaseURL, opts...)
}

func (c envConfig) logger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "googler-spa",
		Level: hclog.LevelFromString(c.LogLevel),
	})
}

// redisClient returns nil when no REDIS_URL is set, in which case states are
// kept in memory.
func (c envConfig) redisClient() (*redis.Client, error) {
	const op = "envConfig.redisClient"
	if c.RedisURL == "" {
		return nil, nil
	}
	ro, err := redis.ParseURL(c.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return redis.NewClient(ro), nil
}
