// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/googler/googler/jwt"
	sdkHttp "github.com/googler/googler/sdk/http"
)

func TestClientSecret_String(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert := assert.New(t)
		const want = RedactedClientSecret
		secret := ClientSecret("bob's phone number")
		assert.Equalf(want, secret.String(), "ClientSecret.String() = %v, want %v", secret.String(), want)
		assert.Equal(want, fmt.Sprintf("%v", secret))
	})
}

func TestClientSecret_MarshalJSON(t *testing.T) {
	t.Parallel()
	t.Run("redacted", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		want := fmt.Sprintf(`"%s"`, RedactedClientSecret)
		secret := ClientSecret("bob's phone number")
		got, err := secret.MarshalJSON()
		require.NoError(err)
		assert.Equalf([]byte(want), got, "ClientSecret.MarshalJSON() = %s, want %s", got, want)
	})
	t.Run("config", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig("client-id", "bob's phone number", "https://app.example.com")
		require.NoError(err)
		b, err := json.Marshal(c)
		require.NoError(err)
		assert.NotContains(string(b), "bob's phone number")
		assert.NotContains(fmt.Sprintf("%+v", c), "bob's phone number")
	})
}

func TestNewConfig(t *testing.T) {
	t.Parallel()
	testCaPem := TestGenerateCA(t, []string{"localhost"})

	type args struct {
		clientID     string
		clientSecret ClientSecret
		baseURL      string
		opt          []Option
	}
	tests := []struct {
		name      string
		args      args
		want      *Config
		wantErr   bool
		wantIsErr error
		wantCount int
	}{
		{
			name: "valid-defaults",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "https://app.example.com",
			},
			want: &Config{
				ClientID:             "client-id",
				ClientSecret:         "client-secret",
				BaseURL:              "https://app.example.com",
				CallbackPath:         DefaultCallbackPath,
				Issuers:              GoogleIssuers,
				StateTTL:             DefaultStateTTL,
				HTTPTimeout:          DefaultHTTPTimeout,
				SupportedSigningAlgs: []jwt.Alg{jwt.RS256},
				AuthEndpoint:         GoogleAuthEndpoint,
				TokenEndpoint:        GoogleTokenEndpoint,
				JWKSURL:              GoogleJWKSURL,
			},
		},
		{
			name: "valid-with-all-valid-opts",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "http://localhost:8080",
				opt: []Option{
					WithCallbackPath("/auth/callback"),
					WithIssuers("https://issuer.example.com", "https://issuer.example.com", " "),
					WithDropHTTPS(),
					WithStateTTL(time.Minute),
					WithHTTPTimeout(time.Second),
					WithProviderCA(testCaPem),
					WithSupportedSigningAlgs(jwt.ES256, jwt.RS256),
					WithEndpoints("https://localhost/auth", "https://localhost/token", "https://localhost/certs"),
				},
			},
			want: &Config{
				ClientID:             "client-id",
				ClientSecret:         "client-secret",
				BaseURL:              "http://localhost:8080",
				CallbackPath:         "/auth/callback",
				Issuers:              []string{"https://issuer.example.com"},
				DropHTTPS:            true,
				StateTTL:             time.Minute,
				HTTPTimeout:          time.Second,
				ProviderCA:           testCaPem,
				SupportedSigningAlgs: []jwt.Alg{jwt.ES256, jwt.RS256},
				AuthEndpoint:         "https://localhost/auth",
				TokenEndpoint:        "https://localhost/token",
				JWKSURL:              "https://localhost/certs",
			},
		},
		{
			name: "drop-https-allowed-insecure",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "https://app.example.com",
				opt:          []Option{WithDropHTTPS(), WithAllowInsecureRedirect()},
			},
			want: &Config{
				ClientID:              "client-id",
				ClientSecret:          "client-secret",
				BaseURL:               "https://app.example.com",
				CallbackPath:          DefaultCallbackPath,
				Issuers:               GoogleIssuers,
				DropHTTPS:             true,
				AllowInsecureRedirect: true,
				StateTTL:              DefaultStateTTL,
				HTTPTimeout:           DefaultHTTPTimeout,
				SupportedSigningAlgs:  []jwt.Alg{jwt.RS256},
				AuthEndpoint:          GoogleAuthEndpoint,
				TokenEndpoint:         GoogleTokenEndpoint,
				JWKSURL:               GoogleJWKSURL,
			},
		},
		{
			name: "missing-client-id",
			args: args{
				clientSecret: "client-secret",
				baseURL:      "https://app.example.com",
			},
			wantErr:   true,
			wantIsErr: ErrConfiguration,
			wantCount: 1,
		},
		{
			name: "every-required-value-missing",
			args: args{
				opt: []Option{WithCallbackPath(""), WithIssuers(), WithStateTTL(0), WithHTTPTimeout(0)},
			},
			wantErr:   true,
			wantIsErr: ErrConfiguration,
			wantCount: 7,
		},
		{
			name: "relative-base-url",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "/app",
			},
			wantErr:   true,
			wantIsErr: ErrConfiguration,
			wantCount: 1,
		},
		{
			name: "ftp-base-url",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "ftp://app.example.com",
			},
			wantErr:   true,
			wantIsErr: ErrConfiguration,
			wantCount: 1,
		},
		{
			name: "force-and-drop-https",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "http://127.0.0.1:8080",
				opt:          []Option{WithForceHTTPS(), WithDropHTTPS()},
			},
			wantErr:   true,
			wantIsErr: ErrConfiguration,
			wantCount: 1,
		},
		{
			name: "drop-https-non-loopback",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "https://app.example.com",
				opt:          []Option{WithDropHTTPS()},
			},
			wantErr:   true,
			wantIsErr: ErrConfiguration,
			wantCount: 1,
		},
		{
			name: "unsupported-alg",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "https://app.example.com",
				opt:          []Option{WithSupportedSigningAlgs("HS256")},
			},
			wantErr:   true,
			wantIsErr: ErrConfiguration,
			wantCount: 1,
		},
		{
			name: "no-algs",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "https://app.example.com",
				opt:          []Option{WithSupportedSigningAlgs()},
			},
			wantErr:   true,
			wantIsErr: ErrConfiguration,
			wantCount: 1,
		},
		{
			name: "relative-token-endpoint",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "https://app.example.com",
				opt:          []Option{WithEndpoints("", "/token", "")},
			},
			wantErr:   true,
			wantIsErr: ErrConfiguration,
			wantCount: 1,
		},
		{
			name: "bad-ca",
			args: args{
				clientID:     "client-id",
				clientSecret: "client-secret",
				baseURL:      "https://app.example.com",
				opt:          []Option{WithProviderCA("not a pem")},
			},
			wantErr:   true,
			wantIsErr: ErrInvalidCACert,
			wantCount: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := NewConfig(tt.args.clientID, tt.args.clientSecret, tt.args.baseURL, tt.args.opt...)
			if tt.wantErr {
				require.Error(err)
				assert.Nil(got)
				assert.ErrorIsf(err, tt.wantIsErr, "wanted \"%s\" but got \"%s\"", tt.wantIsErr, err)
				var merr *multierror.Error
				require.ErrorAs(err, &merr)
				assert.Lenf(merr.Errors, tt.wantCount, "errors: %s", merr)
				return
			}
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()
	var c *Config
	err := c.Validate()
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.ErrorIs(t, err, ErrNilParameter)
}

func TestConfig_RedirectURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		c    *Config
		want string
	}{
		{
			name: "joined",
			c:    &Config{BaseURL: "https://app.example.com", CallbackPath: "/google/callback"},
			want: "https://app.example.com/google/callback",
		},
		{
			name: "base-with-trailing-slash",
			c:    &Config{BaseURL: "https://app.example.com/", CallbackPath: "/google/callback"},
			want: "https://app.example.com/google/callback",
		},
		{
			name: "absolute-path-replaces-base-path",
			c:    &Config{BaseURL: "https://app.example.com/app/", CallbackPath: "/google/callback"},
			want: "https://app.example.com/google/callback",
		},
		{
			name: "relative-path-appends-to-base-path",
			c:    &Config{BaseURL: "https://app.example.com/app/", CallbackPath: "google/callback"},
			want: "https://app.example.com/app/google/callback",
		},
		{
			name: "drop-https",
			c:    &Config{BaseURL: "https://localhost:8443", CallbackPath: "/cb", DropHTTPS: true},
			want: "http://localhost:8443/cb",
		},
		{
			name: "drop-https-already-http",
			c:    &Config{BaseURL: "http://localhost:8080", CallbackPath: "/cb", DropHTTPS: true},
			want: "http://localhost:8080/cb",
		},
		{
			name: "force-https",
			c:    &Config{BaseURL: "http://app.example.com", CallbackPath: "/cb", ForceHTTPS: true},
			want: "https://app.example.com/cb",
		},
		{
			name: "force-https-already-https",
			c:    &Config{BaseURL: "https://app.example.com", CallbackPath: "/cb", ForceHTTPS: true},
			want: "https://app.example.com/cb",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert, require := assert.New(t), require.New(t)
			got, err := tt.c.RedirectURL()
			require.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestConfig_HTTPClient(t *testing.T) {
	t.Parallel()
	assert, require := assert.New(t), require.New(t)
	c := &Config{ProviderCA: TestGenerateCA(t, []string{"localhost"}), HTTPTimeout: 3 * time.Second}
	client, err := c.HTTPClient()
	require.NoError(err)
	assert.Equal(3*time.Second, client.Timeout)

	c.ProviderCA = "not a pem"
	_, err = c.HTTPClient()
	assert.ErrorIs(err, ErrInvalidCACert)
}

func Test_isLoopbackHost(t *testing.T) {
	t.Parallel()
	tests := map[string]bool{
		"localhost":       true,
		"LOCALHOST":       true,
		"app.localhost":   true,
		"127.0.0.1":       true,
		"127.1.2.3":       true,
		"::1":             true,
		"app.example.com": false,
		"10.0.0.1":        false,
		"localhost.com":   false,
	}
	for host, want := range tests {
		assert.Equalf(t, want, isLoopbackHost(host), "isLoopbackHost(%q)", host)
	}
}

func Test_WithEndpoints(t *testing.T) {
	t.Parallel()
	assert := assert.New(t)
	opts := getConfigOpts(WithEndpoints("", "https://example.com/token", ""))
	testOpts := configDefaults()
	testOpts.withTokenEndpoint = "https://example.com/token"
	assert.Equal(testOpts, opts)
}

func TestHTTPClientContext(t *testing.T) {
	t.Parallel()
	client, err := sdkHttp.NewClient("", time.Second)
	require.NoError(t, err)
	ctx := HTTPClientContext(context.Background(), client)
	assert.Equal(t, client, ctx.Value(oauth2.HTTPClient))
}
