// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/googler/googler/oidc"
	sdkHttp "github.com/googler/googler/sdk/http"
)

// testSuccessFn is a test SuccessResponseFunc
func testSuccessFn(state string, _ *oidc.TokenResponse, claims *oidc.IdentityClaims, w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"state": state,
		"sub":   claims.Subject,
		"email": claims.Email,
	})
}

// testFailFn is a test ErrorResponseFunc
var testFailFn = JSONErrorResponse(nil)

// testNewProvider creates a new Provider.  It uses the TestProvider (tp) to properly
// construct the provider's configuration. This is helpful internally, but
// intentionally not exported.
func testNewProvider(t *testing.T, tp *oidc.TestProvider) *oidc.Provider {
	t.Helper()
	require := require.New(t)
	c, err := oidc.NewConfig(
		oidc.TestClientID,
		oidc.TestClientSecret,
		oidc.TestBaseURL,
		oidc.WithEndpoints(tp.AuthEndpoint(), tp.TokenEndpoint(), tp.JWKSURL()),
		oidc.WithProviderCA(tp.CACert()),
	)
	require.NoError(err)
	p, err := oidc.NewProvider(c)
	require.NoError(err)
	t.Cleanup(p.Done)
	return p
}

// testAuthorize follows the provider's authorization url to the
// TestProvider and returns the state and code it redirected back with.
func testAuthorize(t *testing.T, tp *oidc.TestProvider, p *oidc.Provider) (state, code string) {
	t.Helper()
	require := require.New(t)
	authURL, err := p.AuthURL(context.Background())
	require.NoError(err)

	client, err := sdkHttp.NewClient(tp.CACert(), 5*time.Second)
	require.NoError(err)
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := client.Get(authURL)
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(err)
	return loc.Query().Get("state"), loc.Query().Get("code")
}

// testDecode decodes a json response body.
func testDecode(t *testing.T, body []byte) map[string]string {
	t.Helper()
	got := map[string]string{}
	require.NoError(t, json.Unmarshal(body, &got))
	return got
}
