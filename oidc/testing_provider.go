// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package oidc

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/stretchr/testify/require"

	"github.com/googler/googler/oidc/internal/strutils"
)

const (
	// TestClientID and TestClientSecret are a TestProvider's default client
	// credentials.
	TestClientID     = "test-client-id.apps.googleusercontent.com"
	TestClientSecret = "test-client-secret"

	// TestBaseURL is the base url whose default callback url a TestProvider
	// allows as a redirect_uri.
	TestBaseURL = "https://app.example.com"

	// TestAuthCode is a TestProvider's default authorization code.
	TestAuthCode = "4/0AX4XfWh-test-auth-code"

	// TestSubject is the "sub" of the id_tokens a TestProvider issues.
	TestSubject = "110169484474386276334"
)

// TestProvider is a local https server that stands in for Google's
// authorization, token and jwks endpoints. The token endpoint enforces
// client credentials, redirect_uri, single use authorization codes and the
// PKCE code verifier, the way Google does.
//
// id_tokens are RS256 signed by a key published at JWKSURL.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string

	mu                    sync.Mutex
	signingKey            *rsa.PrivateKey
	signingKeyID          string
	unknownKey            *rsa.PrivateKey
	jwks                  *jose.JSONWebKeySet
	clientID              string
	clientSecret          string
	expectedAuthCode      string
	usedAuthCodes         map[string]bool
	expectedCodeChallenge string
	allowedRedirectURIs   []string
	issuer                string
	customClaims          map[string]interface{}
	customAudience        []string
	expiresIn             time.Duration
	omitIDToken           bool
	signWithUnknownKey    bool
	tokenDelay            time.Duration
	jwksDelay             time.Duration
	tokenRequests         int
}

// StartTestProvider creates a disposable TestProvider. It is stopped when the
// test completes.
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()
	require := require.New(t)

	p := &TestProvider{
		clientID:            TestClientID,
		clientSecret:        TestClientSecret,
		expectedAuthCode:    TestAuthCode,
		usedAuthCodes:       map[string]bool{},
		allowedRedirectURIs: []string{TestBaseURL + DefaultCallbackPath},
		issuer:              "https://accounts.google.com",
		expiresIn:           time.Hour,
	}
	p.RotateSigningKey(t)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(io.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	var buf bytes.Buffer
	err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: p.httpServer.Certificate().Raw})
	require.NoError(err)
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the current base URL for the test provider's running webserver.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// CACert returns the pem-encoded CA certificate used by the test provider's
// HTTPS server.
func (p *TestProvider) CACert() string { return p.caCert }

func (p *TestProvider) AuthEndpoint() string  { return p.Addr() + "/auth" }  // AuthEndpoint returns the authorization endpoint url
func (p *TestProvider) TokenEndpoint() string { return p.Addr() + "/token" } // TokenEndpoint returns the token endpoint url
func (p *TestProvider) JWKSURL() string       { return p.Addr() + "/certs" } // JWKSURL returns the jwks url

// SetClientCreds is for configuring the client credentials the token
// endpoint requires.
func (p *TestProvider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the auth code to return from /auth and the
// allowed auth code for /token.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedCodeChallenge configures the PKCE code challenge the /token
// code_verifier must match. /auth sets it from the authorization request.
func (p *TestProvider) SetExpectedCodeChallenge(challenge string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedCodeChallenge = challenge
}

// SetAllowedRedirectURIs allows you to configure the allowed redirect URIs.
// If not configured TestBaseURL joined with DefaultCallbackPath is used.
func (p *TestProvider) SetAllowedRedirectURIs(uris []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowedRedirectURIs = uris
}

// SetCustomClaims lets you set claims to return in the id_token. They
// override the standard claims.
func (p *TestProvider) SetCustomClaims(customClaims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = customClaims
}

// SetCustomAudience configures what audience values to embed in the
// id_token, in place of the client id.
func (p *TestProvider) SetCustomAudience(aud ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customAudience = aud
}

// SetIssuer configures the "iss" of the id_token. Defaults to
// https://accounts.google.com.
func (p *TestProvider) SetIssuer(iss string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issuer = iss
}

// SetExpiresIn configures the lifetime of issued tokens. A negative value
// issues already expired id_tokens.
func (p *TestProvider) SetExpiresIn(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expiresIn = d
}

// OmitIDTokens forces an error state where the /token endpoint does not return
// id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// SignWithUnknownKey makes /token sign id_tokens with a key that isn't
// published at JWKSURL.
func (p *TestProvider) SignWithUnknownKey(t *testing.T) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unknownKey = key
	p.signWithUnknownKey = true
}

// SetTokenDelay delays every /token response, for exercising timeouts.
func (p *TestProvider) SetTokenDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenDelay = d
}

// SetJWKSDelay delays every /certs response, for exercising timeouts while
// fetching signing keys.
func (p *TestProvider) SetJWKSDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jwksDelay = d
}

// RotateSigningKey replaces the signing key and publishes only the new key.
func (p *TestProvider) RotateSigningKey(t *testing.T) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyID, err := NewID(WithPrefix("key"))
	require.NoError(t, err)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.signingKey = key
	p.signingKeyID = keyID
	p.jwks = &jose.JSONWebKeySet{
		Keys: []jose.JSONWebKey{{
			Key:       &key.PublicKey,
			KeyID:     keyID,
			Algorithm: string(jose.RS256),
			Use:       "sig",
		}},
	}
}

// TokenRequests returns the number of requests /token has received.
func (p *TestProvider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequests
}

// SignJWT signs claims with the provider's current signing key.
func (p *TestProvider) SignJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	token, err := signRS256(p.signingKey, p.signingKeyID, claims)
	require.NoError(t, err)
	return token
}

func signRS256(key *rsa.PrivateKey, keyID string, claims map[string]interface{}) (string, error) {
	opts := (&jose.SignerOptions{}).WithType("JWT")
	if keyID != "" {
		opts = opts.WithHeader(jose.HeaderKey("kid"), keyID)
	}
	sig, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, opts)
	if err != nil {
		return "", err
	}
	return jwt.Signed(sig).Claims(claims).CompactSerialize()
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, out interface{}) error {
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (p *TestProvider) writeAuthErrorResponse(w http.ResponseWriter, req *http.Request, errorCode, errorMessage string) {
	qv := req.URL.Query()
	v := url.Values{}
	v.Set("state", qv.Get("state"))
	v.Set("error", errorCode)
	if errorMessage != "" {
		v.Set("error_description", errorMessage)
	}
	http.Redirect(w, req, qv.Get("redirect_uri")+"?"+v.Encode(), http.StatusFound)
}

func (p *TestProvider) writeTokenErrorResponse(w http.ResponseWriter, statusCode int, errorCode, errorMessage string) {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{
		Code: errorCode,
		Desc: errorMessage,
	}
	w.WriteHeader(statusCode)
	_ = p.writeJSON(w, &body)
}

// ServeHTTP implements the test provider's http.Handler.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch req.URL.Path {
	case "/auth":
		p.mu.Lock()
		defer p.mu.Unlock()
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		qv := req.URL.Query()
		switch {
		case !strutils.StrListContains(p.allowedRedirectURIs, qv.Get("redirect_uri")):
			// Google shows an error page rather than redirecting to an
			// unregistered uri
			p.writeTokenErrorResponse(w, http.StatusBadRequest, "redirect_uri_mismatch", "")
			return
		case qv.Get("client_id") != p.clientID:
			p.writeAuthErrorResponse(w, req, "invalid_client", "")
			return
		case qv.Get("response_type") != "code":
			p.writeAuthErrorResponse(w, req, "unsupported_response_type", "")
			return
		case !strutils.StrListContains(strings.Fields(qv.Get("scope")), "openid"):
			p.writeAuthErrorResponse(w, req, "invalid_scope", "")
			return
		case qv.Get("state") == "":
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing state parameter")
			return
		case qv.Get("code_challenge_method") != string(S256) || qv.Get("code_challenge") == "":
			p.writeAuthErrorResponse(w, req, "invalid_request", "missing code challenge")
			return
		}
		p.expectedCodeChallenge = qv.Get("code_challenge")
		v := url.Values{}
		v.Set("state", qv.Get("state"))
		v.Set("code", p.expectedAuthCode)
		http.Redirect(w, req, qv.Get("redirect_uri")+"?"+v.Encode(), http.StatusFound)

	case "/certs":
		p.mu.Lock()
		delay := p.jwksDelay
		p.mu.Unlock()
		if !sleepCtx(req, delay) {
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = p.writeJSON(w, p.jwks)

	case "/token":
		p.mu.Lock()
		p.tokenRequests++
		delay := p.tokenDelay
		p.mu.Unlock()
		if !sleepCtx(req, delay) {
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		p.token(w, req)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// sleepCtx waits for d, returning false when the request is cancelled first.
func sleepCtx(req *http.Request, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-req.Context().Done():
		return false
	}
}

// token must be called with p.mu held.
func (p *TestProvider) token(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	code := req.FormValue("code")
	switch {
	case req.FormValue("grant_type") != "authorization_code":
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "unsupported_grant_type", "Invalid grant_type: "+req.FormValue("grant_type"))
		return
	case req.FormValue("client_id") != p.clientID || req.FormValue("client_secret") != p.clientSecret:
		p.writeTokenErrorResponse(w, http.StatusUnauthorized, "invalid_client", "Unauthorized")
		return
	case !strutils.StrListContains(p.allowedRedirectURIs, req.FormValue("redirect_uri")):
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "redirect_uri_mismatch", "Bad Request")
		return
	case code != p.expectedAuthCode || p.usedAuthCodes[code]:
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "Bad Request")
		return
	case req.FormValue("code_verifier") == "":
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "Missing code verifier.")
		return
	case !VerifyCodeChallenge(req.FormValue("code_verifier"), p.expectedCodeChallenge):
		p.writeTokenErrorResponse(w, http.StatusBadRequest, "invalid_grant", "Invalid code verifier.")
		return
	}
	p.usedAuthCodes[code] = true

	now := time.Now()
	claims := map[string]interface{}{
		"iss":            p.issuer,
		"azp":            p.clientID,
		"aud":            p.clientID,
		"sub":            TestSubject,
		"email":          "alice@example.com",
		"email_verified": true,
		"name":           "Alice Example",
		"given_name":     "Alice",
		"family_name":    "Example",
		"picture":        "https://lh3.googleusercontent.com/a/alice",
		"locale":         "en",
		"iat":            now.Unix(),
		"exp":            now.Add(p.expiresIn).Unix(),
	}
	switch len(p.customAudience) {
	case 0:
	case 1:
		claims["aud"] = p.customAudience[0]
	default:
		claims["aud"] = p.customAudience
	}
	for k, v := range p.customClaims {
		claims[k] = v
	}

	key, keyID := p.signingKey, p.signingKeyID
	if p.signWithUnknownKey {
		key = p.unknownKey
	}
	idToken, err := signRS256(key, keyID, claims)
	if err != nil {
		p.writeTokenErrorResponse(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	accessToken, err := NewID(WithPrefix("ya29"))
	if err != nil {
		p.writeTokenErrorResponse(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	reply := struct {
		AccessToken  string `json:"access_token"`
		ExpiresIn    int64  `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
		Scope        string `json:"scope"`
		TokenType    string `json:"token_type"`
		IDToken      string `json:"id_token,omitempty"`
	}{
		AccessToken:  accessToken,
		ExpiresIn:    int64(p.expiresIn / time.Second),
		RefreshToken: fmt.Sprintf("1//test-refresh-%s", code),
		Scope:        "openid https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/userinfo.profile",
		TokenType:    "Bearer",
		IDToken:      idToken,
	}
	if p.omitIDToken {
		reply.IDToken = ""
	}
	_ = p.writeJSON(w, &reply)
}
