// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
oidc is a package for signing users in with Google using the OAuth 2.0
authorization code flow with PKCE.

Primary types provided by the package

* Config: the client credentials, base and callback urls, accepted issuers,
state ttl, http timeout and provider endpoints. Config.RedirectURL derives the
callback url, applying the drop or force https rewrites.

* State: one pending authorization request. Its id is the oauth2 "state"
parameter and it owns the PKCE CodeVerifier for the request.

* StateStore: holds the code verifier of every pending request for a limited
time and hands it out at most once (Take). MemStateStore keeps them in
process, see the redisstore package for a store shared by several replicas.

* Provider: generates authorization urls (AuthURL), exchanges authorization
codes for tokens (Exchange), verifies id_tokens (VerifyIDToken) and runs both
steps of the callback (Authenticate).

* TokenResponse and IdentityClaims: the tokens returned by a successful
exchange and the verified claims of the id_token. Token values redact
themselves when printed or marshaled.

The oidc.callback package

The callback package includes the ability to create a http.HandlerFunc which
can be used for the final leg of the flow, where the authorization code is
exchanged for tokens.

Testing

TestProvider is an https server that stands in for Google's authorization,
token and jwks endpoints.
*/
package oidc
