// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// googler provides the server side of "Sign in with Google": an OAuth 2.0
// authorization code flow with PKCE and the verification of the id_token it
// returns.
//
// The oidc package holds the Provider and its single-use state stores, the
// jwt package the token validation it builds on, and oidc/callback an
// http.Handler for the redirect back from Google.
package googler
