// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides callbacks (in the form of http.HandlerFunc)
for handling Google's responses to authorization code flow (with PKCE)
authentication attempts.
*/
package callback
