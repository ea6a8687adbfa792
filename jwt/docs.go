// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

/*
Package jwt verifies signed JSON Web Tokens.

A KeySet verifies a token's signature. JSONWebKeySet fetches keys from a
remote JWKS URL and caches them, refreshing when a token carries a key id it
has not seen yet, which is how providers like Google rotate their signing
keys. StaticKeySet verifies with local PEM-encoded public keys.

A Validator wraps one or more KeySets and additionally checks the signing
algorithm, the time based claims (exp, nbf, iat), and the optional audience
and issuer expectations.
*/
package jwt
