// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"context"
	"fmt"
	"net/http"

	"github.com/googler/googler/oidc"
)

// Authenticator completes an authorization code flow from the parameters
// of its callback. *oidc.Provider is an Authenticator.
type Authenticator interface {
	Authenticate(ctx context.Context, state, code string) (*oidc.TokenResponse, *oidc.IdentityClaims, error)
}

// ensure that oidc.Provider implements the Authenticator interface
var _ Authenticator = (*oidc.Provider)(nil)

// AuthCode creates an oidc authorization code callback handler which
// exchanges the request's "code" for tokens, using the request's "state" to
// find the flow's PKCE code verifier, and verifies the returned id_token.
//
// The parameters are read from the query, a form body or a json body. See
// ReadParams.
//
// The SuccessResponseFunc is used to create a response when callback is
// successful. The ErrorResponseFunc is to create a response when the callback
// fails, including when the provider redirected back with an error.
func AuthCode(a Authenticator, sFn SuccessResponseFunc, eFn ErrorResponseFunc) (http.HandlerFunc, error) {
	const op = "callback.AuthCode"
	if a == nil {
		return nil, fmt.Errorf("%s: authenticator is empty: %w", op, oidc.ErrInvalidParameter)
	}
	if sFn == nil {
		return nil, fmt.Errorf("%s: success response func is empty: %w", op, oidc.ErrInvalidParameter)
	}
	if eFn == nil {
		return nil, fmt.Errorf("%s: error response func is empty: %w", op, oidc.ErrInvalidParameter)
	}
	return func(w http.ResponseWriter, req *http.Request) {
		params, err := ReadParams(req)
		if err != nil {
			eFn(params.State, nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		if params.Error != "" {
			eFn(params.State, &AuthenErrorResponse{
				Error:       params.Error,
				Description: params.ErrorDescription,
				URI:         params.ErrorURI,
			}, nil, w, req)
			return
		}

		tk, claims, err := a.Authenticate(req.Context(), params.State, params.Code)
		if err != nil {
			eFn(params.State, nil, fmt.Errorf("%s: %w", op, err), w, req)
			return
		}
		sFn(params.State, tk, claims, w, req)
	}, nil
}
