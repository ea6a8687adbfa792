// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-hclog"

	"github.com/googler/googler/oidc"
)

// SuccessResponseFunc is used by Callbacks to create a http response when the
// callback is successful.
//
// The function state parameter will contain the state that was returned as
// part of a successful authentication response. The oidc.TokenResponse is the
// result of a successful token exchange with the provider and the
// oidc.IdentityClaims are the verified claims of its id_token. The function
// should use the http.ResponseWriter to send back whatever content (headers,
// html, JSON, etc) it wishes to the client that originated the flow,
// typically after establishing a session for the user.
type SuccessResponseFunc func(state string, t *oidc.TokenResponse, claims *oidc.IdentityClaims, w http.ResponseWriter, req *http.Request)

// ErrorResponseFunc is used by Callbacks to create a http response when the
// callback fails.
//
// The function receives the state returned as part of the authentication
// response.  It also gets parameters for the authentication error response
// and/or the callback error raised while processing the request.  The function
// should use the http.ResponseWriter to send back whatever content (headers,
// html, JSON, etc) it wishes to the client that originated the flow.
type ErrorResponseFunc func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, req *http.Request)

// AuthenErrorResponse represents Oauth2 error responses.  See:
// https://tools.ietf.org/html/rfc6749#section-4.1.2.1
type AuthenErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
}

// ErrorBody is the json body written by JSONErrorResponse.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// JSONErrorResponse returns an ErrorResponseFunc that writes an ErrorBody
// with the status from StatusCode. The message is a fixed description of
// the failure class, never the error itself, and the error is logged at
// debug.
func JSONErrorResponse(logger hclog.Logger) ErrorResponseFunc {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return func(state string, respErr *AuthenErrorResponse, e error, w http.ResponseWriter, _ *http.Request) {
		var status int
		var body ErrorBody
		switch {
		case respErr != nil:
			logger.Debug("provider returned an error", "state", state, "error", respErr.Error, "description", respErr.Description)
			status = http.StatusUnauthorized
			body = ErrorBody{Error: respErr.Error, Message: "Authentication was not completed with the provider."}
		default:
			logger.Debug("callback failed", "state", state, "error", e)
			status = StatusCode(e)
			body = ErrorBody{Error: ErrorCode(e), Message: Message(e)}
		}
		WriteJSON(w, status, body)
	}
}

// WriteJSON writes v as the json body of a response with the status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
