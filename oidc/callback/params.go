// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package callback

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"

	"github.com/googler/googler/oidc"
)

// maxBodyBytes bounds a json callback body.
const maxBodyBytes = 64 << 10

// Params are the parameters of an authorization response.
//
// See: https://tools.ietf.org/html/rfc6749#section-4.1.2
type Params struct {
	State            string `json:"state"`
	Code             string `json:"code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorURI         string `json:"error_uri"`
}

// ReadParams reads the authorization response parameters of a callback
// request. A POST with a json content type is decoded as a json object,
// otherwise the values come from the form body or the query, with form body
// values taking priority.
//
// Missing state or code are not an error here, the Authenticator rejects
// them.
func ReadParams(req *http.Request) (Params, error) {
	const op = "callback.ReadParams"
	if req.Method == http.MethodPost && isJSON(req.Header.Get("Content-Type")) {
		var p Params
		dec := json.NewDecoder(http.MaxBytesReader(nil, req.Body, maxBodyBytes))
		if err := dec.Decode(&p); err != nil {
			return Params{}, fmt.Errorf("%s: unable to decode json body: %w: %w", op, oidc.ErrInvalidRequest, err)
		}
		return p, nil
	}
	return Params{
		State:            req.FormValue("state"),
		Code:             req.FormValue("code"),
		Error:            req.FormValue("error"),
		ErrorDescription: req.FormValue("error_description"),
		ErrorURI:         req.FormValue("error_uri"),
	}, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}
