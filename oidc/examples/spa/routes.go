// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/googler/googler/oidc"
	"github.com/googler/googler/oidc/callback"
)

// routes wires the login and callback handlers. The callback accepts both
// the provider's GET redirect and a POST of {"code","state"} from a frontend
// that received the redirect itself.
func routes(p *oidc.Provider, loginPath, callbackPath string, logger hclog.Logger) (http.Handler, error) {
	const op = "routes"
	cb, err := callback.AuthCode(p, successFn(logger), callback.JSONErrorResponse(logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(loginPath, loginHandler(p, logger))
	r.Get(callbackPath, cb)
	r.Post(callbackPath, cb)
	return r, nil
}

type loginResponse struct {
	URL string `json:"url"`
}

// loginHandler starts a flow. Browsers are redirected to Google, clients
// asking for json get the url back instead.
func loginHandler(p *oidc.Provider, logger hclog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := p.AuthURL(r.Context())
		if err != nil {
			logger.Error("unable to start authentication", "error", err)
			callback.WriteJSON(w, http.StatusInternalServerError, callback.ErrorBody{
				Error:   "server_error",
				Message: "Unable to start sign in.",
			})
			return
		}
		if wantsJSON(r) {
			callback.WriteJSON(w, http.StatusOK, loginResponse{URL: authURL})
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

func wantsJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Accept"))
	return err == nil && mt == "application/json"
}

type successResponse struct {
	Username string `json:"username"`
	Subject  string `json:"sub"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// successFn reports who signed in. Establishing a session is left to the
// application embedding the handler.
func successFn(logger hclog.Logger) callback.SuccessResponseFunc {
	return func(state string, _ *oidc.TokenResponse, c *oidc.IdentityClaims, w http.ResponseWriter, _ *http.Request) {
		username := c.Email
		if username == "" {
			username = c.Subject
		}
		logger.Info("user authenticated", "state", state, "sub", c.Subject)
		callback.WriteJSON(w, http.StatusOK, successResponse{
			Username: username,
			Subject:  c.Subject,
			Email:    c.Email,
			Name:     c.Name,
			Picture:  c.Picture,
		})
	}
}
