// Package api implements the NovelCipher REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AuthMode selects how authoring routes are authenticated.
type AuthMode string

// Supported auth modes. Values match the auth.mode config key.
const (
	AuthDisabled AuthMode = "disabled"
	AuthToken    AuthMode = "token"
)

const bearerPrefix = "Bearer "

// AuthMiddleware guards authoring routes. AuthDisabled lets every request
// through. AuthToken requires "Authorization: Bearer <token>" and compares
// the token in constant time. Any other mode, or token mode with an empty
// token, rejects every request.
func AuthMiddleware(mode AuthMode, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mode == AuthDisabled {
				next.ServeHTTP(w, r)
				return
			}
			if mode != AuthToken || token == "" || !validBearer(r.Header.Get("Authorization"), token) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="novelcipher"`)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func validBearer(header, token string) bool {
	got, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
