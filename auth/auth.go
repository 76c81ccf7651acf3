// Package auth reads the caller identity that the front-door auth layer
// attaches to each request. Credential and cookie issuance happen upstream;
// this service only consumes the result.
package auth

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

const (
	userIDHeader = "X-User-Id"
	emailHeader  = "X-User-Email"

	sessionCookie = "sid"
)

// UserID returns the authenticated user's id, if any.
func UserID(r *http.Request) (uint, bool) {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Email returns the authenticated user's email, or "".
func Email(r *http.Request) string {
	return r.Header.Get(emailHeader)
}

// SessionID returns the visitor's session id, minting a new cookie when the
// visitor has none yet.
func SessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	sid := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid
}
