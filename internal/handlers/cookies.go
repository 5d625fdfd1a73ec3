package handlers

import (
	"net/http"
	"time"
)

// Session cookies are HttpOnly and SameSite=Lax so scripts cannot read the
// tokens and plain cross-site navigations do not send them. Secure is
// relaxed only for local development over http.
func CreateCookie(name, value, path string, exp time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string, secure bool) *http.Cookie {
	return CreateCookie(name, "", path, time.Now().Add(-1*time.Hour), secure)
}
