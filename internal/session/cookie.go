package session

import (
	"net/http"
	"time"
)

const (
	// CookieName is the session cookie issued at login.
	CookieName = "sp_session"

	// CookieMaxAge matches the token lifetime: 30 days.
	CookieMaxAge = 30 * 24 * time.Hour
)

// SetCookie issues the session cookie to the client. secure should follow the
// deployment configuration (TLS-terminated or not).
func SetCookie(w http.ResponseWriter, tokenString string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tokenString,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie from the client. This does not
// revoke the token itself: a captured token stays valid until expiry.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadCookie returns the raw token from the request, or "" if absent.
func ReadCookie(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
