package server

import (
	"net/http"
	"strings"
	"time"

	"visitrome-concierge/internal/identity"
)

const (
	// ClientIDHeader carries the client id for callers without cookies.
	ClientIDHeader = "X-Client-Id"
	// ClientIDQuery is the query parameter fallback.
	ClientIDQuery = "clientId"
	// CookieMaxAge keeps the id for a year, like browser local storage would.
	CookieMaxAge = 365 * 24 * time.Hour
)

// SetClientCookie stores the client id in an HTTP-only cookie.
func SetClientCookie(w http.ResponseWriter, r *http.Request, clientID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     identity.CookieName,
		Value:    clientID,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
}

// ClearClientCookie removes the client id cookie.
func ClearClientCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     identity.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetClientCookie reads the client id from the cookie.
func GetClientCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(identity.CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// clientIDFrom looks at the cookie, then the header, then the query string.
func clientIDFrom(r *http.Request) string {
	if id, err := GetClientCookie(r); err == nil && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	if id := strings.TrimSpace(r.Header.Get(ClientIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get(ClientIDQuery))
}
