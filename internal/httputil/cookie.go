package httputil

import (
	"net/http"
	"time"
)

// Cookie names carrying the session tokens.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieConfig holds cookie configuration.
type CookieConfig struct {
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
}

// NewCookieConfig returns cookie configuration for the deployment posture.
// Production serves cross-site over HTTPS; development stays lax.
func NewCookieConfig(production bool, domain string) CookieConfig {
	cfg := CookieConfig{
		Path:     "/",
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	}
	if production {
		cfg.SameSite = http.SameSiteNoneMode
		cfg.Domain = domain
	}
	return cfg
}

// SetAccessCookie sets the HttpOnly access token cookie.
func SetAccessCookie(w http.ResponseWriter, token string, ttl time.Duration, cfg CookieConfig) {
	setCookie(w, AccessTokenCookie, token, int(ttl.Seconds()), cfg)
}

// SetRefreshCookie sets the HttpOnly refresh token cookie.
func SetRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration, cfg CookieConfig) {
	setCookie(w, RefreshTokenCookie, token, int(ttl.Seconds()), cfg)
}

// ClearAuthCookies clears both session cookies.
func ClearAuthCookies(w http.ResponseWriter, cfg CookieConfig) {
	setCookie(w, AccessTokenCookie, "", -1, cfg)
	setCookie(w, RefreshTokenCookie, "", -1, cfg)
}

func setCookie(w http.ResponseWriter, name, value string, maxAge int, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// GetAccessTokenFromRequest extracts the access token from the cookie.
func GetAccessTokenFromRequest(r *http.Request) (string, bool) {
	return cookieValue(r, AccessTokenCookie)
}

// GetRefreshTokenFromRequest extracts the refresh token from the cookie.
func GetRefreshTokenFromRequest(r *http.Request) (string, bool) {
	return cookieValue(r, RefreshTokenCookie)
}

func cookieValue(r *http.Request, name string) (string, bool) {
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
