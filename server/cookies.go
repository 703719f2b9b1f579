package server

import (
	"net/http"

	"github.com/nexahq/nexa-auth/auth"
)

// Cookie names are part of the wire contract with the frontend.
const (
	accessCookieName  = "nxa_access"
	refreshCookieName = "nxa_refresh"
	csrfCookieName    = "nxa_csrf"

	// The refresh cookie only travels to the session endpoints.
	refreshCookiePath = "/auth/session"

	csrfCookieMaxAge = 7 * 24 * 60 * 60
)

// setSessionCookies writes the access/refresh pair after a successful
// credential exchange or rotation.
func (s *Server) setSessionCookies(w http.ResponseWriter, r *http.Request, result *auth.LoginResult) {
	isSecure := s.isSecure(r)

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    result.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.config.GetAccessTokenExpiry().Seconds()),
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    result.RefreshToken,
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.config.GetRefreshTokenExpiry().Seconds()),
	})
}

func (s *Server) setCsrfCookie(w http.ResponseWriter, r *http.Request, token string) {
	// Readable by the frontend so it can echo the value in x-csrf-token.
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   s.isSecure(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   csrfCookieMaxAge,
	})
}

func (s *Server) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	isSecure := s.isSecure(r)

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

func (s *Server) isSecure(r *http.Request) bool {
	if s.env == "DEV" {
		return getScheme(r) == "https"
	}
	return true
}
