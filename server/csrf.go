package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const csrfHeaderName = "x-csrf-token"

// newCsrfToken creates a random base64url token. The scheme is stateless
// double-submit: the value is never stored server-side, security comes from
// same-origin cookie scoping.
func newCsrfToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "[newCsrfToken] rand.Read")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CsrfMiddleware enforces the double-submit check on state-changing methods.
// GET/HEAD/OPTIONS pass through untouched.
func (s *Server) CsrfMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			s.rejectCsrf(w, r, "missing cookie")
			return
		}

		header := r.Header.Get(csrfHeaderName)
		if header == "" {
			s.rejectCsrf(w, r, "missing header")
			return
		}

		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
			s.rejectCsrf(w, r, "token mismatch")
			return
		}

		next(w, r)
	}
}

func (s *Server) rejectCsrf(w http.ResponseWriter, r *http.Request, reason string) {
	log.Warn().
		Str("path", r.URL.Path).
		Str("ip", s.clientIP(r)).
		Str("reason", reason).
		Msg("csrf check failed")
	writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")
}

// CsrfHandler issues a fresh token and sets the readable cookie.
func (s *Server) CsrfHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := newCsrfToken()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.setCsrfCookie(w, r, token)
		writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
	}
}
