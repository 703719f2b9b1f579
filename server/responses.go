package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nexahq/nexa-auth/auth"
	"github.com/nexahq/nexa-auth/captcha"
	"github.com/nexahq/nexa-auth/identity"
	"github.com/nexahq/nexa-auth/lockout"
	"github.com/nexahq/nexa-auth/otp"
	"github.com/nexahq/nexa-auth/token"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeError maps domain errors onto the HTTP taxonomy. Credential and token
// failures all collapse into a vague 401 so a caller cannot learn which
// stage rejected them; the detail lives in the server log only.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lockout.ErrLockedOut):
		writeErrorMessage(w, http.StatusTooManyRequests, "account locked")

	case errors.Is(err, auth.WeakPasswordErr):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, auth.UserExistsErr):
		writeErrorMessage(w, http.StatusBadRequest, "account already exists")

	case errors.Is(err, auth.NotSessionOwnerErr):
		writeErrorMessage(w, http.StatusForbidden, "forbidden")

	case errors.Is(err, captcha.ErrMissingSecret),
		errors.Is(err, token.ErrNoSigningSecret):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("configuration error")
		writeErrorMessage(w, http.StatusInternalServerError, "configuration error")

	case errors.Is(err, auth.InvalidCredentialsErr),
		errors.Is(err, auth.UserBlockedErr),
		errors.Is(err, captcha.ErrCaptchaFailed),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, token.ErrTokenReuseDetected),
		errors.Is(err, otp.ErrCodeInvalid),
		errors.Is(err, otp.ErrCodeExpired),
		errors.Is(err, otp.ErrTooManyAttempts),
		errors.Is(err, identity.ErrUnauthorized):
		log.Info().Err(err).Str("path", r.URL.Path).Str("ip", s.clientIP(r)).Msg("request rejected")
		writeErrorMessage(w, http.StatusUnauthorized, "unauthorized")

	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// clientIP honours X-Forwarded-For only in a declared trusted-proxy
// deployment. A directly reachable service must key lockouts on the socket
// address, or a client rotates the header to mint fresh (ip, identifier)
// keys.
func (s *Server) clientIP(r *http.Request) string {
	if s.config.GetTrustedProxy() {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			parts := strings.SplitN(forwarded, ",", 2)
			return strings.TrimSpace(parts[0])
		}
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
