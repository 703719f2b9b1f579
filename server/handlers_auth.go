package server

import (
	"net/http"
	"time"

	"github.com/nexahq/nexa-auth/auth"
	"github.com/nexahq/nexa-auth/users"
)

const captchaHeaderName = "x-captcha-token"

type loginResponse struct {
	User             *users.User `json:"user"`
	AccessToken      string      `json:"accessToken"`
	RefreshExpiresAt time.Time   `json:"refreshExpiresAt"`
}

// RegisterHandler creates a credential-based account and establishes a
// session in the same exchange.
func (s *Server) RegisterHandler() http.HandlerFunc {
	type registerRequest struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		Username     string `json:"username"`
		CaptchaToken string `json:"captchaToken"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			writeErrorMessage(w, http.StatusBadRequest, "email and password are required")
			return
		}

		result, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Username, s.captchaToken(r, req.CaptchaToken), s.clientInfo(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.completeLogin(w, r, result)
	}
}

// LoginHandler runs the password login flow and sets the cookie pair.
func (s *Server) LoginHandler() http.HandlerFunc {
	type loginRequest struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		CaptchaToken string `json:"captchaToken"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			writeErrorMessage(w, http.StatusBadRequest, "email and password are required")
			return
		}

		result, err := s.auth.LoginWithPassword(r.Context(), req.Email, req.Password, s.captchaToken(r, req.CaptchaToken), s.clientInfo(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.completeLogin(w, r, result)
	}
}

// completeLogin sets the cookie pair and writes the login response body.
func (s *Server) completeLogin(w http.ResponseWriter, r *http.Request, result *auth.LoginResult) {
	s.setSessionCookies(w, r, result)
	writeJSON(w, http.StatusOK, loginResponse{
		User:             result.User,
		AccessToken:      result.AccessToken,
		RefreshExpiresAt: result.RefreshExpiresAt,
	})
}

// captchaToken prefers the body field, falling back to the header.
func (s *Server) captchaToken(r *http.Request, bodyToken string) string {
	if bodyToken != "" {
		return bodyToken
	}
	return r.Header.Get(captchaHeaderName)
}

func (s *Server) clientInfo(r *http.Request) auth.ClientInfo {
	return auth.ClientInfo{
		IP:        s.clientIP(r),
		UserAgent: r.UserAgent(),
	}
}
