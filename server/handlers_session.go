package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/nexahq/nexa-auth/identity"
	"github.com/nexahq/nexa-auth/sessions"
)

// BridgeHandler exchanges an externally-issued identity token for this
// service's cookie pair. Used during the migration window away from the
// legacy identity provider.
func (s *Server) BridgeHandler() http.HandlerFunc {
	type bridgeRequest struct {
		Token string `json:"token"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req bridgeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Token == "" {
			writeErrorMessage(w, http.StatusBadRequest, "token is required")
			return
		}

		result, err := s.auth.Bridge(r.Context(), req.Token, s.clientInfo(r))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.completeLogin(w, r, result)
	}
}

// RefreshHandler rotates the refresh token from the nxa_refresh cookie and
// returns a new cookie pair. Every failure mode is a 401.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshCookieName)
		if err != nil || cookie.Value == "" {
			s.writeError(w, r, identity.ErrUnauthorized)
			return
		}

		result, err := s.auth.Refresh(r.Context(), cookie.Value)
		if err != nil {
			s.clearSessionCookies(w, r)
			s.writeError(w, r, err)
			return
		}

		s.completeLogin(w, r, result)
	}
}

// LogoutHandler revokes the session behind the refresh cookie and clears
// both cookies. Always succeeds from the client's point of view.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawToken := ""
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			rawToken = cookie.Value
		}

		if err := s.auth.Logout(r.Context(), rawToken); err != nil {
			s.clearSessionCookies(w, r)
			s.writeError(w, r, err)
			return
		}

		s.clearSessionCookies(w, r)
		writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	}
}

type sessionView struct {
	ID        string     `json:"id"`
	UserAgent string     `json:"userAgent"`
	IPAddress string     `json:"ipAddress"`
	CreatedAt time.Time  `json:"createdAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

// SessionListHandler lists the caller's sessions, revoked ones included.
func (s *Server) SessionListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFromContext(r.Context())
		if !ok {
			s.writeError(w, r, identity.ErrUnauthorized)
			return
		}

		list, err := s.auth.ListSessions(r.Context(), principal.ID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		views := make([]sessionView, 0, len(list))
		for _, session := range list {
			views = append(views, sessionView{
				ID:        session.ID,
				UserAgent: session.UserAgent,
				IPAddress: session.IPAddress,
				CreatedAt: session.CreatedAt,
				RevokedAt: session.RevokedAt,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"sessions": views})
	}
}

// SessionRevokeHandler revokes a session by id. The session must belong to
// the caller unless the caller is an admin.
func (s *Server) SessionRevokeHandler() http.HandlerFunc {
	type revokeRequest struct {
		SessionID string `json:"sessionId"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := principalFromContext(r.Context())
		if !ok {
			s.writeError(w, r, identity.ErrUnauthorized)
			return
		}
		roles, _ := rolesFromContext(r.Context())

		var req revokeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			writeErrorMessage(w, http.StatusBadRequest, "sessionId is required")
			return
		}

		err := s.auth.RevokeSession(r.Context(), principal.ID, roles.IsAdmin, req.SessionID)
		if err != nil {
			if errors.Is(err, sessions.ErrSessionNotFound) {
				writeErrorMessage(w, http.StatusBadRequest, "unknown session")
				return
			}
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
	}
}
