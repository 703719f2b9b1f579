package sessions

import (
	"time"
)

// Session is the durable record of a browser/device login. Sessions are never
// deleted; revocation sets RevokedAt so the row remains as an audit trail.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	UserAgent string     `json:"user_agent,omitempty"`
	IPAddress string     `json:"ip_address,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Revoked reports whether the session has been revoked.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// RefreshToken is the server-side row for an opaque refresh token. The raw
// token value is never persisted - only its SHA-256 hash. At most one row per
// session is live (revoked_at and rotated_at both NULL) at any time.
type RefreshToken struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	RotatedAt *time.Time `json:"rotated_at,omitempty"`
}

// Live reports whether the token row is still usable: not revoked, not
// rotated and not past its expiry at the given instant.
func (rt *RefreshToken) Live(now time.Time) bool {
	return rt.RevokedAt == nil && rt.RotatedAt == nil && now.Before(rt.ExpiresAt)
}
