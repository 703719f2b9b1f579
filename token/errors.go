package token

import "errors"

var (
	// ErrNoSigningSecret means the deployment has no signing key configured.
	// Surfaced as a 500, never silently degraded.
	ErrNoSigningSecret = errors.New("no token signing secret configured")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenReuseDetected means a refresh token was presented after it had
	// already been rotated or revoked. The owning session and all of its
	// tokens are revoked before this error is returned.
	ErrTokenReuseDetected = errors.New("refresh token reuse detected")
)
