package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTokenNotFound   = errors.New("refresh token not found")
)

// Store is the only component permitted to talk to durable storage for
// sessions and refresh tokens. Every operation is idempotent on its row id so
// callers may safely retry.
//
// MarkRotated is a conditional update: it succeeds only if the row has not
// already been rotated or revoked, and reports whether this caller won the
// race. Two concurrent rotations of the same token must observe exactly one
// true result between them.
type Store interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	RevokeSession(ctx context.Context, id string, at time.Time) error
	ListSessionsForUser(ctx context.Context, userID string) ([]*Session, error)

	InsertRefreshToken(ctx context.Context, token *RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	MarkRotated(ctx context.Context, id string, at time.Time) (bool, error)
	RevokeAllForSession(ctx context.Context, sessionID string, at time.Time) error
}
