package fakesessionstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nexahq/nexa-auth/sessions"
)

func timestamp(at time.Time) *time.Time {
	return &at
}

var _ sessions.Store = (*FakeSessionStore)(nil)

// FakeSessionStore is an in-memory sessions.Store for tests. It honours the
// same conditional-update semantics as the Postgres adapter so rotation races
// behave identically under test.
type FakeSessionStore struct {
	sessions map[string]*sessions.Session
	tokens   map[string]*sessions.RefreshToken // keyed by row id
	byHash   map[string]string                 // token hash to row id
	lock     sync.RWMutex
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{
		sessions: make(map[string]*sessions.Session),
		tokens:   make(map[string]*sessions.RefreshToken),
		byHash:   make(map[string]string),
	}
}

func (fs *FakeSessionStore) CreateSession(_ context.Context, session *sessions.Session) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	copied := *session
	fs.sessions[session.ID] = &copied
	return nil
}

func (fs *FakeSessionStore) GetSession(_ context.Context, id string) (*sessions.Session, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	session, ok := fs.sessions[id]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (fs *FakeSessionStore) RevokeSession(_ context.Context, id string, at time.Time) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	session, ok := fs.sessions[id]
	if !ok {
		return sessions.ErrSessionNotFound
	}
	if session.RevokedAt == nil {
		session.RevokedAt = timestamp(at)
	}
	return nil
}

func (fs *FakeSessionStore) ListSessionsForUser(_ context.Context, userID string) ([]*sessions.Session, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	list := make([]*sessions.Session, 0)
	for _, s := range fs.sessions {
		if s.UserID != userID {
			continue
		}
		copied := *s
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

func (fs *FakeSessionStore) InsertRefreshToken(_ context.Context, token *sessions.RefreshToken) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	copied := *token
	fs.tokens[token.ID] = &copied
	fs.byHash[token.TokenHash] = token.ID
	return nil
}

func (fs *FakeSessionStore) FindRefreshTokenByHash(_ context.Context, tokenHash string) (*sessions.RefreshToken, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	id, ok := fs.byHash[tokenHash]
	if !ok {
		return nil, sessions.ErrTokenNotFound
	}
	copied := *fs.tokens[id]
	return &copied, nil
}

// MarkRotated only succeeds when rotated_at and revoked_at are both unset.
// First writer wins; the loser sees false.
func (fs *FakeSessionStore) MarkRotated(_ context.Context, id string, at time.Time) (bool, error) {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	token, ok := fs.tokens[id]
	if !ok {
		return false, sessions.ErrTokenNotFound
	}
	if token.RotatedAt != nil || token.RevokedAt != nil {
		return false, nil
	}
	token.RotatedAt = timestamp(at)
	return true, nil
}

func (fs *FakeSessionStore) RevokeAllForSession(_ context.Context, sessionID string, at time.Time) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	for _, token := range fs.tokens {
		if token.SessionID == sessionID && token.RevokedAt == nil {
			token.RevokedAt = timestamp(at)
		}
	}
	return nil
}

// LiveTokenCount reports how many refresh tokens for the session are neither
// revoked nor rotated. Test helper for the single-live-token invariant.
func (fs *FakeSessionStore) LiveTokenCount(sessionID string) int {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	count := 0
	for _, token := range fs.tokens {
		if token.SessionID == sessionID && token.RevokedAt == nil && token.RotatedAt == nil {
			count++
		}
	}
	return count
}
