package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexahq/nexa-auth/sessions"
)

// Store implements sessions.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a PostgreSQL-backed session store from an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect parses the connection string and returns a store with its own pool.
func Connect(ctx context.Context, connString string) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) CreateSession(ctx context.Context, session *sessions.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, user_agent, ip_address, created_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.UserAgent,
		session.IPAddress,
		session.CreatedAt,
		session.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*sessions.Session, error) {
	query := `
		SELECT id, user_id, user_agent, ip_address, created_at, revoked_at
		FROM sessions
		WHERE id = $1
	`

	var session sessions.Session
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.UserAgent,
		&session.IPAddress,
		&session.CreatedAt,
		&session.RevokedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sessions.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *Store) RevokeSession(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE sessions
		SET revoked_at = $2
		WHERE id = $1 AND revoked_at IS NULL
	`

	// Idempotent: a second revoke matches no rows, which is fine.
	if _, err := s.pool.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (s *Store) ListSessionsForUser(ctx context.Context, userID string) ([]*sessions.Session, error) {
	query := `
		SELECT id, user_id, user_agent, ip_address, created_at, revoked_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	list := make([]*sessions.Session, 0)
	for rows.Next() {
		var session sessions.Session
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.UserAgent,
			&session.IPAddress,
			&session.CreatedAt,
			&session.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		list = append(list, &session)
	}
	return list, rows.Err()
}

func (s *Store) InsertRefreshToken(ctx context.Context, token *sessions.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, session_id, token_hash, expires_at, created_at, revoked_at, rotated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		token.ID,
		token.SessionID,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
		token.RevokedAt,
		token.RotatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

func (s *Store) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*sessions.RefreshToken, error) {
	query := `
		SELECT id, session_id, token_hash, expires_at, created_at, revoked_at, rotated_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var token sessions.RefreshToken
	err := s.pool.QueryRow(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.SessionID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.RevokedAt,
		&token.RotatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sessions.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to find refresh token: %w", err)
	}
	return &token, nil
}

// MarkRotated performs the single conditional update that serialises
// concurrent rotations: only a row that is neither rotated nor revoked can be
// marked, and the row count tells the caller whether it won.
func (s *Store) MarkRotated(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET rotated_at = $2
		WHERE id = $1 AND rotated_at IS NULL AND revoked_at IS NULL
	`

	result, err := s.pool.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark refresh token rotated: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func (s *Store) RevokeAllForSession(ctx context.Context, sessionID string, at time.Time) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE session_id = $1 AND revoked_at IS NULL
	`

	if _, err := s.pool.Exec(ctx, query, sessionID, at); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}

var _ sessions.Store = (*Store)(nil)
