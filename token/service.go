package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nexahq/nexa-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const refreshTokenLength = 32 // 32 bytes = 256 bits

// Claims are the verified contents of an access token. Ephemeral, never stored.
type Claims struct {
	UserID    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IssuedRefreshToken carries the raw refresh token back to the caller. The raw
// value is returned exactly once; only its hash is persisted.
type IssuedRefreshToken struct {
	Token     string
	ExpiresAt time.Time
}

// Rotation is the result of a successful refresh token rotation.
type Rotation struct {
	Token     string
	ExpiresAt time.Time
	Session   *sessions.Session
}

// Service mints access tokens (signed, short TTL) and refresh tokens (opaque,
// stored as a hash, long TTL), and owns rotation and session revocation.
type Service struct {
	store         sessions.Store
	signer        Signer
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowFunc       func() time.Time
}

type ServiceOption func(*Service)

func WithTokenExpiry(accessExpiry, refreshExpiry time.Duration) ServiceOption {
	return func(s *Service) {
		s.accessExpiry = accessExpiry
		s.refreshExpiry = refreshExpiry
	}
}

func WithNowFunc(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = now
	}
}

func NewService(store sessions.Store, signer Signer, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("[token.NewService] session store is required")
	}
	if signer == nil {
		return nil, ErrNoSigningSecret
	}

	s := &Service{
		store:         store,
		signer:        signer,
		accessExpiry:  15 * time.Minute,
		refreshExpiry: 30 * 24 * time.Hour,
		nowFunc:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// AccessExpiry returns the configured access token lifetime.
func (s *Service) AccessExpiry() time.Duration {
	return s.accessExpiry
}

// RefreshExpiry returns the configured refresh token lifetime.
func (s *Service) RefreshExpiry() time.Duration {
	return s.refreshExpiry
}

// SignAccessToken mints a signed access token for the user. Pure CPU, no I/O.
func (s *Service) SignAccessToken(userID, email string) (string, error) {
	now := s.nowFunc()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.accessExpiry).Unix(),
		"jti": uuid.New().String(),
	}
	if email != "" {
		claims["email"] = email
	}

	signedToken, err := s.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Service.SignAccessToken] signer.Sign")
	}
	return signedToken, nil
}

// VerifyAccessToken checks signature and expiry locally. No storage
// round-trip: this is what keeps the authenticated hot path cheap.
func (s *Service) VerifyAccessToken(rawToken string) (*Claims, error) {
	parsed, err := jwt.NewParser(jwt.WithTimeFunc(s.nowFunc)).Parse(rawToken, s.signer.GetVerificationKey)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}
	email, _ := claims["email"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	return &Claims{
		UserID:    sub,
		Email:     email,
		IssuedAt:  time.Unix(int64(iat), 0),
		ExpiresAt: time.Unix(int64(exp), 0),
	}, nil
}

// IssueRefreshToken generates a high-entropy opaque token bound to the
// session and stores only its hash. The raw value is never retrievable again.
func (s *Service) IssueRefreshToken(ctx context.Context, sessionID string) (*IssuedRefreshToken, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, errors.Wrap(err, "[Service.IssueRefreshToken] rand.Read")
	}

	now := s.nowFunc()
	tokenStr := hex.EncodeToString(tokenBytes)
	expiresAt := now.Add(s.refreshExpiry)

	if err := s.store.InsertRefreshToken(ctx, &sessions.RefreshToken{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		TokenHash: HashToken(tokenStr),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}); err != nil {
		return nil, errors.Wrap(err, "[Service.IssueRefreshToken] store.InsertRefreshToken")
	}

	return &IssuedRefreshToken{Token: tokenStr, ExpiresAt: expiresAt}, nil
}

// RotateRefreshToken exchanges a live refresh token for a new one bound to the
// same session. Presenting a token that was already rotated or revoked is a
// reuse event: the whole session chain is revoked before the error returns.
func (s *Service) RotateRefreshToken(ctx context.Context, rawToken string) (*Rotation, error) {
	stored, err := s.store.FindRefreshTokenByHash(ctx, HashToken(rawToken))
	if err != nil {
		if errors.Is(err, sessions.ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, errors.Wrap(err, "[Service.RotateRefreshToken] store.FindRefreshTokenByHash")
	}

	now := s.nowFunc()

	if stored.RevokedAt != nil || stored.RotatedAt != nil {
		return nil, s.reuseDetected(ctx, stored.SessionID)
	}
	if !now.Before(stored.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	session, err := s.store.GetSession(ctx, stored.SessionID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.RotateRefreshToken] store.GetSession")
	}
	if session.Revoked() {
		return nil, s.reuseDetected(ctx, stored.SessionID)
	}

	// Single conditional update: first writer wins, a concurrent second
	// rotation of the same token loses and is treated as reuse.
	won, err := s.store.MarkRotated(ctx, stored.ID, now)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.RotateRefreshToken] store.MarkRotated")
	}
	if !won {
		return nil, s.reuseDetected(ctx, stored.SessionID)
	}

	issued, err := s.IssueRefreshToken(ctx, stored.SessionID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.RotateRefreshToken] issue replacement")
	}

	return &Rotation{
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
		Session:   session,
	}, nil
}

// RevokeSession sets revoked_at on the session and on every refresh token
// belonging to it. Idempotent.
func (s *Service) RevokeSession(ctx context.Context, sessionID string) error {
	now := s.nowFunc()
	if err := s.store.RevokeSession(ctx, sessionID, now); err != nil {
		return errors.Wrap(err, "[Service.RevokeSession] store.RevokeSession")
	}
	if err := s.store.RevokeAllForSession(ctx, sessionID, now); err != nil {
		return errors.Wrap(err, "[Service.RevokeSession] store.RevokeAllForSession")
	}
	return nil
}

func (s *Service) reuseDetected(ctx context.Context, sessionID string) error {
	log.Warn().
		Str("session_id", sessionID).
		Msg("refresh token reuse detected, revoking session chain")

	if err := s.RevokeSession(ctx, sessionID); err != nil {
		log.Error().Err(err).
			Str("session_id", sessionID).
			Msg("failed to revoke session after reuse detection")
	}
	return ErrTokenReuseDetected
}

// HashToken returns the SHA-256 hash of a raw refresh token, hex-encoded.
// Only the hash is ever persisted.
func HashToken(rawToken string) string {
	h := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(h[:])
}
