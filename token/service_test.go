package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/nexahq/nexa-auth/sessions"
	fakesessionstore "github.com/nexahq/nexa-auth/sessions/repofakes"
	"github.com/nexahq/nexa-auth/token"
	"github.com/stretchr/testify/require"
)

const (
	signingSecret = "test-signing-secret"
	testUserID    = "user-1"
	testUserEmail = "john.doe@example.com"
	testSessionID = "session-1"
)

// tokenFixture holds the service under test with a controllable clock.
type tokenFixture struct {
	store   *fakesessionstore.FakeSessionStore
	service *token.Service
	now     time.Time
}

func setupTokenFixture(t *testing.T) *tokenFixture {
	t.Helper()

	f := &tokenFixture{
		store: fakesessionstore.NewFakeSessionStore(),
		now:   time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
	}

	signer, err := token.NewHMACSigner(signingSecret)
	require.NoError(t, err)

	f.service, err = token.NewService(f.store, signer,
		token.WithNowFunc(func() time.Time { return f.now }))
	require.NoError(t, err)

	return f
}

func (f *tokenFixture) createSession(t *testing.T) {
	t.Helper()
	err := f.store.CreateSession(context.Background(), &sessions.Session{
		ID:        testSessionID,
		UserID:    testUserID,
		CreatedAt: f.now,
	})
	require.NoError(t, err)
}

func TestNewHMACSignerRequiresSecret(t *testing.T) {
	_, err := token.NewHMACSigner("")
	require.ErrorIs(t, err, token.ErrNoSigningSecret)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	f := setupTokenFixture(t)

	signed, err := f.service.SignAccessToken(testUserID, testUserEmail)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := f.service.VerifyAccessToken(signed)
	require.NoError(t, err)
	require.Equal(t, testUserID, claims.UserID)
	require.Equal(t, testUserEmail, claims.Email)
	require.Equal(t, f.now.Unix(), claims.IssuedAt.Unix())
	require.Equal(t, f.now.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestVerifyAccessTokenRejectsGarbage(t *testing.T) {
	f := setupTokenFixture(t)

	_, err := f.service.VerifyAccessToken("not-a-token")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestVerifyAccessTokenRejectsWrongKey(t *testing.T) {
	f := setupTokenFixture(t)

	otherSigner, err := token.NewHMACSigner("a-different-secret")
	require.NoError(t, err)
	otherService, err := token.NewService(f.store, otherSigner)
	require.NoError(t, err)

	signed, err := otherService.SignAccessToken(testUserID, testUserEmail)
	require.NoError(t, err)

	_, err = f.service.VerifyAccessToken(signed)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestAccessTokenExpiryBoundary(t *testing.T) {
	f := setupTokenFixture(t)
	issuedAt := f.now

	signed, err := f.service.SignAccessToken(testUserID, testUserEmail)
	require.NoError(t, err)

	f.now = issuedAt.Add(14*time.Minute + 59*time.Second)
	_, err = f.service.VerifyAccessToken(signed)
	require.NoError(t, err)

	f.now = issuedAt.Add(15*time.Minute + 1*time.Second)
	_, err = f.service.VerifyAccessToken(signed)
	require.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestIssueRefreshTokenStoresOnlyHash(t *testing.T) {
	f := setupTokenFixture(t)
	f.createSession(t)
	ctx := context.Background()

	issued, err := f.service.IssueRefreshToken(ctx, testSessionID)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.Equal(t, f.now.Add(30*24*time.Hour), issued.ExpiresAt)

	// Lookup works by hash, never by the raw value.
	stored, err := f.store.FindRefreshTokenByHash(ctx, token.HashToken(issued.Token))
	require.NoError(t, err)
	require.Equal(t, testSessionID, stored.SessionID)
	require.NotEqual(t, issued.Token, stored.TokenHash)

	_, err = f.store.FindRefreshTokenByHash(ctx, issued.Token)
	require.ErrorIs(t, err, sessions.ErrTokenNotFound)
}

func TestRotationInvalidatesPredecessor(t *testing.T) {
	f := setupTokenFixture(t)
	f.createSession(t)
	ctx := context.Background()

	first, err := f.service.IssueRefreshToken(ctx, testSessionID)
	require.NoError(t, err)

	rotation, err := f.service.RotateRefreshToken(ctx, first.Token)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, rotation.Token)
	require.Equal(t, testSessionID, rotation.Session.ID)

	// Presenting the rotated token again is a reuse event.
	_, err = f.service.RotateRefreshToken(ctx, first.Token)
	require.ErrorIs(t, err, token.ErrTokenReuseDetected)

	// The whole chain is revoked: the replacement is dead too.
	session, err := f.store.GetSession(ctx, testSessionID)
	require.NoError(t, err)
	require.True(t, session.Revoked())

	_, err = f.service.RotateRefreshToken(ctx, rotation.Token)
	require.ErrorIs(t, err, token.ErrTokenReuseDetected)
}

func TestSingleLiveTokenPerSession(t *testing.T) {
	f := setupTokenFixture(t)
	f.createSession(t)
	ctx := context.Background()

	issued, err := f.service.IssueRefreshToken(ctx, testSessionID)
	require.NoError(t, err)

	current := issued.Token
	for i := 0; i < 5; i++ {
		rotation, err := f.service.RotateRefreshToken(ctx, current)
		require.NoError(t, err)
		current = rotation.Token
		require.Equal(t, 1, f.store.LiveTokenCount(testSessionID))
	}
}

func TestRotateUnknownTokenFails(t *testing.T) {
	f := setupTokenFixture(t)

	_, err := f.service.RotateRefreshToken(context.Background(), "never-issued")
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestRotateExpiredTokenFails(t *testing.T) {
	f := setupTokenFixture(t)
	f.createSession(t)
	ctx := context.Background()

	issued, err := f.service.IssueRefreshToken(ctx, testSessionID)
	require.NoError(t, err)

	f.now = f.now.Add(30*24*time.Hour + time.Second)
	_, err = f.service.RotateRefreshToken(ctx, issued.Token)
	require.ErrorIs(t, err, token.ErrTokenExpired)
}

func TestSessionRevocationCascades(t *testing.T) {
	f := setupTokenFixture(t)
	f.createSession(t)
	ctx := context.Background()

	issued, err := f.service.IssueRefreshToken(ctx, testSessionID)
	require.NoError(t, err)

	require.NoError(t, f.service.RevokeSession(ctx, testSessionID))

	_, err = f.service.RotateRefreshToken(ctx, issued.Token)
	require.ErrorIs(t, err, token.ErrTokenReuseDetected)
	require.Equal(t, 0, f.store.LiveTokenCount(testSessionID))
}

func TestRevokeSessionIsIdempotent(t *testing.T) {
	f := setupTokenFixture(t)
	f.createSession(t)
	ctx := context.Background()

	_, err := f.service.IssueRefreshToken(ctx, testSessionID)
	require.NoError(t, err)

	require.NoError(t, f.service.RevokeSession(ctx, testSessionID))
	firstRevokedAt := mustGetSession(t, f, ctx).RevokedAt

	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.service.RevokeSession(ctx, testSessionID))
	require.Equal(t, firstRevokedAt, mustGetSession(t, f, ctx).RevokedAt)
}

func mustGetSession(t *testing.T, f *tokenFixture, ctx context.Context) *sessions.Session {
	t.Helper()
	session, err := f.store.GetSession(ctx, testSessionID)
	require.NoError(t, err)
	return session
}
