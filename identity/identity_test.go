package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/nexahq/nexa-auth/identity"
	fakesessionstore "github.com/nexahq/nexa-auth/sessions/repofakes"
	"github.com/nexahq/nexa-auth/token"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	principal *identity.Principal
	err       error
	calls     int
}

func (sr *stubResolver) Resolve(_ context.Context, _ string) (*identity.Principal, error) {
	sr.calls++
	if sr.err != nil {
		return nil, sr.err
	}
	return sr.principal, nil
}

func TestChainFirstDefinitiveAnswerWins(t *testing.T) {
	first := &stubResolver{principal: &identity.Principal{ID: "user-1"}}
	second := &stubResolver{principal: &identity.Principal{ID: "user-2"}}

	principal, err := identity.Chain{first, second}.Resolve(context.Background(), "raw")
	require.NoError(t, err)
	require.Equal(t, "user-1", principal.ID)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 0, second.calls)
}

func TestChainFallsThroughOnNotMine(t *testing.T) {
	first := &stubResolver{err: identity.ErrNotMine}
	second := &stubResolver{principal: &identity.Principal{ID: "user-2"}}

	principal, err := identity.Chain{first, second}.Resolve(context.Background(), "raw")
	require.NoError(t, err)
	require.Equal(t, "user-2", principal.ID)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
}

func TestChainRejectsWhenNobodyClaims(t *testing.T) {
	first := &stubResolver{err: identity.ErrNotMine}
	second := &stubResolver{err: identity.ErrNotMine}

	_, err := identity.Chain{first, second}.Resolve(context.Background(), "raw")
	require.ErrorIs(t, err, identity.ErrUnauthorized)
}

func TestEmptyChainRejects(t *testing.T) {
	_, err := identity.Chain{}.Resolve(context.Background(), "raw")
	require.ErrorIs(t, err, identity.ErrUnauthorized)
}

func TestTokenResolverAcceptsOwnTokens(t *testing.T) {
	service := newTokenService(t)

	signed, err := service.SignAccessToken("user-1", "john.doe@example.com")
	require.NoError(t, err)

	principal, err := identity.NewTokenResolver(service).Resolve(context.Background(), signed)
	require.NoError(t, err)
	require.Equal(t, "user-1", principal.ID)
	require.Equal(t, "john.doe@example.com", principal.Email)
}

func TestTokenResolverDeclinesForeignTokens(t *testing.T) {
	service := newTokenService(t)

	_, err := identity.NewTokenResolver(service).Resolve(context.Background(), "someone-elses-token")
	require.ErrorIs(t, err, identity.ErrNotMine)
}

func newTokenService(t *testing.T) *token.Service {
	t.Helper()

	signer, err := token.NewHMACSigner("test-signing-secret")
	require.NoError(t, err)

	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	service, err := token.NewService(fakesessionstore.NewFakeSessionStore(), signer,
		token.WithNowFunc(func() time.Time { return now }))
	require.NoError(t, err)
	return service
}
