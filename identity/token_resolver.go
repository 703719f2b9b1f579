package identity

import (
	"context"

	"github.com/nexahq/nexa-auth/token"
	"github.com/pkg/errors"
)

var _ Resolver = (*TokenResolver)(nil)

// TokenResolver verifies access tokens minted by this service. Verification
// is signature + expiry only - no storage round-trip on the hot path.
type TokenResolver struct {
	tokens *token.Service
}

func NewTokenResolver(tokens *token.Service) *TokenResolver {
	return &TokenResolver{tokens: tokens}
}

func (tr *TokenResolver) Resolve(_ context.Context, rawToken string) (*Principal, error) {
	claims, err := tr.tokens.VerifyAccessToken(rawToken)
	if err != nil {
		// Not one of ours (or expired): let a later strategy try it. The
		// chain rejects if nobody claims it.
		if errors.Is(err, token.ErrInvalidToken) || errors.Is(err, token.ErrTokenExpired) {
			return nil, ErrNotMine
		}
		return nil, err
	}
	return &Principal{ID: claims.UserID, Email: claims.Email}, nil
}
