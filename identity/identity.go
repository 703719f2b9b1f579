// Package identity resolves presented credentials into request principals.
// Resolvers are tried in a fixed order; each returns either a principal or
// ErrNotMine to pass the credential along the chain.
package identity

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotMine is returned by a resolver that does not recognise the
// credential, letting the chain fall through to the next strategy.
var ErrNotMine = errors.New("credential not recognised by this resolver")

// ErrUnauthorized is the generic rejection: deliberately vague so callers
// cannot learn which stage failed.
var ErrUnauthorized = errors.New("unauthorized")

// Principal is the resolved identity attached to a request.
type Principal struct {
	ID    string
	Email string
}

// Resolver turns a raw bearer credential into a principal.
type Resolver interface {
	Resolve(ctx context.Context, rawToken string) (*Principal, error)
}

// Chain tries each resolver in order. The first definitive answer wins;
// ErrNotMine falls through. If every resolver declines, the credential is
// rejected.
type Chain []Resolver

func (c Chain) Resolve(ctx context.Context, rawToken string) (*Principal, error) {
	for _, resolver := range c {
		principal, err := resolver.Resolve(ctx, rawToken)
		if errors.Is(err, ErrNotMine) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return principal, nil
	}
	return nil, ErrUnauthorized
}

var _ Resolver = (Chain)(nil)
