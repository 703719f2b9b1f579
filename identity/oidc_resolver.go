package identity

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
)

var _ Resolver = (*OIDCResolver)(nil)

// ExternalIdentity is the validated claim set of a third-party ID token.
type ExternalIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
}

// OIDCResolver accepts ID tokens minted by an external identity system.
// Used as a middleware fallback during the migration window and by the
// session bridge endpoint.
type OIDCResolver struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCResolver discovers the issuer's configuration and builds a verifier
// for tokens with the given audience.
func NewOIDCResolver(ctx context.Context, issuer, audience string) (*OIDCResolver, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[NewOIDCResolver] provider discovery")
	}
	return &OIDCResolver{
		verifier: provider.Verifier(&oidc.Config{ClientID: audience}),
	}, nil
}

// NewOIDCResolverWithVerifier builds a resolver around an existing verifier
// (used in tests with a static key set).
func NewOIDCResolverWithVerifier(verifier *oidc.IDTokenVerifier) *OIDCResolver {
	return &OIDCResolver{verifier: verifier}
}

// VerifyExternal verifies the raw ID token and extracts the subject and
// email claims.
func (or *OIDCResolver) VerifyExternal(ctx context.Context, rawToken string) (*ExternalIdentity, error) {
	idToken, err := or.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, errors.Wrap(err, "[OIDCResolver.VerifyExternal] verify")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrap(err, "[OIDCResolver.VerifyExternal] extract claims")
	}

	return &ExternalIdentity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
	}, nil
}

func (or *OIDCResolver) Resolve(ctx context.Context, rawToken string) (*Principal, error) {
	external, err := or.VerifyExternal(ctx, rawToken)
	if err != nil {
		return nil, ErrNotMine
	}
	return &Principal{ID: external.Subject, Email: external.Email}, nil
}
