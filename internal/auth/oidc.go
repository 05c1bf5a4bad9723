package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCResolver accepts ID tokens from an external OpenID Connect provider
// as bearer credentials. The user id is the token's subject.
type OIDCResolver struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCResolver discovers the issuer's keys and builds a verifier for
// tokens minted for clientID.
func NewOIDCResolver(ctx context.Context, issuer, clientID string) (*OIDCResolver, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer %s: %w", issuer, err)
	}
	return &OIDCResolver{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewOIDCResolverWithKeySet builds a resolver without discovery.
func NewOIDCResolverWithKeySet(issuer, clientID string, keys oidc.KeySet) *OIDCResolver {
	return &OIDCResolver{verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID})}
}

// Resolve implements Resolver.
func (o *OIDCResolver) Resolve(ctx context.Context, r *http.Request) (string, error) {
	raw, ok := BearerToken(r)
	if !ok {
		return "", ErrNoIdentity
	}
	idToken, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("verify id token: %w", err)
	}
	if idToken.Subject == "" {
		return "", fmt.Errorf("id token has no subject")
	}
	return idToken.Subject, nil
}
