package token

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
)

// defaultAudience is the audience the provider stamps on tokens of signed-in users.
const defaultAudience = "authenticated"

// Verifier checks access token signatures against the provider's published key set.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier builds a verifier for tokens issued by issuer and signed by a key from jwksURL.
func NewVerifier(ctx context.Context, issuer, jwksURL string) *Verifier {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return &Verifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			ClientID:             defaultAudience,
			SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
		}),
	}
}

// Verify checks signature, issuer, audience and expiry of rawToken and returns its subject.
func (v *Verifier) Verify(ctx context.Context, rawToken string) (string, error) {
	verified, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", fmt.Errorf("[Verifier.Verify] %w: %w", apperrors.ErrInvalidToken, err)
	}
	return verified.Subject, nil
}
