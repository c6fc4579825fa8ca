package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCVerifier validates ID tokens from the configured identity provider
// for the OAuth sign-in path. The provider itself (Google by default) is
// an external collaborator; we only verify what it signed.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// OAuthIdentity is what the storefront needs from a verified ID token.
type OAuthIdentity struct {
	Subject  string
	Email    string
	FullName string
}

func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	cfg := &oidc.Config{ClientID: clientID}
	if clientID == "" {
		cfg.SkipClientIDCheck = true
	}

	return &OIDCVerifier{verifier: provider.Verifier(cfg)}, nil
}

// Verify checks the raw ID token and extracts the identity claims.
func (v *OIDCVerifier) Verify(ctx context.Context, rawIDToken string) (*OAuthIdentity, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("invalid id token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("id token has no email claim")
	}

	return &OAuthIdentity{
		Subject:  idToken.Subject,
		Email:    claims.Email,
		FullName: claims.Name,
	}, nil
}
