package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"
)

// Identity is what the identity provider vouches for after a login.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// IdentityProvider runs the authorization code flow.
type IdentityProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// GoogleProvider is an OpenID Connect relying party for Google accounts.
type GoogleProvider struct {
	relyingParty rp.RelyingParty
}

// NewGoogleProvider performs discovery against issuer, so it needs network
// access at startup.
func NewGoogleProvider(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx, issuer, clientID, clientSecret, redirectURL,
		[]string{oidc.ScopeOpenID, oidc.ScopeEmail, oidc.ScopeProfile},
		rp.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC relying party: %w", err)
	}
	return &GoogleProvider{relyingParty: relyingParty}, nil
}

func (g *GoogleProvider) AuthURL(state string) string {
	return rp.AuthURL(state, g.relyingParty)
}

func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, g.relyingParty)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	if tokens.IDTokenClaims == nil || tokens.IDTokenClaims.Subject == "" {
		return nil, fmt.Errorf("ID token is missing a subject")
	}

	claims := tokens.IDTokenClaims
	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}
