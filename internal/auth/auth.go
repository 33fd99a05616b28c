// Package auth produces Authorization header values for EWS requests. The
// sync core never touches raw credentials: it holds a [TokenProvider] and
// asks it for a header before each remote call, so OAuth refresh happens
// inside the provider.
package auth

import (
	"context"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider yields a ready-to-send Authorization header value,
// refreshing any underlying token if it is near expiry.
type TokenProvider interface {
	AuthorizationHeader(ctx context.Context) (string, error)
}

// --- Basic -------------------------------------------------------------------

// BasicProvider implements TokenProvider for Basic authentication.
type BasicProvider struct {
	header string
}

// NewBasicProvider precomputes the Basic header for the given credentials.
func NewBasicProvider(username, password string) *BasicProvider {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &BasicProvider{header: "Basic " + creds}
}

// AuthorizationHeader implements [TokenProvider].
func (p *BasicProvider) AuthorizationHeader(context.Context) (string, error) {
	return p.header, nil
}

// --- OAuth2 ------------------------------------------------------------------

// OAuthProvider implements TokenProvider over an oauth2 token source, which
// transparently refreshes the access token with the stored refresh token.
type OAuthProvider struct {
	source oauth2.TokenSource
}

// NewOAuthProvider creates a provider from the flow config and the token
// obtained at account setup. The returned provider caches and reuses the
// token until it expires.
func NewOAuthProvider(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) *OAuthProvider {
	return &OAuthProvider{source: oauth2.ReuseTokenSource(token, cfg.TokenSource(ctx, token))}
}

// NewStaticOAuthProvider wraps an already-valid token without refresh.
// Used in tests and for externally managed tokens.
func NewStaticOAuthProvider(token *oauth2.Token) *OAuthProvider {
	return &OAuthProvider{source: oauth2.StaticTokenSource(token)}
}

// AuthorizationHeader implements [TokenProvider]. The refresh context is the
// one the source was created with; the per-call context only gates callers
// that check it before dialling.
func (p *OAuthProvider) AuthorizationHeader(_ context.Context) (string, error) {
	tok, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("refreshing token: %w", err)
	}
	return tok.Type() + " " + tok.AccessToken, nil
}

// --- PKCE authorization-code flow helpers ------------------------------------

// NewOAuthConfig builds the oauth2 config for an Azure AD v2 app
// registration. Scope "EWS.AccessAsUser.All" plus offline_access gives a
// refreshable EWS token.
func NewOAuthConfig(clientID, tenant, redirectURL string) *oauth2.Config {
	if tenant == "" {
		tenant = "common"
	}
	base := "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0"
	return &oauth2.Config{
		ClientID:    clientID,
		RedirectURL: redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + "/authorize",
			TokenURL: base + "/token",
		},
		Scopes: []string{
			"https://outlook.office365.com/EWS.AccessAsUser.All",
			"offline_access",
		},
	}
}

// NewVerifier returns a fresh PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL returns the browser URL for the PKCE authorization-code flow.
func AuthCodeURL(cfg *oauth2.Config, state, verifier string) string {
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
}

// Exchange redeems the authorization code against the verifier.
func Exchange(ctx context.Context, cfg *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}
