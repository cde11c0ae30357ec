package external

import (
	"context"
	"errors"
	"net/http"

	"tubepost/internal/types"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthClientConfig is one Google OAuth client identity. Empty AuthURL and
// TokenURL fall back to Google's endpoints.
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
}

// GoogleOAuth drives the three-legged authorization code flow for YouTube
// channel access. Token traffic goes through its BaseClient.
type GoogleOAuth struct {
	base        *BaseClient
	redirectURL string
}

// NewGoogleOAuth creates a GoogleOAuth with its own circuit breaker.
func NewGoogleOAuth(httpClient *http.Client, redirectURL string) *GoogleOAuth {
	return NewGoogleOAuthWithBase(NewBaseClient(httpClient, "google-oauth", "TubePost/1.0"), redirectURL)
}

// NewGoogleOAuthWithBase creates a GoogleOAuth around an existing BaseClient.
func NewGoogleOAuthWithBase(base *BaseClient, redirectURL string) *GoogleOAuth {
	return &GoogleOAuth{base: base, redirectURL: redirectURL}
}

// Config builds the oauth2 configuration for a client identity.
func (g *GoogleOAuth) Config(client OAuthClientConfig) *oauth2.Config {
	endpoint := google.Endpoint
	if client.AuthURL != "" {
		endpoint.AuthURL = client.AuthURL
	}
	if client.TokenURL != "" {
		endpoint.TokenURL = client.TokenURL
	}
	return &oauth2.Config{
		ClientID:     client.ClientID,
		ClientSecret: client.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  g.redirectURL,
		Scopes:       []string{YouTubeScope},
	}
}

// AuthCodeURL returns the consent page URL. Offline access with forced
// consent guarantees a refresh token on every connect.
func (g *GoogleOAuth) AuthCodeURL(cfg *oauth2.Config, state string) string {
	return cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
}

// Exchange trades an authorization code for tokens. It is attempted once.
func (g *GoogleOAuth) Exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.base.HTTPClient())
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		details := map[string]any{}
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			details["reason"] = retrieveErr.ErrorCode
		}
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamOAuthExchange,
			"failed to exchange authorization code", err, details)
	}
	return tok, nil
}

// TokenFromCredential rebuilds an oauth2.Token from a stored credential.
func TokenFromCredential(c *types.Credential) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken.Unmask(),
		RefreshToken: c.RefreshToken.Unmask(),
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// CredentialFromToken builds the credential bundle persisted for a user.
func CredentialFromToken(tok *oauth2.Token, cfg *oauth2.Config) *types.Credential {
	return &types.Credential{
		AccessToken:  types.SecretString(tok.AccessToken),
		RefreshToken: types.SecretString(tok.RefreshToken),
		TokenType:    tok.Type(),
		Expiry:       tok.Expiry,
		TokenURL:     cfg.Endpoint.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: types.SecretString(cfg.ClientSecret),
		Scopes:       append([]string(nil), cfg.Scopes...),
	}
}

// ConfigFromCredential rebuilds the oauth2 configuration that issued a stored
// credential, so refreshes use the same client identity.
func (g *GoogleOAuth) ConfigFromCredential(c *types.Credential) *oauth2.Config {
	return g.Config(OAuthClientConfig{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret.Unmask(),
		TokenURL:     c.TokenURL,
	})
}
