package external

import (
	"context"
	"net/url"

	"golang.org/x/oauth2"
)

// CheckoutService abstracts the payment provider's hosted checkout.
type CheckoutService interface {
	// CreateCheckoutSession returns the hosted payment page URL. The user id
	// is attached for webhook correlation.
	CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (checkoutURL string, sessionID string, err error)
}

// WebhookVerifier abstracts Stripe webhook signature checking.
type WebhookVerifier interface {
	Verify(payload []byte, header string, secret string) error
}

// OAuthFlow is the provider side of the connect flow.
type OAuthFlow interface {
	Config(client OAuthClientConfig) *oauth2.Config
	AuthCodeURL(cfg *oauth2.Config, state string) string
	Exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error)
}

// PageFetcher fetches public YouTube pages.
type PageFetcher interface {
	Fetch(ctx context.Context, path string, query url.Values) ([]byte, error)
}

var (
	_ CheckoutService = (*StripeClient)(nil)
	_ WebhookVerifier = (*StripeVerifier)(nil)
	_ OAuthFlow       = (*GoogleOAuth)(nil)
	_ PageFetcher     = (*WebClient)(nil)
)
