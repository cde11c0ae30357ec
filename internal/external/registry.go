package external

import (
	"log/slog"
	"net/http"
	"time"

	"tubepost/internal/config"
)

// ClientRegistry holds every outbound client. It is the single point of
// access for the rest of the application to third-party services.
type ClientRegistry struct {
	YouTube *YouTubeClient
	OAuth   *GoogleOAuth
	Web     *WebClient

	// Checkout is nil when no Stripe key is configured outside local mode.
	Checkout       CheckoutService
	StripeVerifier WebhookVerifier
}

// NewClientRegistry initializes all external clients with per-provider
// timeouts. In local mode without a Stripe key, checkout is stubbed.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.YouTube.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	reg := &ClientRegistry{
		YouTube: NewYouTubeClient(&http.Client{Timeout: timeout}, YouTubeClientConfig{
			APIKey: cfg.YouTube.APIKey.Unmask(),
		}),
		OAuth:          NewGoogleOAuth(&http.Client{Timeout: timeout}, cfg.Server.RedirectURI()),
		Web:            NewWebClient(&http.Client{Timeout: timeout}, cfg.YouTube.ScrapeBaseURL, cfg.YouTube.UserAgent),
		StripeVerifier: &StripeVerifier{},
	}

	switch {
	case !cfg.Billing.StripeSecretKey.IsEmpty():
		reg.Checkout = NewStripeClient(&http.Client{Timeout: 20 * time.Second}, StripeClientConfig{
			SecretKey: cfg.Billing.StripeSecretKey.Unmask(),
			BaseURL:   cfg.Billing.StripeBaseURL,
			Logger:    logger.With("client", "stripe"),
		})
	case cfg.Environment == "local":
		logger.Info("STRIPE_SECRET_KEY not set; checkout runs in stub mode")
		reg.Checkout = NewStubCheckoutService(logger.With("mode", "stub"))
	default:
		logger.Warn("STRIPE_SECRET_KEY not set; /create_checkout is disabled")
	}

	return reg
}
