package billing

import (
	"context"
	"log/slog"

	"tubepost/internal/external"
	"tubepost/internal/types"
)

// PriceStore reads and writes the Pro price.
type PriceStore interface {
	GetPriceMinor(ctx context.Context, fallback int64) (int64, error)
	SetPriceMinor(ctx context.Context, minor int64) error
}

// CheckoutConfig configures Checkout.
type CheckoutConfig struct {
	Currency          string
	DefaultPriceMinor int64
	SuccessURL        string
	CancelURL         string
}

// Checkout starts hosted payment sessions for the Pro upgrade.
type Checkout struct {
	prices  PriceStore
	service external.CheckoutService
	cfg     CheckoutConfig
	logger  *slog.Logger
}

// NewCheckout creates a Checkout. A nil service makes Start answer
// internal_billing_not_configured.
func NewCheckout(prices PriceStore, service external.CheckoutService, cfg CheckoutConfig, logger *slog.Logger) *Checkout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checkout{prices: prices, service: service, cfg: cfg, logger: logger}
}

// CurrentPrice returns the configured Pro price in minor units.
func (c *Checkout) CurrentPrice(ctx context.Context) (int64, error) {
	return c.prices.GetPriceMinor(ctx, c.cfg.DefaultPriceMinor)
}

// SetPrice stores a new Pro price in minor units.
func (c *Checkout) SetPrice(ctx context.Context, minor int64) error {
	if minor < 0 {
		return types.NewAppError(types.ErrCodeValidationInvalidPrice, "price must not be negative", nil)
	}
	return c.prices.SetPriceMinor(ctx, minor)
}

// Start creates a checkout session for actor and returns its URL.
func (c *Checkout) Start(ctx context.Context, actor types.Actor) (string, error) {
	if c.service == nil {
		c.logger.ErrorContext(ctx, "checkout requested but payment provider is not configured", "severity", "critical")
		return "", types.NewAppError(types.ErrCodeInternalBillingNotConfig, "Payments are not configured", nil)
	}
	price, err := c.CurrentPrice(ctx)
	if err != nil {
		return "", err
	}
	url, sessionID, err := c.service.CreateCheckoutSession(ctx, external.CheckoutRequest{
		UserID:      actor.ID,
		Email:       actor.Email,
		AmountMinor: price,
		Currency:    c.cfg.Currency,
		ProductName: "TubePost Pro",
		SuccessURL:  c.cfg.SuccessURL,
		CancelURL:   c.cfg.CancelURL,
	})
	if err != nil {
		return "", err
	}
	c.logger.InfoContext(ctx, "checkout started", "user_id", actor.ID, "session_id", sessionID, "amount_minor", price)
	return url, nil
}
