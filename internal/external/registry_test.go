package external

import (
	"io"
	"log/slog"
	"testing"

	"tubepost/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewClientRegistry_CheckoutModes(t *testing.T) {
	tests := []struct {
		name string
		env  string
		key  string
		want string
	}{
		{"stripe configured", "prod", "sk_live_x", "*external.StripeClient"},
		{"local without key", "local", "", "*external.StubCheckoutService"},
		{"prod without key", "prod", "", "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Environment: tt.env}
			cfg.Billing.StripeSecretKey = config.SecretString(tt.key)
			cfg.YouTube.ScrapeBaseURL = "https://www.youtube.com"

			reg := NewClientRegistry(cfg, testLogger())
			if reg.YouTube == nil || reg.OAuth == nil || reg.Web == nil || reg.StripeVerifier == nil {
				t.Fatalf("registry has nil clients: %+v", reg)
			}
			got := "<nil>"
			switch reg.Checkout.(type) {
			case *StripeClient:
				got = "*external.StripeClient"
			case *StubCheckoutService:
				got = "*external.StubCheckoutService"
			}
			if got != tt.want {
				t.Errorf("Checkout = %s, want %s", got, tt.want)
			}
		})
	}
}
