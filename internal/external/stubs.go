package external

import (
	"context"
	"fmt"
	"log/slog"
)

// StubCheckoutService implements CheckoutService by logging calls and
// returning a fake session. Used for local runs without Stripe credentials.
type StubCheckoutService struct {
	logger *slog.Logger
}

// NewStubCheckoutService creates a new StubCheckoutService.
func NewStubCheckoutService(logger *slog.Logger) *StubCheckoutService {
	return &StubCheckoutService{logger: logger}
}

func (s *StubCheckoutService) CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (string, string, error) {
	s.logger.InfoContext(ctx, "stub: CreateCheckoutSession called",
		"user_id", in.UserID,
		"amount_minor", in.AmountMinor,
		"currency", in.Currency,
	)
	return in.SuccessURL, fmt.Sprintf("cs_stub_%s", in.UserID), nil
}
