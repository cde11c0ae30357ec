package billing

import (
	"context"
	"log/slog"

	"tubepost/internal/telemetry"
	"tubepost/internal/types"
)

// Upgrade sources recorded in logs and metrics.
const (
	SourcePaymentWebhook = "payment_webhook"
	SourceStripe         = "stripe"
)

// PlanStore persists plan changes.
type PlanStore interface {
	UpgradePlan(ctx context.Context, id string, plan types.Plan, credits int) error
}

// Upgrader moves users to the Pro plan after a confirmed payment.
type Upgrader struct {
	store      PlanStore
	proCredits int
	logger     *slog.Logger
	metrics    telemetry.Recorder
}

// NewUpgrader creates an Upgrader that grants proCredits on upgrade.
func NewUpgrader(store PlanStore, proCredits int, logger *slog.Logger, metrics telemetry.Recorder) *Upgrader {
	if logger == nil {
		logger = slog.Default()
	}
	if proCredits <= 0 {
		proCredits = types.UnlimitedCredits
	}
	return &Upgrader{store: store, proCredits: proCredits, logger: logger, metrics: telemetry.OrNop(metrics)}
}

// UpgradeToPro sets plan=pro and the unlimited credit sentinel. Repeated
// upgrades are idempotent. Unknown users yield not_found_user.
func (u *Upgrader) UpgradeToPro(ctx context.Context, userID, source string) error {
	if userID == "" {
		return types.NewAppError(types.ErrCodeValidationMissingField, "user id is required", nil)
	}
	if err := u.store.UpgradePlan(ctx, userID, types.PlanPro, u.proCredits); err != nil {
		return err
	}
	u.metrics.RecordUpgrade(source)
	u.logger.InfoContext(ctx, "user upgraded to pro", "user_id", userID, "source", source)
	return nil
}
