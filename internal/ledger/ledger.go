// Package ledger enforces the daily quota and credit balance of each user.
//
// Authorize is evaluated before a platform call and Commit records the
// action after the platform reported success. The two are not wrapped in a
// lock: concurrent requests of the same user may both pass Authorize, and
// the commit clamps credits at zero.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tubepost/internal/billing"
	"tubepost/internal/types"
)

// Store is the persistence the ledger needs.
type Store interface {
	Get(ctx context.Context, id string) (*types.User, error)
	ResetDay(ctx context.Context, id, today string) error
	CommitUsage(ctx context.Context, id, today string) (dailyCount, credits int, err error)
}

// Outcome is the result of an authorization.
type Outcome int

const (
	Allow Outcome = iota
	DailyLimitExceeded
	CreditsExhausted
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case DailyLimitExceeded:
		return "daily_limit_exceeded"
	case CreditsExhausted:
		return "credits_exhausted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Decision carries the outcome with the counters it was based on.
type Decision struct {
	Outcome    Outcome
	DailyCount int
	DailyLimit int
	Credits    int
}

// Allowed reports whether the action may proceed.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Err returns the AppError for a rejected decision, or nil.
func (d Decision) Err() error {
	switch d.Outcome {
	case DailyLimitExceeded:
		return types.NewAppErrorWithDetails(types.ErrCodeLimitDailyExceeded,
			fmt.Sprintf("Daily limit of %d actions reached", d.DailyLimit), nil,
			map[string]any{"daily_count": d.DailyCount, "daily_limit": d.DailyLimit})
	case CreditsExhausted:
		return types.NewAppErrorWithDetails(types.ErrCodePaymentCreditsExhausted,
			"No credits left. Upgrade to Pro to keep posting", nil,
			map[string]any{"credits": d.Credits})
	default:
		return nil
	}
}

// Ledger evaluates and records usage.
type Ledger struct {
	store  Store
	plans  billing.PlanRegistry
	loc    *time.Location
	logger *slog.Logger
}

// New creates a Ledger whose calendar day is evaluated in loc (UTC when nil).
func New(store Store, plans billing.PlanRegistry, loc *time.Location, logger *slog.Logger) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	if plans == nil {
		plans = billing.NewStaticPlanRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, plans: plans, loc: loc, logger: logger}
}

// Today returns the calendar date of now in the ledger's zone.
func (l *Ledger) Today(now time.Time) string {
	return now.In(l.loc).Format(types.DateLayout)
}

// Limits returns the limits of plan.
func (l *Ledger) Limits(plan types.Plan) billing.PlanLimits {
	return l.plans.GetLimits(plan)
}

// Authorize loads the user's record, persists a day rollover when the
// stored date is not today, and decides whether one more action is allowed.
// The daily limit is checked before credits.
func (l *Ledger) Authorize(ctx context.Context, userID string, now time.Time) (Decision, *types.User, error) {
	user, err := l.store.Get(ctx, userID)
	switch {
	case types.HasCode(err, types.ErrCodeNotFoundUser):
		user = types.NewDefaultUser(userID)
	case err != nil:
		return Decision{}, nil, err
	}

	today := l.Today(now)
	if user.LastUsageDate != today {
		if err := l.store.ResetDay(ctx, userID, today); err != nil {
			return Decision{}, nil, err
		}
		user.DailyCount = 0
		user.LastUsageDate = today
	}

	limits := l.plans.GetLimits(user.Plan)
	d := Decision{
		Outcome:    Allow,
		DailyCount: user.DailyCount,
		DailyLimit: limits.DailyLimit,
		Credits:    user.Credits,
	}
	switch {
	case user.DailyCount >= limits.DailyLimit:
		d.Outcome = DailyLimitExceeded
	case limits.ConsumesCredits && user.Credits <= 0:
		d.Outcome = CreditsExhausted
	}
	if !d.Allowed() {
		l.logger.InfoContext(ctx, "action rejected by ledger",
			"user_id", userID, "outcome", d.Outcome.String(),
			"daily_count", d.DailyCount, "daily_limit", d.DailyLimit, "credits", d.Credits)
	}
	return d, user, nil
}

// Commit records one successful action for today.
func (l *Ledger) Commit(ctx context.Context, userID, today string) (dailyCount, credits int, err error) {
	dailyCount, credits, err = l.store.CommitUsage(ctx, userID, today)
	if err != nil {
		return 0, 0, err
	}
	l.logger.DebugContext(ctx, "usage committed", "user_id", userID, "daily_count", dailyCount, "credits", credits)
	return dailyCount, credits, nil
}
