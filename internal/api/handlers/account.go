package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"tubepost/internal/billing"
	"tubepost/internal/core"
	"tubepost/internal/types"
)

// lowCreditsThreshold is the credit balance at which free users are nudged
// to upgrade.
const lowCreditsThreshold = 3

// AccountStore reads user records and writes billing profiles.
type AccountStore interface {
	Get(ctx context.Context, id string) (*types.User, error)
	UpsertProfile(ctx context.Context, id string, p types.Profile) error
}

// UsageCalendar reports the current usage day and plan limits.
type UsageCalendar interface {
	Today(now time.Time) string
	Limits(plan types.Plan) billing.PlanLimits
}

// ProfileRequest is the body of POST /profile.
type ProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,max=200"`
	CPF   string `json:"cpf" validate:"omitempty,max=20"`
	Phone string `json:"phone" validate:"omitempty,max=30"`
	Email string `json:"email" validate:"omitempty,email"`
}

// AccountHandler serves the dashboard's account views.
type AccountHandler struct {
	store     AccountStore
	calendar  UsageCalendar
	clock     types.Clock
	validator *core.Validator
	logger    *slog.Logger
}

// NewAccountHandler creates an AccountHandler.
func NewAccountHandler(store AccountStore, calendar UsageCalendar, clock types.Clock, v *core.Validator, logger *slog.Logger) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &AccountHandler{store: store, calendar: calendar, clock: clock, validator: v, logger: logger}
}

// RegisterRoutes mounts the account routes.
func (h *AccountHandler) RegisterRoutes(r chi.Router) {
	r.Get("/user_status", h.Status)
	r.Post("/profile", h.UpdateProfile)
}

// Status handles GET /user_status. A user without a record sees the
// defaults the ledger would create; a record last used on a previous day
// shows a zero daily count.
func (h *AccountHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	user, err := h.store.Get(r.Context(), actor.ID)
	switch {
	case types.HasCode(err, types.ErrCodeNotFoundUser):
		user = types.NewDefaultUser(actor.ID)
	case err != nil:
		core.Error(w, r, err)
		return
	}

	dailyCount := user.DailyCount
	if user.LastUsageDate != h.calendar.Today(h.clock.Now()) {
		dailyCount = 0
	}
	limits := h.calendar.Limits(user.Plan)

	core.Success(w, r, map[string]any{
		"uid":               user.ID,
		"plan":              user.Plan,
		"credits":           user.Credits,
		"daily_count":       dailyCount,
		"daily_limit":       limits.DailyLimit,
		"youtube_connected": user.YouTubeConnected,
		"youtube_channel":   user.YouTubeChannel,
		"usage_history":     user.UsageHistory,
		"low_credits":       user.Plan == types.PlanFree && user.Credits <= lowCreditsThreshold,
		"profile":           user.Profile,
	})
}

// UpdateProfile handles POST /profile. Empty fields keep their stored value.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req ProfileRequest
	if err := core.DecodeBody(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	email := req.Email
	if email == "" {
		email = actor.Email
	}
	profile := types.Profile{Email: email, Name: req.Name, CPF: req.CPF, Phone: req.Phone}
	if err := h.store.UpsertProfile(r.Context(), actor.ID, profile); err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "profile updated", "user_id", actor.ID)
	core.Success(w, r, map[string]any{"message": "Profile saved"})
}
