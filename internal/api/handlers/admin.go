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

// adminUserLimit caps the user listing of GET /admin/data.
const adminUserLimit = 1000

// UserLister lists users newest first.
type UserLister interface {
	List(ctx context.Context, limit int) ([]*types.User, error)
}

// PriceService reads and writes the Pro price in minor units.
type PriceService interface {
	CurrentPrice(ctx context.Context) (int64, error)
	SetPrice(ctx context.Context, minor int64) error
}

// PriceRequest is the body of POST /admin/price. The price is a decimal
// string in major units, e.g. "12.90".
type PriceRequest struct {
	Price string `json:"price"`
}

// AdminUserDTO is one row of the admin user table.
type AdminUserDTO struct {
	UID        string     `json:"uid"`
	Email      string     `json:"email"`
	Plan       types.Plan `json:"plan"`
	Credits    int        `json:"credits"`
	DailyCount int        `json:"daily_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// AdminHandler serves the administrator views.
type AdminHandler struct {
	users        UserLister
	prices       PriceService
	requireAdmin func(http.Handler) http.Handler
	logger       *slog.Logger
}

// NewAdminHandler creates an AdminHandler whose routes are wrapped by
// requireAdmin.
func NewAdminHandler(users UserLister, prices PriceService, requireAdmin func(http.Handler) http.Handler, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{users: users, prices: prices, requireAdmin: requireAdmin, logger: logger}
}

// RegisterRoutes mounts the admin routes under /admin and /api/admin.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		for _, prefix := range []string{"/admin", "/api/admin"} {
			r.Get(prefix+"/data", h.Data)
			r.Post(prefix+"/price", h.SetPrice)
		}
	})
}

// Data handles GET /admin/data.
func (h *AdminHandler) Data(w http.ResponseWriter, r *http.Request) {
	price, err := h.prices.CurrentPrice(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	users, err := h.users.List(r.Context(), adminUserLimit)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	rows := make([]AdminUserDTO, 0, len(users))
	for _, u := range users {
		rows = append(rows, AdminUserDTO{
			UID:        u.ID,
			Email:      u.Profile.Email,
			Plan:       u.Plan,
			Credits:    u.Credits,
			DailyCount: u.DailyCount,
			CreatedAt:  u.CreatedAt,
		})
	}
	core.Success(w, r, map[string]any{
		"price": billing.MajorUnits(price),
		"users": rows,
	})
}

// SetPrice handles POST /admin/price.
func (h *AdminHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req PriceRequest
	if err := core.DecodeBody(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	minor, err := billing.ParsePrice(req.Price)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.prices.SetPrice(r.Context(), minor); err != nil {
		core.Error(w, r, err)
		return
	}

	actor, _ := types.GetActor(r.Context())
	h.logger.InfoContext(r.Context(), "subscription price updated", "admin_id", actor.ID, "price_minor", minor)
	core.Success(w, r, map[string]any{"price": billing.MajorUnits(minor), "message": "Price updated"})
}
