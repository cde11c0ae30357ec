package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tubepost/internal/core"
	"tubepost/internal/types"
)

// CheckoutStarter creates a hosted checkout for the caller.
type CheckoutStarter interface {
	Start(ctx context.Context, actor types.Actor) (string, error)
}

// CheckoutHandler serves POST /create_checkout.
type CheckoutHandler struct {
	checkout CheckoutStarter
}

// NewCheckoutHandler creates a CheckoutHandler.
func NewCheckoutHandler(checkout CheckoutStarter) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// RegisterRoutes mounts the checkout route.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Post("/create_checkout", h.Create)
}

// Create handles POST /create_checkout and returns the payment page URL.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	url, err := h.checkout.Start(r.Context(), actor)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Success(w, r, map[string]any{"url": url})
}
