package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tubepost/internal/core"
	"tubepost/internal/types"
)

// Sender performs a ledger-gated send action.
type Sender interface {
	Send(ctx context.Context, userID, videoID, message string, kind types.MessageKind) (*types.SendResult, error)
}

// SendRequest is the body of POST /send, as JSON or a form.
type SendRequest struct {
	VideoID string `json:"video_id"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// SendHandler serves POST /send.
type SendHandler struct {
	sender Sender
}

// NewSendHandler creates a SendHandler.
func NewSendHandler(sender Sender) *SendHandler {
	return &SendHandler{sender: sender}
}

// RegisterRoutes mounts the send route.
func (h *SendHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send", h.Send)
}

// Send handles POST /send. Any type other than "live" posts a comment.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var req SendRequest
	if err := core.DecodeBody(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	kind := types.KindComment
	if types.MessageKind(req.Type) == types.KindLive {
		kind = types.KindLive
	}

	res, err := h.sender.Send(r.Context(), actor.ID, req.VideoID, req.Message, kind)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Success(w, r, map[string]any{
		"message": res.Message,
		"type":    res.Kind,
		"id":      res.ID,
	})
}
