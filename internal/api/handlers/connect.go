package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"tubepost/internal/core"
	"tubepost/internal/types"
)

// ConnectService runs the OAuth connect flow.
type ConnectService interface {
	BeginConnect(ctx context.Context, userID string) (redirectURL, flowID string, err error)
	CompleteConnect(ctx context.Context, flowID string, query url.Values) (*types.ConnectResult, error)
	Disconnect(ctx context.Context, userID string) error
}

// FlowCookie carries the flow id between begin and callback.
type FlowCookie interface {
	Set(w http.ResponseWriter, flowID string) error
	Read(r *http.Request) string
	Clear(w http.ResponseWriter)
}

var callbackErrorPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>TubePost - connection failed</title></head>
<body>
<h1>Could not connect your YouTube channel</h1>
<p>{{.Message}}</p>
<p><a href="{{.Dashboard}}">Back to the dashboard</a></p>
</body>
</html>
`))

// ConnectHandler serves the browser side of the connect flow.
type ConnectHandler struct {
	connector    ConnectService
	cookie       FlowCookie
	dashboardURL string
	logger       *slog.Logger
}

// NewConnectHandler creates a ConnectHandler that returns the browser to
// dashboardURL after a successful callback.
func NewConnectHandler(connector ConnectService, cookie FlowCookie, dashboardURL string, logger *slog.Logger) *ConnectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectHandler{connector: connector, cookie: cookie, dashboardURL: dashboardURL, logger: logger}
}

// RegisterRoutes mounts the connect routes.
func (h *ConnectHandler) RegisterRoutes(r chi.Router) {
	r.Get("/connect", h.Begin)
	r.Get("/connect_youtube", h.Begin)
	r.Get("/oauth-callback", h.Callback)
	r.Post("/disconnect_youtube", h.Disconnect)
}

// Begin handles GET /connect. The ID token may arrive as ?token= because
// this route is reached by navigation.
func (h *ConnectHandler) Begin(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	redirectURL, flowID, err := h.connector.BeginConnect(r.Context(), actor.ID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.cookie.Set(w, flowID); err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to start connect flow", err))
		return
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// Callback handles GET /oauth-callback. Failures render a small HTML page
// since the caller is a browser, not the dashboard client.
func (h *ConnectHandler) Callback(w http.ResponseWriter, r *http.Request) {
	flowID := h.cookie.Read(r)
	h.cookie.Clear(w)

	result, err := h.connector.CompleteConnect(r.Context(), flowID, r.URL.Query())
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "connect callback completed", "user_id", result.UserID)
	http.Redirect(w, r, h.dashboardTarget("connected"), http.StatusFound)
}

// Disconnect handles POST /disconnect_youtube.
func (h *ConnectHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.connector.Disconnect(r.Context(), actor.ID); err != nil {
		core.Error(w, r, err)
		return
	}
	core.Success(w, r, map[string]any{"message": "YouTube channel disconnected"})
}

func (h *ConnectHandler) dashboardTarget(state string) string {
	u, err := url.Parse(h.dashboardURL)
	if err != nil {
		return h.dashboardURL
	}
	q := u.Query()
	q.Set("youtube", state)
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *ConnectHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	body := core.ErrorBody(r, err)
	status := core.ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "connect callback failed", "code", body.Code, "error", err)
	} else {
		h.logger.WarnContext(r.Context(), "connect callback rejected", "code", body.Code)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackErrorPage.Execute(w, struct {
		Message   string
		Dashboard string
	}{body.Message, h.dashboardURL})
}
