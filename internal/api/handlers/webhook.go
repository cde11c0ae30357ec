package handlers

// The webhook routes are public; each one authenticates the caller itself,
// with a shared secret or a Stripe signature.

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tubepost/internal/billing"
	"tubepost/internal/core"
	"tubepost/internal/external"
	"tubepost/internal/types"
)

// maxWebhookBodySize bounds webhook payloads (64 KB).
const maxWebhookBodySize = 64 * 1024

// Payment provider events that upgrade a user.
const (
	EventPaymentPaid = "payment.paid"
	EventBillingPaid = "billing.paid"
)

// ProUpgrader grants the Pro plan.
type ProUpgrader interface {
	UpgradeToPro(ctx context.Context, userID, source string) error
}

// paymentEvent is the payment provider's notification. Providers differ in
// whether they name the event "event" or "type".
type paymentEvent struct {
	Event string      `json:"event"`
	Type  string      `json:"type"`
	Data  paymentData `json:"data"`
}

type paymentData struct {
	Metadata struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
	Customer struct {
		Metadata struct {
			UserID string `json:"user_id"`
		} `json:"metadata"`
	} `json:"customer"`
	ExternalID        string `json:"external_id"`
	ClientReferenceID string `json:"client_reference_id"`
}

func (e *paymentEvent) name() string {
	if e.Event != "" {
		return e.Event
	}
	return e.Type
}

// userID returns the first user id found, in order of precedence.
func (d *paymentData) userID() string {
	for _, id := range []string{d.Metadata.UserID, d.Customer.Metadata.UserID, d.ExternalID, d.ClientReferenceID} {
		if id != "" {
			return id
		}
	}
	return ""
}

// WebhookHandler receives payment notifications.
type WebhookHandler struct {
	upgrader      ProUpgrader
	verifier      external.WebhookVerifier
	paymentSecret types.SecretString
	stripeSecret  types.SecretString
	logger        *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. Either secret may be empty, in
// which case its route answers 500.
func NewWebhookHandler(
	upgrader ProUpgrader,
	verifier external.WebhookVerifier,
	paymentSecret types.SecretString,
	stripeSecret types.SecretString,
	logger *slog.Logger,
) *WebhookHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{
		upgrader:      upgrader,
		verifier:      verifier,
		paymentSecret: paymentSecret,
		stripeSecret:  stripeSecret,
		logger:        logger,
	}
}

// RegisterRoutes mounts the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/webhook/payment", h.Payment)
	r.Post("/webhook/stripe", h.Stripe)
}

// Payment handles POST /webhook/payment?secret=...
//
//  1. Reject when no server secret is configured (500, critical log).
//  2. Compare the query secret in constant time (401, nothing mutated).
//  3. Decode the event; unknown events are acknowledged and ignored.
//  4. Upgrade the referenced user. Unknown users are acknowledged with a
//     warning so the provider stops retrying.
func (h *WebhookHandler) Payment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.paymentSecret.IsEmpty() {
		h.logger.ErrorContext(ctx, "payment webhook received but PAYMENT_WEBHOOK_SECRET is not set", "severity", "critical")
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalWebhookNotConfig, "Webhook is not configured", nil))
		return
	}
	if !h.paymentSecret.Equal(r.URL.Query().Get("secret")) {
		h.logger.WarnContext(ctx, "payment webhook secret mismatch", "remote_addr", r.RemoteAddr)
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthWebhookSecretInvalid, "Invalid webhook secret", nil))
		return
	}

	payload, err := readWebhookBody(w, r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	var event paymentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidJSON, "invalid webhook payload", err))
		return
	}

	name := event.name()
	if name != EventPaymentPaid && name != EventBillingPaid {
		h.logger.InfoContext(ctx, "ignoring payment webhook event", "event", name)
		core.Success(w, r, map[string]any{"message": "ignored"})
		return
	}
	h.upgrade(w, r, event.Data.userID(), billing.SourcePaymentWebhook, "event", name)
}

// Stripe handles POST /webhook/stripe. Only a paid checkout.session.completed
// upgrades a user.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.stripeSecret.IsEmpty() {
		h.logger.ErrorContext(ctx, "stripe webhook received but STRIPE_WEBHOOK_SECRET is not set", "severity", "critical")
		core.Error(w, r, types.NewAppError(types.ErrCodeInternalWebhookNotConfig, "Webhook is not configured", nil))
		return
	}

	payload, err := readWebhookBody(w, r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.verifier.Verify(payload, r.Header.Get("Stripe-Signature"), h.stripeSecret.Unmask()); err != nil {
		h.logger.WarnContext(ctx, "stripe webhook signature verification failed", "error", err)
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthWebhookSecretInvalid, "Invalid webhook signature", err))
		return
	}

	completion, err := external.ParseCheckoutEvent(payload)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if completion == nil || !completion.Paid {
		core.Success(w, r, map[string]any{"message": "ignored"})
		return
	}
	h.upgrade(w, r, completion.UserID, billing.SourceStripe,
		"event_id", completion.EventID, "session_id", completion.SessionID)
}

func (h *WebhookHandler) upgrade(w http.ResponseWriter, r *http.Request, userID, source string, attrs ...any) {
	ctx := r.Context()
	attrs = append(attrs, "source", source, "user_id", userID)

	if userID == "" {
		h.logger.WarnContext(ctx, "paid event without a user id", attrs...)
		core.Success(w, r, map[string]any{"message": "ignored"})
		return
	}

	err := h.upgrader.UpgradeToPro(ctx, userID, source)
	switch {
	case types.HasCode(err, types.ErrCodeNotFoundUser):
		h.logger.WarnContext(ctx, "paid event for unknown user", attrs...)
		core.Success(w, r, map[string]any{"message": "ignored"})
	case err != nil:
		// Non-2xx makes the provider retry; the upgrade is idempotent.
		h.logger.ErrorContext(ctx, "plan upgrade failed", append(attrs, "error", err)...)
		core.Error(w, r, err)
	default:
		core.Success(w, r, map[string]any{"message": "upgraded"})
	}
}

func readWebhookBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidJSON, "webhook body is unreadable or exceeds 64KB", err)
	}
	return payload, nil
}
