package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tubepost/internal/types"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeAPIBase is the default Stripe API base URL.
const stripeAPIBase = "https://api.stripe.com"

// EventStripeCheckoutCompleted is the only Stripe event that upgrades a plan.
const EventStripeCheckoutCompleted = "checkout.session.completed"

// StripeClientConfig holds the configuration for creating a StripeClient.
type StripeClientConfig struct {
	SecretKey string
	BaseURL   string // defaults to stripeAPIBase
	Logger    *slog.Logger
}

// CheckoutRequest describes a one-off Pro upgrade payment.
type CheckoutRequest struct {
	UserID      string
	Email       string
	AmountMinor int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
}

// StripeClient creates Checkout sessions by calling the Stripe REST API
// through BaseClient.
type StripeClient struct {
	base      *BaseClient
	secretKey string
	baseURL   string
	logger    *slog.Logger
}

// NewStripeClient creates a new StripeClient with its own circuit breaker.
func NewStripeClient(httpClient *http.Client, cfg StripeClientConfig) *StripeClient {
	return NewStripeClientWithBase(NewBaseClient(httpClient, "stripe", "TubePost/1.0"), cfg)
}

// NewStripeClientWithBase creates a StripeClient with a pre-configured BaseClient.
func NewStripeClientWithBase(base *BaseClient, cfg StripeClientConfig) *StripeClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = stripeAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeClient{
		base:      base,
		secretKey: cfg.SecretKey,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger,
	}
}

// CreateCheckoutSession creates a payment-mode Checkout session. The user id
// is set as client_reference_id and metadata for webhook correlation.
func (s *StripeClient) CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (checkoutURL string, sessionID string, err error) {
	params := url.Values{}
	params.Set("mode", "payment")
	params.Set("client_reference_id", in.UserID)
	params.Set("success_url", in.SuccessURL)
	params.Set("cancel_url", in.CancelURL)
	params.Set("metadata[user_id]", in.UserID)
	params.Set("line_items[0][quantity]", "1")
	params.Set("line_items[0][price_data][currency]", strings.ToLower(in.Currency))
	params.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(in.AmountMinor, 10))
	params.Set("line_items[0][price_data][product_data][name]", in.ProductName)
	if in.Email != "" {
		params.Set("customer_email", in.Email)
	}

	resp, err := s.doPost(ctx, "/v1/checkout/sessions", params)
	if err != nil {
		return "", "", s.wrapStripeError("CreateCheckoutSession", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", s.handleErrorResponse(resp, "CreateCheckoutSession")
	}

	var session stripe.CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", "", types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to decode Stripe checkout session response",
			err,
		)
	}

	s.logger.InfoContext(ctx, "checkout session created", "user_id", in.UserID, "session_id", session.ID)
	return session.URL, session.ID, nil
}

// doPost performs an authenticated POST request with a form-encoded body.
func (s *StripeClient) doPost(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.setAuthHeaders(req)

	return s.base.Do(req)
}

// setAuthHeaders sets the Stripe API authentication and version headers.
func (s *StripeClient) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Stripe-Version", stripe.APIVersion)
}

// stripeErrorResponse represents the JSON error body returned by the Stripe API.
type stripeErrorResponse struct {
	Error stripeErrorBody `json:"error"`
}

type stripeErrorBody struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param"`
}

// handleErrorResponse reads a Stripe error response and maps it to an AppError.
func (s *StripeClient) handleErrorResponse(resp *http.Response, operation string) error {
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if readErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe returned status %d and response body was unreadable", operation, resp.StatusCode),
			readErr,
		)
	}

	var stripeErr stripeErrorResponse
	if jsonErr := json.Unmarshal(body, &stripeErr); jsonErr != nil {
		return types.NewAppError(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe returned status %d with non-JSON body", operation, resp.StatusCode),
			jsonErr,
		)
	}

	return mapStripeError(operation, resp.StatusCode, &stripeErr.Error)
}

// mapStripeError translates a Stripe error into an AppError.
func mapStripeError(operation string, statusCode int, stripeErr *stripeErrorBody) error {
	details := map[string]any{"stripe_type": stripeErr.Type, "stripe_code": stripeErr.Code}
	switch {
	case statusCode == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			fmt.Sprintf("%s: Stripe rate limit exceeded", operation),
			nil,
		)
	case statusCode == http.StatusBadRequest && stripeErr.Param != "":
		details["param"] = stripeErr.Param
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe rejected parameter %s: %s", operation, stripeErr.Param, stripeErr.Message),
			nil, details,
		)
	default:
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamStripe,
			fmt.Sprintf("%s: Stripe error (%d): %s", operation, statusCode, stripeErr.Message),
			nil, details,
		)
	}
}

// wrapStripeError wraps a BaseClient transport error with context.
func (s *StripeClient) wrapStripeError(operation string, err error) error {
	if _, ok := err.(*types.AppError); ok {
		return err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamStripe,
		fmt.Sprintf("%s: Stripe request failed: %v", operation, err),
		err,
	)
}

// StripeVerifier checks Stripe-Signature headers.
type StripeVerifier struct{}

// Verify validates the HMAC signature and timestamp tolerance of a payload.
func (v *StripeVerifier) Verify(payload []byte, header string, secret string) error {
	return webhook.ValidatePayload(payload, header, secret)
}

// CheckoutCompletion is the part of a checkout.session.completed event that
// drives a plan upgrade.
type CheckoutCompletion struct {
	EventID   string
	SessionID string
	UserID    string
	Paid      bool
}

// ParseCheckoutEvent decodes a verified Stripe event. It returns nil for
// events other than checkout.session.completed.
func ParseCheckoutEvent(payload []byte) (*CheckoutCompletion, error) {
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidJSON, "invalid Stripe event payload", err)
	}
	if string(event.Type) != EventStripeCheckoutCompleted || event.Data == nil {
		return nil, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidJSON, "invalid checkout session payload", err)
	}

	userID := session.ClientReferenceID
	if userID == "" {
		userID = session.Metadata["user_id"]
	}
	return &CheckoutCompletion{
		EventID:   event.ID,
		SessionID: session.ID,
		UserID:    userID,
		Paid:      session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}
