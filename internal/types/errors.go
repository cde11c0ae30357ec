package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and services MUST use these instead of
// hardcoded strings; the prefix drives the HTTP status mapping.
const (
	// Validation (400)
	ErrCodeValidationMissingField   ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidJSON    ErrorCode = "validation_invalid_json"
	ErrCodeValidationInvalidType    ErrorCode = "validation_invalid_message_type"
	ErrCodeValidationInvalidVideoID ErrorCode = "validation_invalid_video_id"
	ErrCodeValidationInvalidPrice   ErrorCode = "validation_invalid_price"
	ErrCodeValidationInvalidField   ErrorCode = "validation_invalid_field"
	ErrCodeValidationStateMismatch  ErrorCode = "validation_oauth_state_mismatch"
	ErrCodeValidationOAuthDenied    ErrorCode = "validation_oauth_denied"

	// Preconditions (400)
	ErrCodeYouTubeNotConnected ErrorCode = "precondition_youtube_not_connected"

	// Auth (401)
	ErrCodeAuthTokenMissing         ErrorCode = "auth_token_missing"
	ErrCodeAuthTokenInvalid         ErrorCode = "auth_token_invalid"
	ErrCodeAuthTokenExpired         ErrorCode = "auth_token_expired"
	ErrCodeAuthConnectExpired       ErrorCode = "auth_connect_session_expired"
	ErrCodeAuthYouTubeReconnect     ErrorCode = "auth_youtube_reconnect_required"
	ErrCodeAuthWebhookSecretInvalid ErrorCode = "auth_webhook_secret_invalid"

	// Permission (403)
	ErrCodePermissionAdminOnly ErrorCode = "permission_admin_only"

	// Limits (429)
	ErrCodeLimitDailyExceeded ErrorCode = "limit_daily_exceeded"

	// Payment (402)
	ErrCodePaymentCreditsExhausted ErrorCode = "payment_credits_exhausted"

	// Not Found (404)
	ErrCodeNotFoundUser     ErrorCode = "not_found_user"
	ErrCodeNotFoundVideo    ErrorCode = "not_found_video"
	ErrCodeNotFoundLiveChat ErrorCode = "not_found_live_chat"

	// Internal (500)
	ErrCodeInternalDB                ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected        ErrorCode = "internal_unexpected_error"
	ErrCodeInternalWebhookNotConfig  ErrorCode = "internal_webhook_not_configured"
	ErrCodeInternalBillingNotConfig  ErrorCode = "internal_billing_not_configured"
	ErrCodeInternalCredentialCorrupt ErrorCode = "internal_credential_corrupt"

	// Upstream
	ErrCodeUpstreamYouTube       ErrorCode = "upstream_youtube_error"
	ErrCodeUpstreamOAuthExchange ErrorCode = "upstream_oauth_exchange_failed"
	ErrCodeUpstreamStripe        ErrorCode = "upstream_stripe_unavailable"
	ErrCodeUpstreamUnavailable   ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited   ErrorCode = "upstream_rate_limited"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"), strings.HasPrefix(s, "precondition_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized // 401
	case strings.HasPrefix(s, "payment_"):
		return http.StatusPaymentRequired // 402
	case strings.HasPrefix(s, "permission_"):
		return http.StatusForbidden // 403
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case strings.HasPrefix(s, "limit_"), c == ErrCodeUpstreamRateLimited:
		return http.StatusTooManyRequests // 429
	case c == ErrCodeUpstreamYouTube:
		// Platform failures are surfaced as 500 with the reason attached.
		return http.StatusInternalServerError
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// AppError is the standard application error type. All domain and handler
// errors are expressed as AppError so the HTTP layer can format them
// consistently.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// HasCode reports whether err is (or wraps) an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}
