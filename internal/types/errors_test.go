package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeLimitDailyExceeded,
		Message: "daily limit reached",
	}

	expected := "limit_daily_exceeded: daily limit reached"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := NewAppError(ErrCodeInternalDB, "failed to load user", underlying)

	if !errors.Is(appErr, underlying) {
		t.Errorf("errors.Is should find the underlying error")
	}
}

func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeAuthTokenExpired, "token has expired", nil)
	wrapped := fmt.Errorf("handler failed: %w", appErr)

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should extract AppError from the chain")
	}
	if target.Code != ErrCodeAuthTokenExpired {
		t.Errorf("Code = %q, want %q", target.Code, ErrCodeAuthTokenExpired)
	}
}

func TestErrorCodeHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationStateMismatch, http.StatusBadRequest},
		{ErrCodeYouTubeNotConnected, http.StatusBadRequest},
		{ErrCodeAuthTokenMissing, http.StatusUnauthorized},
		{ErrCodeAuthYouTubeReconnect, http.StatusUnauthorized},
		{ErrCodeAuthWebhookSecretInvalid, http.StatusUnauthorized},
		{ErrCodePaymentCreditsExhausted, http.StatusPaymentRequired},
		{ErrCodePermissionAdminOnly, http.StatusForbidden},
		{ErrCodeNotFoundVideo, http.StatusNotFound},
		{ErrCodeNotFoundLiveChat, http.StatusNotFound},
		{ErrCodeLimitDailyExceeded, http.StatusTooManyRequests},
		{ErrCodeUpstreamRateLimited, http.StatusTooManyRequests},
		{ErrCodeUpstreamYouTube, http.StatusInternalServerError},
		{ErrCodeUpstreamOAuthExchange, http.StatusBadGateway},
		{ErrCodeInternalWebhookNotConfig, http.StatusInternalServerError},
		{ErrorCode("something_unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWithDetails_DoesNotMutateOriginal(t *testing.T) {
	orig := NewAppErrorWithDetails(ErrCodeLimitDailyExceeded, "limit", nil, map[string]any{"daily_limit": 10})
	enriched := orig.WithDetails(map[string]any{"daily_count": 10})

	if len(orig.Details) != 1 {
		t.Errorf("original details mutated: %v", orig.Details)
	}
	if enriched.Details["daily_limit"] != 10 || enriched.Details["daily_count"] != 10 {
		t.Errorf("merged details = %v", enriched.Details)
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewAppError(ErrCodeNotFoundUser, "missing", nil))
	if !HasCode(err, ErrCodeNotFoundUser) {
		t.Error("HasCode should find wrapped code")
	}
	if HasCode(err, ErrCodeInternalDB) {
		t.Error("HasCode should not match a different code")
	}
	if HasCode(nil, ErrCodeNotFoundUser) {
		t.Error("HasCode(nil) should be false")
	}
}
