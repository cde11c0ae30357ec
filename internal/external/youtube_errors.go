package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"tubepost/internal/types"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// YouTube Data API error reasons TubePost reacts to.
const (
	ReasonQuotaExceeded    = "quotaExceeded"
	ReasonCommentsDisabled = "commentsDisabled"
	ReasonVideoNotFound    = "videoNotFound"
	ReasonLiveChatNotFound = "liveChatNotFound"
	ReasonLiveChatEnded    = "liveChatEnded"
	ReasonLiveChatDisabled = "liveChatDisabled"
	ReasonUnknown          = "Unknown"
)

// MapYouTubeError translates an error from a Data API call, or from the
// token refresh underneath it, into an AppError. AppErrors pass through.
func MapYouTubeError(err error) *types.AppError {
	if err == nil {
		return nil
	}

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return mapTokenError(retrieveErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "YouTube request timed out", err)
	}

	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return platformError(ReasonUnknown, 0, err)
	}

	reason := googleReason(gErr)
	switch {
	case gErr.Code == http.StatusUnauthorized:
		return types.NewAppErrorWithDetails(types.ErrCodeAuthYouTubeReconnect,
			"YouTube authorization is no longer valid; reconnect the channel", err,
			map[string]any{"reason": reason})
	case reason == ReasonVideoNotFound, gErr.Code == http.StatusNotFound && reason == "notFound":
		return types.NewAppErrorWithDetails(types.ErrCodeNotFoundVideo, "Video not found", err,
			map[string]any{"reason": reason})
	case reason == ReasonLiveChatNotFound, reason == ReasonLiveChatEnded, reason == ReasonLiveChatDisabled:
		return types.NewAppErrorWithDetails(types.ErrCodeNotFoundLiveChat, "Live chat not found", err,
			map[string]any{"reason": reason})
	default:
		return platformError(reason, gErr.Code, err)
	}
}

func platformError(reason string, status int, err error) *types.AppError {
	details := map[string]any{"reason": reason}
	if status != 0 {
		details["status"] = status
	}
	return types.NewAppErrorWithDetails(types.ErrCodeUpstreamYouTube, fmt.Sprintf("API error: %s", reason), err, details)
}

func mapTokenError(err *oauth2.RetrieveError) *types.AppError {
	switch err.ErrorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client":
		return types.NewAppErrorWithDetails(types.ErrCodeAuthYouTubeReconnect,
			"YouTube authorization is no longer valid; reconnect the channel", err,
			map[string]any{"reason": err.ErrorCode})
	}
	return types.NewAppError(types.ErrCodeUpstreamOAuthExchange, "token refresh failed", err)
}

// googleReason returns the first machine-readable reason of a Data API error.
func googleReason(err *googleapi.Error) string {
	for _, item := range err.Errors {
		if item.Reason != "" {
			return item.Reason
		}
	}
	return ReasonUnknown
}

// ErrorReason extracts the platform reason recorded by MapYouTubeError.
func ErrorReason(err error) string {
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Details == nil {
		return ""
	}
	reason, _ := appErr.Details["reason"].(string)
	return reason
}

// LogPlatformError logs a mapped YouTube failure at a level that mirrors its
// severity. An exhausted project quota stops every user, so it is critical.
func LogPlatformError(ctx context.Context, logger *slog.Logger, err *types.AppError, attrs ...any) {
	reason := ErrorReason(err)
	attrs = append(attrs, "code", err.Code, "reason", reason, "error", err.Error())

	switch {
	case reason == ReasonQuotaExceeded:
		logger.ErrorContext(ctx, "youtube quota exceeded", append(attrs, "severity", "critical")...)
	case reason == ReasonCommentsDisabled:
		logger.WarnContext(ctx, "comments are disabled on this video", attrs...)
	case err.Code == types.ErrCodeNotFoundVideo, err.Code == types.ErrCodeNotFoundLiveChat:
		logger.WarnContext(ctx, "youtube resource not found", attrs...)
	case err.Code == types.ErrCodeAuthYouTubeReconnect:
		logger.WarnContext(ctx, "youtube credential rejected", attrs...)
	default:
		logger.ErrorContext(ctx, "youtube call failed", attrs...)
	}
}
