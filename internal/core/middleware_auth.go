package core

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tubepost/internal/types"
)

// authPublicPaths are exempt from authentication. The callback is protected
// by the flow cookie and state; webhooks carry their own secrets.
var authPublicPaths = map[string]bool{
	"/health":          true,
	"/metrics":         true,
	"/oauth-callback":  true,
	"/webhook/payment": true,
	"/webhook/stripe":  true,
}

// queryTokenPaths accept the ID token as a ?token= query parameter because
// they are reached by a browser navigation, which cannot set headers.
var queryTokenPaths = map[string]bool{
	"/connect":         true,
	"/connect_youtube": true,
}

// AuthMiddleware resolves the bearer ID token to an Actor and stores it in
// the request context. Failures answer 401 with auth_token_missing,
// auth_token_invalid or auth_token_expired.
//
// If Authenticator is nil the middleware passes through.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Authenticator == nil || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if authPublicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" && queryTokenPaths[r.URL.Path] {
			token = strings.TrimSpace(r.URL.Query().Get("token"))
		}
		if token == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authentication token is required")
			return
		}

		actor, err := s.Authenticator.ResolveToken(r.Context(), token)
		if err != nil {
			s.handleAuthError(w, r, err)
			return
		}
		if actor == nil || actor.ID == "" {
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid authentication token")
			return
		}

		next.ServeHTTP(w, r.WithContext(types.WithActor(r.Context(), *actor)))
	})
}

// extractBearerToken parses "Bearer <token>" (case-insensitive scheme per
// RFC 7235). Returns empty string if the format is invalid.
func extractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(prefix):])
}

func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case types.ErrCodeAuthTokenExpired:
			s.Logger.WarnContext(r.Context(), "authentication failed: token expired",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenExpired, "Authentication token has expired")
			return
		case types.ErrCodeAuthTokenInvalid:
			s.Logger.WarnContext(r.Context(), "authentication failed: token invalid",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
			)
			s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Invalid authentication token")
			return
		}
	}

	s.Logger.ErrorContext(r.Context(), "authentication failed: unexpected error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	s.writeAuthError(w, r, types.ErrCodeAuthTokenInvalid, "Authentication failed")
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, code types.ErrorCode, message string) {
	Error(w, r, types.NewAppError(code, message, nil))
}

// RequireAdmin allows only the configured administrator uid. An empty uid
// denies everyone.
func (s *Server) RequireAdmin(adminUID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := types.GetActor(r.Context())
			if !ok {
				s.writeAuthError(w, r, types.ErrCodeAuthTokenMissing, "Authentication required")
				return
			}
			if adminUID == "" || actor.ID != adminUID {
				s.Logger.WarnContext(r.Context(), "admin access denied",
					slog.String("user_id", actor.ID),
					slog.String("path", r.URL.Path),
				)
				Error(w, r, types.NewAppError(types.ErrCodePermissionAdminOnly, "Admin access only", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
