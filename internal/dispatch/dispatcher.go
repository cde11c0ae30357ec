// Package dispatch posts comments and live chat messages on behalf of a
// connected user, gated by the usage ledger.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"

	"tubepost/internal/external"
	"tubepost/internal/ledger"
	"tubepost/internal/telemetry"
	"tubepost/internal/types"
)

// Platform message length limits, in characters.
const (
	maxCommentLength  = 10000
	maxLiveChatLength = 200
)

// Result messages shown by the dashboard.
const (
	MessageCommentPosted = "Comment posted!"
	MessageLiveSent      = "Message sent to live chat!"
)

// Poster is an authorized platform session for one user.
type Poster interface {
	InsertComment(ctx context.Context, videoID, text string) (string, error)
	ActiveLiveChatID(ctx context.Context, videoID string) (string, error)
	InsertLiveChatMessage(ctx context.Context, chatID, text string) (string, error)
	RefreshedToken() (*oauth2.Token, bool)
}

// Platform opens sessions from stored credentials.
type Platform interface {
	Open(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (Poster, error)
}

// YouTubePlatform opens sessions with the YouTube Data API client.
type YouTubePlatform struct {
	Client *external.YouTubeClient
}

func (p YouTubePlatform) Open(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (Poster, error) {
	sess, err := p.Client.Session(ctx, cfg, tok)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Ledger is the usage gate.
type Ledger interface {
	Authorize(ctx context.Context, userID string, now time.Time) (ledger.Decision, *types.User, error)
	Commit(ctx context.Context, userID, today string) (dailyCount, credits int, err error)
	Today(now time.Time) string
}

// CredentialSealer opens and re-seals credential bundles.
type CredentialSealer interface {
	Seal(c *types.Credential) ([]byte, error)
	Open(sealed []byte) (*types.Credential, error)
}

// CredentialStore persists refreshed credentials.
type CredentialStore interface {
	UpdateCredential(ctx context.Context, id string, sealed []byte) error
}

// OAuthConfigs rebuilds the client configuration that issued a credential.
type OAuthConfigs interface {
	ConfigFromCredential(c *types.Credential) *oauth2.Config
}

// Deps are the collaborators of a Dispatcher.
type Deps struct {
	Ledger      Ledger
	Platform    Platform
	Sealer      CredentialSealer
	Credentials CredentialStore
	OAuth       OAuthConfigs
	Clock       types.Clock
	Logger      *slog.Logger
	Metrics     telemetry.Recorder
}

// Dispatcher performs send actions.
type Dispatcher struct {
	Deps
}

// New creates a Dispatcher, filling optional dependencies.
func New(d Deps) *Dispatcher {
	if d.Clock == nil {
		d.Clock = types.RealClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	d.Metrics = telemetry.OrNop(d.Metrics)
	return &Dispatcher{Deps: d}
}

// Send posts message to videoID as a comment or live chat message. Counters
// are committed only after the platform accepted the message.
func (d *Dispatcher) Send(ctx context.Context, userID, videoID, message string, kind types.MessageKind) (*types.SendResult, error) {
	videoID, message, err := validate(videoID, message, kind)
	if err != nil {
		return nil, err
	}

	now := d.Clock.Now()
	decision, user, err := d.Ledger.Authorize(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed() {
		d.Metrics.RecordRejection(string(kind), decision.Outcome.String())
		return nil, decision.Err()
	}

	if !user.YouTubeConnected || len(user.SealedCredential) == 0 {
		return nil, types.NewAppError(types.ErrCodeYouTubeNotConnected, "Connect your YouTube channel first", nil)
	}
	cred, err := d.Sealer.Open(user.SealedCredential)
	if err != nil {
		d.Logger.ErrorContext(ctx, "stored credential cannot be opened", "user_id", userID, "error", err)
		return nil, err
	}

	cfg := d.OAuth.ConfigFromCredential(cred)
	poster, err := d.Platform.Open(ctx, cfg, external.TokenFromCredential(cred))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to open platform session", err)
	}

	id, err := d.post(ctx, poster, videoID, message, kind)
	d.persistRefreshedToken(ctx, userID, poster, cfg)
	if err != nil {
		mapped := external.MapYouTubeError(err)
		external.LogPlatformError(ctx, d.Logger, mapped,
			"user_id", userID, "video_id", videoID, "kind", string(kind))
		d.Metrics.RecordRejection(string(kind), string(mapped.Code))
		if mapped.Code == types.ErrCodeUpstreamYouTube {
			d.Metrics.RecordExternalFailure("youtube", external.ErrorReason(mapped))
		}
		return nil, mapped
	}

	dailyCount, credits, err := d.Ledger.Commit(ctx, userID, d.Ledger.Today(now))
	if err != nil {
		// The message is already public; report success and leave the
		// counters to the next action.
		d.Logger.ErrorContext(ctx, "usage commit failed after successful send",
			"user_id", userID, "kind", string(kind), "error", err)
	}

	d.Metrics.RecordAction(string(kind))
	d.Logger.InfoContext(ctx, "message sent",
		"user_id", userID, "video_id", videoID, "kind", string(kind), "id", id,
		"daily_count", dailyCount, "credits", credits)

	msg := MessageCommentPosted
	if kind == types.KindLive {
		msg = MessageLiveSent
	}
	return &types.SendResult{Kind: kind, ID: id, Message: msg}, nil
}

func (d *Dispatcher) post(ctx context.Context, p Poster, videoID, message string, kind types.MessageKind) (string, error) {
	if kind == types.KindComment {
		return p.InsertComment(ctx, videoID, message)
	}
	chatID, err := p.ActiveLiveChatID(ctx, videoID)
	if err != nil {
		return "", err
	}
	return p.InsertLiveChatMessage(ctx, chatID, message)
}

// persistRefreshedToken re-seals a token refreshed during the call. Failures
// are logged; the old refresh token remains valid.
func (d *Dispatcher) persistRefreshedToken(ctx context.Context, userID string, p Poster, cfg *oauth2.Config) {
	tok, ok := p.RefreshedToken()
	if !ok {
		return
	}
	sealed, err := d.Sealer.Seal(external.CredentialFromToken(tok, cfg))
	if err == nil {
		err = d.Credentials.UpdateCredential(ctx, userID, sealed)
	}
	if err != nil {
		d.Logger.WarnContext(ctx, "failed to persist refreshed token", "user_id", userID, "error", err)
		return
	}
	d.Logger.DebugContext(ctx, "refreshed token persisted", "user_id", userID)
}

func validate(videoID, message string, kind types.MessageKind) (string, string, error) {
	if strings.TrimSpace(videoID) == "" || strings.TrimSpace(message) == "" {
		return "", "", types.NewAppError(types.ErrCodeValidationMissingField,
			"video_id and message are required", nil)
	}
	if !kind.Valid() {
		return "", "", types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidType,
			"type must be 'comment' or 'live'", nil, map[string]any{"type": string(kind)})
	}
	limit := maxCommentLength
	if kind == types.KindLive {
		limit = maxLiveChatLength
	}
	if n := utf8.RuneCountInString(message); n > limit {
		return "", "", types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidField,
			"message is too long", nil, map[string]any{"length": n, "max": limit})
	}
	id, err := types.ParseVideoID(videoID)
	if err != nil {
		return "", "", err
	}
	return id, message, nil
}

var (
	_ Ledger       = (*ledger.Ledger)(nil)
	_ Platform     = YouTubePlatform{}
	_ OAuthConfigs = (*external.GoogleOAuth)(nil)
	_ Poster       = (*external.YouTubeSession)(nil)
)
