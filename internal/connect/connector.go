package connect

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"tubepost/internal/external"
	"tubepost/internal/telemetry"
	"tubepost/internal/types"
)

// stateBytes is the entropy of the anti-forgery state parameter.
const stateBytes = 32

// ChannelFetcher reads the channel a fresh token is authorized for.
type ChannelFetcher interface {
	FetchChannel(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*types.ChannelInfo, error)
}

// Sealer encrypts credential bundles for storage.
type Sealer interface {
	Seal(c *types.Credential) ([]byte, error)
}

// ConnectionStore persists channel connections.
type ConnectionStore interface {
	SaveConnection(ctx context.Context, id string, sealed []byte, channel *types.ChannelInfo) error
	Disconnect(ctx context.Context, id string) error
}

// Deps are the collaborators of a Connector.
type Deps struct {
	Pool     *ClientPool
	Flows    FlowStore
	OAuth    external.OAuthFlow
	Channels ChannelFetcher
	Sealer   Sealer
	Store    ConnectionStore
	TTL      time.Duration
	Clock    types.Clock
	Logger   *slog.Logger
	Metrics  telemetry.Recorder
}

// Connector runs the connect flow.
type Connector struct {
	Deps
}

// NewConnector creates a Connector, filling optional dependencies.
func NewConnector(d Deps) *Connector {
	if d.TTL <= 0 {
		d.TTL = 10 * time.Minute
	}
	if d.Clock == nil {
		d.Clock = types.RealClock{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	d.Metrics = telemetry.OrNop(d.Metrics)
	return &Connector{Deps: d}
}

// BeginConnect binds a new flow to userID and a randomly picked client
// identity, and returns the consent page URL with the flow id.
func (c *Connector) BeginConnect(ctx context.Context, userID string) (redirectURL, flowID string, err error) {
	state, err := randomState()
	if err != nil {
		return "", "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to generate state", err)
	}
	client := c.Pool.Pick()
	flow := Flow{
		ID:        uuid.NewString(),
		State:     state,
		ClientID:  client.ClientID,
		UserID:    userID,
		CreatedAt: c.Clock.Now().UTC(),
	}
	if err := c.Flows.Put(ctx, flow, c.TTL); err != nil {
		return "", "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to store connect flow", err)
	}

	c.Logger.InfoContext(ctx, "connect flow started", "user_id", userID, "flow_id", flow.ID, "client_id", client.ClientID)
	return c.OAuth.AuthCodeURL(c.OAuth.Config(client), state), flow.ID, nil
}

// CompleteConnect consumes the flow, checks the callback and stores the
// sealed credential for the user that began the flow. Nothing is persisted
// unless every check passes and the code exchange succeeds.
func (c *Connector) CompleteConnect(ctx context.Context, flowID string, query url.Values) (*types.ConnectResult, error) {
	result, err := c.complete(ctx, flowID, query)
	if err != nil {
		c.Metrics.RecordConnect(telemetry.OutcomeFailure)
		return nil, err
	}
	c.Metrics.RecordConnect(telemetry.OutcomeSuccess)
	return result, nil
}

func (c *Connector) complete(ctx context.Context, flowID string, query url.Values) (*types.ConnectResult, error) {
	expired := types.NewAppError(types.ErrCodeAuthConnectExpired,
		"Connect session expired. Please start again", nil)
	if flowID == "" {
		return nil, expired
	}
	flow, err := c.Flows.Take(ctx, flowID)
	if err != nil {
		if errors.Is(err, ErrFlowNotFound) {
			return nil, expired
		}
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to load connect flow", err)
	}

	if denied := query.Get("error"); denied != "" {
		c.Logger.WarnContext(ctx, "consent denied", "user_id", flow.UserID, "error", denied)
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationOAuthDenied,
			"Authorization was denied", nil, map[string]any{"reason": denied})
	}

	if subtle.ConstantTimeCompare([]byte(query.Get("state")), []byte(flow.State)) != 1 {
		c.Logger.WarnContext(ctx, "connect state mismatch", "user_id", flow.UserID, "flow_id", flow.ID)
		return nil, types.NewAppError(types.ErrCodeValidationStateMismatch, "Invalid state parameter", nil)
	}

	client, ok := c.Pool.Lookup(flow.ClientID)
	if !ok {
		c.Logger.WarnContext(ctx, "connect client identity no longer configured", "client_id", flow.ClientID)
		return nil, expired
	}

	code := query.Get("code")
	if code == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "Missing authorization code", nil)
	}

	cfg := c.OAuth.Config(client)
	tok, err := c.OAuth.Exchange(ctx, cfg, code)
	if err != nil {
		c.Logger.ErrorContext(ctx, "code exchange failed", "user_id", flow.UserID, "client_id", client.ClientID, "error", err)
		c.Metrics.RecordExternalFailure("google_oauth", "exchange")
		return nil, err
	}

	channel, err := c.Channels.FetchChannel(ctx, cfg, tok)
	if err != nil {
		c.Logger.WarnContext(ctx, "channel info unavailable after connect", "user_id", flow.UserID, "error", err)
		channel = nil
	}

	sealed, err := c.Sealer.Seal(external.CredentialFromToken(tok, cfg))
	if err != nil {
		return nil, err
	}
	if err := c.Store.SaveConnection(ctx, flow.UserID, sealed, channel); err != nil {
		return nil, err
	}

	c.Logger.InfoContext(ctx, "youtube channel connected", "user_id", flow.UserID, "client_id", client.ClientID)
	return &types.ConnectResult{UserID: flow.UserID, Channel: channel}, nil
}

// Disconnect removes the stored credential of userID.
func (c *Connector) Disconnect(ctx context.Context, userID string) error {
	if err := c.Store.Disconnect(ctx, userID); err != nil {
		return err
	}
	c.Logger.InfoContext(ctx, "youtube channel disconnected", "user_id", userID)
	return nil
}

func randomState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

var _ ChannelFetcher = (*external.YouTubeClient)(nil)
