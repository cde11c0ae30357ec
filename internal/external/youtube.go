package external

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"tubepost/internal/types"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeScope is the only scope TubePost requests from a channel owner.
const YouTubeScope = youtube.YoutubeForceSslScope

// YouTubeClientConfig configures a YouTubeClient.
type YouTubeClientConfig struct {
	// APIKey authorizes the unauthenticated lookup service.
	APIKey string
	// Endpoint overrides the Data API base URL (tests).
	Endpoint string
}

// YouTubeClient builds YouTube Data API services whose traffic flows through
// a BaseClient. It holds no per-user state; callers open a YouTubeSession per
// credential.
type YouTubeClient struct {
	base     *BaseClient
	apiKey   string
	endpoint string
}

// NewYouTubeClient creates a YouTubeClient with its own circuit breaker.
func NewYouTubeClient(httpClient *http.Client, cfg YouTubeClientConfig) *YouTubeClient {
	return NewYouTubeClientWithBase(NewBaseClient(httpClient, "youtube", "TubePost/1.0"), cfg)
}

// NewYouTubeClientWithBase creates a YouTubeClient around an existing BaseClient.
func NewYouTubeClientWithBase(base *BaseClient, cfg YouTubeClientConfig) *YouTubeClient {
	return &YouTubeClient{
		base:     base,
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
	}
}

// Base exposes the client's BaseClient for OAuth token traffic.
func (c *YouTubeClient) Base() *BaseClient { return c.base }

func (c *YouTubeClient) options(httpClient *http.Client) []option.ClientOption {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimSuffix(c.endpoint, "/")+"/"))
	}
	return opts
}

// KeyService returns a Data API service authorized by the configured API key.
func (c *YouTubeClient) KeyService(ctx context.Context) (*youtube.Service, error) {
	if c.apiKey == "" {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "YOUTUBE_API_KEY is not configured", nil)
	}
	httpClient := &http.Client{Transport: &apiKeyTransport{key: c.apiKey, next: c.base.Transport()}}
	svc, err := youtube.NewService(ctx, c.options(httpClient)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return svc, nil
}

// Session opens an authorized session for one user's credential. The token
// source refreshes the access token on demand through the same BaseClient.
func (c *YouTubeClient) Session(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*YouTubeSession, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base.HTTPClient())
	ts := cfg.TokenSource(ctx, tok)
	httpClient := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: c.base.Transport()}}

	svc, err := youtube.NewService(ctx, c.options(httpClient)...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTubeSession{svc: svc, source: ts, initial: tok.AccessToken}, nil
}

// FetchChannel opens a session for tok and returns the authorized channel.
func (c *YouTubeClient) FetchChannel(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*types.ChannelInfo, error) {
	sess, err := c.Session(ctx, cfg, tok)
	if err != nil {
		return nil, err
	}
	return sess.MyChannel(ctx)
}

// apiKeyTransport appends the key query parameter that option.WithAPIKey
// would add when no custom client is supplied.
type apiKeyTransport struct {
	key  string
	next http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	q := req.URL.Query()
	q.Set("key", t.key)
	req.URL.RawQuery = q.Encode()
	return t.next.RoundTrip(req)
}

// YouTubeSession performs Data API calls on behalf of one channel owner.
type YouTubeSession struct {
	svc     *youtube.Service
	source  oauth2.TokenSource
	initial string
}

// Service exposes the authorized Data API service.
func (s *YouTubeSession) Service() *youtube.Service { return s.svc }

// RefreshedToken reports the current token when it differs from the one the
// session was opened with.
func (s *YouTubeSession) RefreshedToken() (*oauth2.Token, bool) {
	tok, err := s.source.Token()
	if err != nil || tok == nil || tok.AccessToken == s.initial {
		return nil, false
	}
	return tok, true
}

// InsertComment posts a top-level comment and returns its thread id.
func (s *YouTubeSession) InsertComment(ctx context.Context, videoID, text string) (string, error) {
	thread := &youtube.CommentThread{
		Snippet: &youtube.CommentThreadSnippet{
			VideoId: videoID,
			TopLevelComment: &youtube.Comment{
				Snippet: &youtube.CommentSnippet{TextOriginal: text},
			},
		},
	}
	resp, err := s.svc.CommentThreads.Insert([]string{"snippet"}, thread).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

// ActiveLiveChatID resolves the live chat of a broadcast. A video that is not
// live, or does not exist, yields not_found_live_chat.
func (s *YouTubeSession) ActiveLiveChatID(ctx context.Context, videoID string) (string, error) {
	resp, err := s.svc.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].LiveStreamingDetails == nil ||
		resp.Items[0].LiveStreamingDetails.ActiveLiveChatId == "" {
		return "", types.NewAppErrorWithDetails(types.ErrCodeNotFoundLiveChat,
			"Live chat not found", nil, map[string]any{"video_id": videoID})
	}
	return resp.Items[0].LiveStreamingDetails.ActiveLiveChatId, nil
}

// InsertLiveChatMessage sends a text message to a live chat.
func (s *YouTubeSession) InsertLiveChatMessage(ctx context.Context, chatID, text string) (string, error) {
	msg := &youtube.LiveChatMessage{
		Snippet: &youtube.LiveChatMessageSnippet{
			LiveChatId:         chatID,
			Type:               "textMessageEvent",
			TextMessageDetails: &youtube.LiveChatTextMessageDetails{MessageText: text},
		},
	}
	resp, err := s.svc.LiveChatMessages.Insert([]string{"snippet"}, msg).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return resp.Id, nil
}

// MyChannel returns the title and thumbnail of the authorized channel.
func (s *YouTubeSession) MyChannel(ctx context.Context) (*types.ChannelInfo, error) {
	resp, err := s.svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamYouTube, "API error: channelNotFound", nil,
			map[string]any{"reason": "channelNotFound"})
	}
	snippet := resp.Items[0].Snippet
	return &types.ChannelInfo{Title: snippet.Title, Thumbnail: BestThumbnail(snippet.Thumbnails)}, nil
}

// BestThumbnail picks the largest available thumbnail URL.
func BestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Maxres, t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
