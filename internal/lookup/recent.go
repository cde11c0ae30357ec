package lookup

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/youtube/v3"

	"tubepost/internal/external"
	"tubepost/internal/types"
)

const (
	recentPageSize = 12
	// enrichBatch is the videos.list id limit.
	enrichBatch = 50
	// shortMaxDuration is the longest video labelled a short.
	shortMaxDuration = 60 * time.Second
	// ChannelMine selects the caller's own uploads.
	ChannelMine = "mine"
)

// RecentParams filter a recent-video listing.
type RecentParams struct {
	PageToken string
	ChannelID string
	LiveOnly  bool
}

// RecentPage is one page of recent videos.
type RecentPage struct {
	Videos        []types.RecentVideo `json:"videos"`
	NextPageToken string              `json:"next_page_token"`
}

// UserLoader loads the stored user record.
type UserLoader interface {
	Get(ctx context.Context, id string) (*types.User, error)
}

// SessionOpener opens an authorized Data API session.
type SessionOpener interface {
	Session(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*external.YouTubeSession, error)
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

// RecentVideos lists recent videos using the caller's own credential, so
// listings count against the quota of the client that connected them.
type RecentVideos struct {
	Users       UserLoader
	Sessions    SessionOpener
	Sealer      CredentialSealer
	Credentials CredentialStore
	OAuth       OAuthConfigs
	Region      string
	Logger      *slog.Logger
}

// List returns one page of videos: the caller's uploads for ChannelMine, a
// channel's latest videos for another channel id, or live broadcasts in the
// configured region when no channel is given.
func (r *RecentVideos) List(ctx context.Context, userID string, p RecentParams) (*RecentPage, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	user, err := r.Users.Get(ctx, userID)
	if err != nil && !types.HasCode(err, types.ErrCodeNotFoundUser) {
		return nil, err
	}
	if user == nil || !user.YouTubeConnected || len(user.SealedCredential) == 0 {
		return nil, types.NewAppError(types.ErrCodeYouTubeNotConnected, "Connect your YouTube channel first", nil)
	}
	cred, err := r.Sealer.Open(user.SealedCredential)
	if err != nil {
		return nil, err
	}
	cfg := r.OAuth.ConfigFromCredential(cred)
	sess, err := r.Sessions.Session(ctx, cfg, external.TokenFromCredential(cred))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to open platform session", err)
	}
	defer r.persistRefreshed(ctx, logger, userID, sess, cfg)

	svc := sess.Service()
	var page *RecentPage
	switch p.ChannelID {
	case ChannelMine:
		page, err = r.uploads(ctx, svc, p)
	default:
		page, err = r.search(ctx, svc, p)
	}
	if err != nil {
		mapped := external.MapYouTubeError(err)
		external.LogPlatformError(ctx, logger, mapped, "user_id", userID, "channel_id", p.ChannelID)
		return nil, mapped
	}

	if err := enrich(ctx, svc, page.Videos); err != nil {
		logger.WarnContext(ctx, "recent video enrichment failed", "user_id", userID, "error", err)
	}
	if p.LiveOnly && p.ChannelID == ChannelMine {
		page.Videos = onlyLive(page.Videos)
	}
	return page, nil
}

func (r *RecentVideos) uploads(ctx context.Context, svc *youtube.Service, p RecentParams) (*RecentPage, error) {
	chResp, err := svc.Channels.List([]string{"contentDetails"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	if len(chResp.Items) == 0 || chResp.Items[0].ContentDetails == nil ||
		chResp.Items[0].ContentDetails.RelatedPlaylists == nil {
		return &RecentPage{Videos: []types.RecentVideo{}}, nil
	}
	playlistID := chResp.Items[0].ContentDetails.RelatedPlaylists.Uploads

	call := svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(recentPageSize).
		Context(ctx)
	if p.PageToken != "" {
		call = call.PageToken(p.PageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, err
	}

	videos := make([]types.RecentVideo, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.ContentDetails == nil {
			continue
		}
		videos = append(videos, types.RecentVideo{
			ID:          item.ContentDetails.VideoId,
			Title:       item.Snippet.Title,
			Thumbnail:   external.BestThumbnail(item.Snippet.Thumbnails),
			Channel:     item.Snippet.ChannelTitle,
			PublishedAt: item.Snippet.PublishedAt,
			Type:        types.VideoTypeVideo,
		})
	}
	return &RecentPage{Videos: videos, NextPageToken: resp.NextPageToken}, nil
}

func (r *RecentVideos) search(ctx context.Context, svc *youtube.Service, p RecentParams) (*RecentPage, error) {
	call := svc.Search.List([]string{"snippet"}).
		Type("video").
		MaxResults(recentPageSize).
		Context(ctx)
	switch {
	case p.ChannelID != "":
		call = call.ChannelId(p.ChannelID).Order("date")
		if p.LiveOnly {
			call = call.EventType("live")
		}
	default:
		call = call.EventType("live").RegionCode(r.Region).Order("viewCount")
	}
	if p.PageToken != "" {
		call = call.PageToken(p.PageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, err
	}

	videos := make([]types.RecentVideo, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		typ := types.VideoTypeVideo
		if item.Snippet.LiveBroadcastContent == "live" {
			typ = types.VideoTypeLive
		}
		videos = append(videos, types.RecentVideo{
			ID:          item.Id.VideoId,
			Title:       item.Snippet.Title,
			Thumbnail:   external.BestThumbnail(item.Snippet.Thumbnails),
			Channel:     item.Snippet.ChannelTitle,
			PublishedAt: item.Snippet.PublishedAt,
			Type:        typ,
		})
	}
	return &RecentPage{Videos: videos, NextPageToken: resp.NextPageToken}, nil
}

func (r *RecentVideos) persistRefreshed(ctx context.Context, logger *slog.Logger, userID string, sess *external.YouTubeSession, cfg *oauth2.Config) {
	tok, ok := sess.RefreshedToken()
	if !ok || r.Credentials == nil {
		return
	}
	sealed, err := r.Sealer.Seal(external.CredentialFromToken(tok, cfg))
	if err == nil {
		err = r.Credentials.UpdateCredential(ctx, userID, sealed)
	}
	if err != nil {
		logger.WarnContext(ctx, "failed to persist refreshed token", "user_id", userID, "error", err)
	}
}

// enrich sets type and viewer counts from video details. Items keep their
// search-derived type when a batch fails.
func enrich(ctx context.Context, svc *youtube.Service, videos []types.RecentVideo) error {
	if len(videos) == 0 {
		return nil
	}
	index := make(map[string][]int, len(videos))
	ids := make([]string, 0, len(videos))
	for i, v := range videos {
		if _, seen := index[v.ID]; !seen {
			ids = append(ids, v.ID)
		}
		index[v.ID] = append(index[v.ID], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	results := make([][]*youtube.Video, (len(ids)+enrichBatch-1)/enrichBatch)
	for b := range results {
		lo, hi := b*enrichBatch, min((b+1)*enrichBatch, len(ids))
		g.Go(func() error {
			resp, err := svc.Videos.List([]string{"liveStreamingDetails", "contentDetails"}).
				Id(ids[lo:hi]...).
				Context(gctx).
				Do()
			if err != nil {
				return err
			}
			results[b] = resp.Items
			return nil
		})
	}
	err := g.Wait()

	// Apply whatever batches completed; slices are written only by their
	// own goroutine and read after Wait.
	for _, items := range results {
		for _, item := range items {
			for _, i := range index[item.Id] {
				classify(&videos[i], item)
			}
		}
	}
	return err
}

func classify(v *types.RecentVideo, item *youtube.Video) {
	if d := item.LiveStreamingDetails; d != nil && d.ActualStartTime != "" && d.ActualEndTime == "" {
		v.Type = types.VideoTypeLive
		if d.ConcurrentViewers > 0 {
			viewers := d.ConcurrentViewers
			v.Viewers = &viewers
		}
		return
	}
	if item.ContentDetails != nil {
		if d, ok := parseISODuration(item.ContentDetails.Duration); ok && d > 0 && d <= shortMaxDuration {
			v.Type = types.VideoTypeShort
			return
		}
	}
	v.Type = types.VideoTypeVideo
}

func onlyLive(videos []types.RecentVideo) []types.RecentVideo {
	out := videos[:0]
	for _, v := range videos {
		if v.Type == types.VideoTypeLive {
			out = append(out, v)
		}
	}
	return out
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration parses the subset of ISO 8601 durations the Data API
// returns in contentDetails.duration, e.g. PT1M3S or P1DT2H.
func parseISODuration(s string) (time.Duration, bool) {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, false
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, false
		}
		total += time.Duration(n) * unit
	}
	return total, true
}
