package lookup

import (
	"context"

	"google.golang.org/api/youtube/v3"

	"tubepost/internal/external"
	"tubepost/internal/types"
)

// KeyServicer provides a Data API service authorized by an API key.
type KeyServicer interface {
	KeyService(ctx context.Context) (*youtube.Service, error)
}

// APIStrategy answers lookups with the YouTube Data API.
type APIStrategy struct {
	Services KeyServicer
}

func (s *APIStrategy) VideoInfo(ctx context.Context, videoID string) (*types.VideoInfo, error) {
	svc, err := s.Services.KeyService(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Videos.List([]string{"snippet", "liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return nil, external.MapYouTubeError(err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, videoNotFound(videoID)
	}

	item := resp.Items[0]
	return &types.VideoInfo{
		ID:        videoID,
		Title:     item.Snippet.Title,
		Channel:   item.Snippet.ChannelTitle,
		Thumbnail: external.BestThumbnail(item.Snippet.Thumbnails),
		IsLive:    isLiveNow(item.Snippet.LiveBroadcastContent, item.LiveStreamingDetails),
	}, nil
}

func (s *APIStrategy) SearchChannels(ctx context.Context, query string) ([]types.ChannelSummary, error) {
	query, err := requireQuery(query)
	if err != nil {
		return nil, err
	}
	svc, err := s.Services.KeyService(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(maxChannelResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, external.MapYouTubeError(err)
	}

	out := make([]types.ChannelSummary, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Snippet == nil {
			continue
		}
		title := item.Snippet.ChannelTitle
		if title == "" {
			title = item.Snippet.Title
		}
		out = appendUnique(out, types.ChannelSummary{
			ID:        item.Id.ChannelId,
			Title:     title,
			Thumbnail: external.BestThumbnail(item.Snippet.Thumbnails),
		})
	}
	return out, nil
}

// isLiveNow reports whether a broadcast is currently on air.
func isLiveNow(broadcastContent string, details *youtube.VideoLiveStreamingDetails) bool {
	if details != nil && details.ActualStartTime != "" && details.ActualEndTime == "" {
		return true
	}
	return broadcastContent == "live"
}
