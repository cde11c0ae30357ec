// Package lookup answers read-only questions about public YouTube content:
// video metadata, channel search and recent-video listings.
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tubepost/internal/config"
	"tubepost/internal/external"
	"tubepost/internal/telemetry"
	"tubepost/internal/types"
)

// Strategy modes selected by LOOKUP_STRATEGY.
const (
	ModeAPI    = "api"
	ModeScrape = "scrape"
)

// maxChannelResults caps a channel search.
const maxChannelResults = 5

// Strategy resolves public metadata without a user credential.
type Strategy interface {
	VideoInfo(ctx context.Context, videoID string) (*types.VideoInfo, error)
	SearchChannels(ctx context.Context, query string) ([]types.ChannelSummary, error)
}

// NewStrategy builds the strategy named by cfg.LookupMode and wraps it in a
// cache unless cfg.CacheSize is zero.
func NewStrategy(cfg config.YouTubeConfig, reg *external.ClientRegistry, logger *slog.Logger, metrics telemetry.Recorder) (Strategy, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var s Strategy
	switch cfg.LookupMode {
	case ModeAPI:
		if cfg.APIKey.IsEmpty() {
			return nil, fmt.Errorf("LOOKUP_STRATEGY=api requires YOUTUBE_API_KEY")
		}
		s = &APIStrategy{Services: reg.YouTube}
	case ModeScrape, "":
		s = &ScrapeStrategy{Pages: reg.Web}
	default:
		return nil, fmt.Errorf("unknown lookup strategy %q", cfg.LookupMode)
	}
	logger.Info("lookup strategy selected", "mode", cfg.LookupMode, "cache_size", cfg.CacheSize, "cache_ttl", cfg.CacheTTL)

	if cfg.CacheSize <= 0 {
		return s, nil
	}
	return NewCached(s, cfg.CacheSize, cfg.CacheTTL, metrics), nil
}

func requireQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", types.NewAppError(types.ErrCodeValidationMissingField, "q is required", nil)
	}
	return query, nil
}

// appendUnique adds c unless its id is already present or the list is full.
func appendUnique(list []types.ChannelSummary, c types.ChannelSummary) []types.ChannelSummary {
	if c.ID == "" || len(list) >= maxChannelResults {
		return list
	}
	for _, existing := range list {
		if existing.ID == c.ID {
			return list
		}
	}
	return append(list, c)
}

func videoNotFound(videoID string) error {
	return types.NewAppErrorWithDetails(types.ErrCodeNotFoundVideo, "Video not found", nil,
		map[string]any{"video_id": videoID})
}
