package lookup

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"tubepost/internal/telemetry"
	"tubepost/internal/types"
)

// Cached memoizes successful lookups for a TTL and collapses concurrent
// misses for the same key into one upstream call. The shared call ignores
// the leading caller's cancellation so other waiters still get a result.
type Cached struct {
	next     Strategy
	videos   *expirable.LRU[string, types.VideoInfo]
	channels *expirable.LRU[string, []types.ChannelSummary]
	group    singleflight.Group
	metrics  telemetry.Recorder
}

// NewCached wraps next with size entries per lookup kind.
func NewCached(next Strategy, size int, ttl time.Duration, metrics telemetry.Recorder) *Cached {
	return &Cached{
		next:     next,
		videos:   expirable.NewLRU[string, types.VideoInfo](size, nil, ttl),
		channels: expirable.NewLRU[string, []types.ChannelSummary](size, nil, ttl),
		metrics:  telemetry.OrNop(metrics),
	}
}

func (c *Cached) VideoInfo(ctx context.Context, videoID string) (*types.VideoInfo, error) {
	if v, ok := c.videos.Get(videoID); ok {
		c.metrics.RecordCacheHit(true)
		return &v, nil
	}
	c.metrics.RecordCacheHit(false)

	res, err, _ := c.group.Do("video:"+videoID, func() (any, error) {
		info, err := c.next.VideoInfo(context.WithoutCancel(ctx), videoID)
		if err != nil {
			return nil, err
		}
		c.videos.Add(videoID, *info)
		return *info, nil
	})
	if err != nil {
		return nil, err
	}
	v := res.(types.VideoInfo)
	return &v, nil
}

func (c *Cached) SearchChannels(ctx context.Context, query string) ([]types.ChannelSummary, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return c.next.SearchChannels(ctx, query)
	}
	if v, ok := c.channels.Get(key); ok {
		c.metrics.RecordCacheHit(true)
		return clone(v), nil
	}
	c.metrics.RecordCacheHit(false)

	res, err, _ := c.group.Do("channels:"+key, func() (any, error) {
		list, err := c.next.SearchChannels(context.WithoutCancel(ctx), query)
		if err != nil {
			return nil, err
		}
		c.channels.Add(key, clone(list))
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(res.([]types.ChannelSummary)), nil
}

func clone(in []types.ChannelSummary) []types.ChannelSummary {
	return append(make([]types.ChannelSummary, 0, len(in)), in...)
}
