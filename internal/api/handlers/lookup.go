package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tubepost/internal/core"
	"tubepost/internal/lookup"
	"tubepost/internal/types"
)

// RecentLister lists recent videos with the caller's credential.
type RecentLister interface {
	List(ctx context.Context, userID string, p lookup.RecentParams) (*lookup.RecentPage, error)
}

// VideoInfoRequest is the body of POST /get_video_info.
type VideoInfoRequest struct {
	VideoID string `json:"video_id"`
}

// LookupHandler serves the read-only lookup routes.
type LookupHandler struct {
	strategy lookup.Strategy
	recent   RecentLister
}

// NewLookupHandler creates a LookupHandler.
func NewLookupHandler(strategy lookup.Strategy, recent RecentLister) *LookupHandler {
	return &LookupHandler{strategy: strategy, recent: recent}
}

// RegisterRoutes mounts the lookup routes.
func (h *LookupHandler) RegisterRoutes(r chi.Router) {
	r.Post("/get_video_info", h.VideoInfo)
	r.Get("/search_channels", h.SearchChannels)
	r.Get("/get_recent_videos", h.RecentVideos)
}

// VideoInfo handles POST /get_video_info. The id may be a full video URL.
func (h *LookupHandler) VideoInfo(w http.ResponseWriter, r *http.Request) {
	var req VideoInfoRequest
	if err := core.DecodeBody(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	videoID, err := types.ParseVideoID(req.VideoID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	info, err := h.strategy.VideoInfo(r.Context(), videoID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Success(w, r, map[string]any{
		"video_id":  info.ID,
		"title":     info.Title,
		"channel":   info.Channel,
		"thumbnail": info.Thumbnail,
		"is_live":   info.IsLive,
	})
}

// SearchChannels handles GET /search_channels?q=.
func (h *LookupHandler) SearchChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := h.strategy.SearchChannels(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Success(w, r, map[string]any{"channels": channels})
}

// RecentVideos handles GET /get_recent_videos.
func (h *LookupHandler) RecentVideos(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	q := r.URL.Query()
	params := lookup.RecentParams{
		PageToken: q.Get("pageToken"),
		ChannelID: q.Get("channelId"),
	}
	if raw := q.Get("liveOnly"); raw != "" {
		live, err := strconv.ParseBool(raw)
		if err != nil {
			core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidField,
				"liveOnly must be true or false", nil, map[string]any{"liveOnly": raw}))
			return
		}
		params.LiveOnly = live
	}

	page, err := h.recent.List(r.Context(), actor.ID, params)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Success(w, r, map[string]any{
		"videos":          page.Videos,
		"next_page_token": page.NextPageToken,
	})
}
