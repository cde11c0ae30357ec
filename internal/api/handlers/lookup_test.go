package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubepost/internal/lookup"
	"tubepost/internal/types"
)

type fakeStrategy struct {
	videoIDs []string
	queries  []string
}

func (f *fakeStrategy) VideoInfo(_ context.Context, id string) (*types.VideoInfo, error) {
	f.videoIDs = append(f.videoIDs, id)
	if id == "missing0000" {
		return nil, types.NewAppError(types.ErrCodeNotFoundVideo, "Video not found", nil)
	}
	return &types.VideoInfo{ID: id, Title: "T", Channel: "C", Thumbnail: "th", IsLive: true}, nil
}

func (f *fakeStrategy) SearchChannels(_ context.Context, q string) ([]types.ChannelSummary, error) {
	f.queries = append(f.queries, q)
	if q == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, "q is required", nil)
	}
	return []types.ChannelSummary{{ID: "UC1", Title: "One"}}, nil
}

type fakeRecent struct {
	got lookup.RecentParams
}

func (f *fakeRecent) List(_ context.Context, _ string, p lookup.RecentParams) (*lookup.RecentPage, error) {
	f.got = p
	return &lookup.RecentPage{
		Videos:        []types.RecentVideo{{ID: "v1", Type: types.VideoTypeShort}},
		NextPageToken: "N",
	}, nil
}

func TestLookup_VideoInfo(t *testing.T) {
	strategy := &fakeStrategy{}
	router := newRouter("u1", NewLookupHandler(strategy, &fakeRecent{}).RegisterRoutes)

	rec := do(t, router, http.MethodPost, "/get_video_info", "application/json",
		`{"video_id":"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "dQw4w9WgXcQ", body["video_id"])
	assert.Equal(t, true, body["is_live"])
	assert.Equal(t, []string{"dQw4w9WgXcQ"}, strategy.videoIDs)

	rec = do(t, router, http.MethodPost, "/get_video_info", "application/json", `{"video_id":"missing0000"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/get_video_info", "application/json", `{"video_id":"not a video"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_invalid_video_id", decode(t, rec)["code"])
}

func TestLookup_SearchChannels(t *testing.T) {
	strategy := &fakeStrategy{}
	router := newRouter("u1", NewLookupHandler(strategy, &fakeRecent{}).RegisterRoutes)

	rec := do(t, router, http.MethodGet, "/search_channels?q=rick", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	channels := decode(t, rec)["channels"].([]any)
	assert.Len(t, channels, 1)

	rec = do(t, router, http.MethodGet, "/search_channels", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLookup_RecentVideos(t *testing.T) {
	recent := &fakeRecent{}
	router := newRouter("u1", NewLookupHandler(&fakeStrategy{}, recent).RegisterRoutes)

	rec := do(t, router, http.MethodGet, "/get_recent_videos?channelId=mine&liveOnly=true&pageToken=P", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, lookup.RecentParams{PageToken: "P", ChannelID: "mine", LiveOnly: true}, recent.got)
	body := decode(t, rec)
	assert.Equal(t, "N", body["next_page_token"])
	assert.Equal(t, "BREVE", body["videos"].([]any)[0].(map[string]any)["type"])

	rec = do(t, router, http.MethodGet, "/get_recent_videos?liveOnly=maybe", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
