package lookup

import (
	"context"
	"encoding/json"
	"html"
	"net/url"
	"regexp"
	"strings"

	"tubepost/internal/external"
	"tubepost/internal/types"
)

// Markup patterns of the public watch and results pages. They break when
// YouTube changes its page layout and are kept in this file only.
var (
	ogTitleRe      = regexp.MustCompile(`<meta\s+property="og:title"\s+content="([^"]*)"`)
	ogImageRe      = regexp.MustCompile(`<meta\s+property="og:image"\s+content="([^"]*)"`)
	ownerChannelRe = regexp.MustCompile(`"ownerChannelName":"((?:[^"\\]|\\.)*)"`)
	authorNameRe   = regexp.MustCompile(`<link\s+itemprop="name"\s+content="([^"]*)"`)
	liveNowRe      = regexp.MustCompile(`"isLiveNow":\s*true|"isLive":\s*true`)

	channelIDRe    = regexp.MustCompile(`"channelId":"(UC[\w-]{22})"`)
	simpleTitleRe  = regexp.MustCompile(`"title":\{"simpleText":"((?:[^"\\]|\\.)*)"\}`)
	thumbnailURLRe = regexp.MustCompile(`"thumbnails":\[\{"url":"([^"]+)"`)
)

const channelRendererMarker = `"channelRenderer":{`

// channelFilter is the results-page filter selecting channels only.
const channelFilter = "EgIQAg=="

// ScrapeStrategy answers lookups from the public YouTube web pages.
type ScrapeStrategy struct {
	Pages external.PageFetcher
}

func (s *ScrapeStrategy) VideoInfo(ctx context.Context, videoID string) (*types.VideoInfo, error) {
	body, err := s.Pages.Fetch(ctx, "/watch", url.Values{"v": {videoID}})
	if err != nil {
		return nil, err
	}
	page := string(body)

	// Unavailable videos still render a page, without og:title.
	title := firstMatch(ogTitleRe, page)
	if title == "" {
		return nil, videoNotFound(videoID)
	}

	channel := unescapeJSON(firstMatch(ownerChannelRe, page))
	if channel == "" {
		channel = html.UnescapeString(firstMatch(authorNameRe, page))
	}
	thumbnail := html.UnescapeString(firstMatch(ogImageRe, page))
	if thumbnail == "" {
		thumbnail = "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
	}

	return &types.VideoInfo{
		ID:        videoID,
		Title:     html.UnescapeString(title),
		Channel:   channel,
		Thumbnail: thumbnail,
		IsLive:    liveNowRe.MatchString(page),
	}, nil
}

func (s *ScrapeStrategy) SearchChannels(ctx context.Context, query string) ([]types.ChannelSummary, error) {
	query, err := requireQuery(query)
	if err != nil {
		return nil, err
	}
	body, err := s.Pages.Fetch(ctx, "/results", url.Values{"search_query": {query}, "sp": {channelFilter}})
	if err != nil {
		return nil, err
	}
	return parseChannelRenderers(string(body)), nil
}

// parseChannelRenderers extracts channels in page order. Each renderer block
// runs until the next one.
func parseChannelRenderers(page string) []types.ChannelSummary {
	var out []types.ChannelSummary
	for {
		start := strings.Index(page, channelRendererMarker)
		if start < 0 {
			break
		}
		page = page[start+len(channelRendererMarker):]
		block := page
		if next := strings.Index(page, channelRendererMarker); next >= 0 {
			block = page[:next]
		}

		thumb := firstMatch(thumbnailURLRe, block)
		if strings.HasPrefix(thumb, "//") {
			thumb = "https:" + thumb
		}
		out = appendUnique(out, types.ChannelSummary{
			ID:        firstMatch(channelIDRe, block),
			Title:     unescapeJSON(firstMatch(simpleTitleRe, block)),
			Thumbnail: thumb,
		})
		if len(out) >= maxChannelResults {
			break
		}
	}
	if out == nil {
		out = []types.ChannelSummary{}
	}
	return out
}

func firstMatch(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// unescapeJSON decodes the body of a JSON string literal captured from an
// inline script.
func unescapeJSON(s string) string {
	if s == "" {
		return ""
	}
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
