package types

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoID accepts a bare video id or a YouTube URL (watch?v=,
// youtu.be/, /live/, /shorts/, /embed/) and returns the 11 character id.
func ParseVideoID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", NewAppError(ErrCodeValidationMissingField, "video_id is required", nil)
	}
	if videoIDPattern.MatchString(raw) {
		return raw, nil
	}

	candidate := raw
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	if u, err := url.Parse(candidate); err == nil {
		if id := videoIDFromURL(u); videoIDPattern.MatchString(id) {
			return id, nil
		}
	}
	return "", NewAppErrorWithDetails(ErrCodeValidationInvalidVideoID, "Invalid video id or URL", nil,
		map[string]any{"video_id": raw})
}

func videoIDFromURL(u *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtu.be":
		return segments[0]
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		if len(segments) >= 2 {
			switch segments[0] {
			case "live", "shorts", "embed", "v":
				return segments[1]
			}
		}
	}
	return ""
}
