package types

import (
	"time"
)

// Plan is the subscription tier of a user.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro
}

// Defaults applied to a user record that has never been written.
const (
	DefaultFreeCredits = 10
	// UnlimitedCredits is the sentinel stored for pro users.
	UnlimitedCredits = 999999
	// DateLayout is the calendar-day format used for usage tracking.
	DateLayout = "2006-01-02"
)

// User is the per-user record keyed by the identity provider's user id.
type User struct {
	ID               string       `json:"uid"`
	Plan             Plan         `json:"plan"`
	Credits          int          `json:"credits"`
	DailyCount       int          `json:"daily_count"`
	LastUsageDate    string       `json:"last_usage_date,omitempty"`
	UsageHistory     UsageHistory `json:"usage_history,omitempty"`
	YouTubeConnected bool         `json:"youtube_connected"`
	YouTubeChannel   *ChannelInfo `json:"youtube_channel,omitempty"`
	Profile          Profile      `json:"profile"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	// SealedCredential is the encrypted credential bundle; never serialized.
	SealedCredential []byte `json:"-"`
}

// NewDefaultUser returns the record implied for a user that has no row yet.
func NewDefaultUser(id string) *User {
	return &User{
		ID:           id,
		Plan:         PlanFree,
		Credits:      DefaultFreeCredits,
		UsageHistory: UsageHistory{},
	}
}

// Profile holds the billing profile fields collected from the dashboard.
type Profile struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty" validate:"omitempty,max=200"`
	CPF   string `json:"cpf,omitempty" validate:"omitempty,max=20"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

// UsageHistory maps a calendar date (YYYY-MM-DD) to the number of actions
// performed on that day.
type UsageHistory map[string]int

// ChannelInfo is the display data of the channel a user connected.
type ChannelInfo struct {
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// Credential is the OAuth credential bundle obtained at connect time. It is
// sealed before storage and opened only by the dispatcher and recent-video
// lookup.
type Credential struct {
	AccessToken  SecretString `json:"access_token"`
	RefreshToken SecretString `json:"refresh_token"`
	TokenType    string       `json:"token_type,omitempty"`
	Expiry       time.Time    `json:"expiry"`
	TokenURL     string       `json:"token_uri"`
	ClientID     string       `json:"client_id"`
	ClientSecret SecretString `json:"client_secret"`
	Scopes       []string     `json:"scopes"`
}

// MessageKind selects the target surface of a send action.
type MessageKind string

const (
	KindComment MessageKind = "comment"
	KindLive    MessageKind = "live"
)

// Valid reports whether k is a supported message kind.
func (k MessageKind) Valid() bool {
	return k == KindComment || k == KindLive
}

// SendResult is returned by a successful send action.
type SendResult struct {
	Kind    MessageKind `json:"type"`
	ID      string      `json:"id"`
	Message string      `json:"message"`
}

// ConnectResult is returned after a completed connect flow.
type ConnectResult struct {
	UserID  string       `json:"user_id"`
	Channel *ChannelInfo `json:"channel,omitempty"`
}

// VideoInfo is the public metadata of a single video.
type VideoInfo struct {
	ID        string `json:"video_id"`
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	Thumbnail string `json:"thumbnail"`
	IsLive    bool   `json:"is_live"`
}

// ChannelSummary is a single channel search result.
type ChannelSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
}

// VideoType labels a recent video for the dashboard.
type VideoType string

const (
	VideoTypeLive  VideoType = "LIVE"
	VideoTypeShort VideoType = "BREVE"
	VideoTypeVideo VideoType = "VIDEO"
)

// RecentVideo is one entry of a recent-video listing.
type RecentVideo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Thumbnail   string    `json:"thumbnail"`
	Channel     string    `json:"channel"`
	PublishedAt string    `json:"published_at,omitempty"`
	Type        VideoType `json:"type"`
	Viewers     *uint64   `json:"viewers,omitempty"`
}

// RecentVideoPage is a page of recent videos.
type RecentVideoPage struct {
	Videos        []RecentVideo `json:"videos"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}
