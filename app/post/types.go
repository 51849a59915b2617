package post

import (
	"time"
)

// Canonical, platform-independent post model. Every normalizer produces this
// shape regardless of the source platform's wire format.

// Attachment types. Platform-specific names ("document", "unknown") are
// mapped onto this set during normalization.
const (
	AttachmentImage    = "image"
	AttachmentVideo    = "video"
	AttachmentAudio    = "audio"
	AttachmentGifv     = "gifv"
	AttachmentDocument = "document"
)

// Tag types.
const (
	TagHashtag = "hashtag"
	TagMention = "mention"
)

type Post struct {
	ID              string       `json:"id"`
	Content         string       `json:"content"` // raw HTML
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       *time.Time   `json:"updated_at,omitempty"`
	Account         Account      `json:"account"`
	Attachments     []Attachment `json:"media_attachments"`
	RepliesCount    int          `json:"replies_count"`
	ReblogsCount    int          `json:"reblogs_count"`
	FavouritesCount int          `json:"favourites_count"`
	Sensitive       bool         `json:"sensitive"`
	SpoilerText     string       `json:"spoiler_text"`
	URL             string       `json:"url"`
	Platform        string       `json:"platform"`
	InReplyToID     string       `json:"in_reply_to_id,omitempty"`
	Language        string       `json:"language,omitempty"`
	Tags            []Tag        `json:"tags"`
	Poll            *Poll        `json:"poll,omitempty"`
}

type Account struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Avatar      string  `json:"avatar"`
	URL         string  `json:"url"`
	Acct        string  `json:"acct"` // always username@domain
	Platform    string  `json:"platform"`
	Emojis      []Emoji `json:"emojis"`
}

type Emoji struct {
	Shortcode string `json:"shortcode"`
	URL       string `json:"url"`
	StaticURL string `json:"static_url,omitempty"`
}

type Attachment struct {
	Type        string `json:"type"`
	URL         string `json:"url"`
	PreviewURL  string `json:"preview_url,omitempty"`
	Description string `json:"description,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Blurhash    string `json:"blurhash,omitempty"`
}

type Tag struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

type Poll struct {
	Options    []PollOption `json:"options"`
	VotesCount int          `json:"votes_count"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
	Expired    bool         `json:"expired"`
	Multiple   bool         `json:"multiple"`
}

type PollOption struct {
	Title      string `json:"title"`
	VotesCount int    `json:"votes_count"`
}
