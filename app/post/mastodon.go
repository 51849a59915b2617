package post

import (
	"time"
)

// Mastodon REST API wire format (/api/v1/statuses/{id}). Pleroma, Pixelfed
// and GoToSocial serve the same schema with minor gaps, so this is the shared
// shape for the whole Mastodon-compatible family.

type MastodonStatus struct {
	ID              string             `json:"id"`
	URI             string             `json:"uri"`
	URL             string             `json:"url"`
	CreatedAt       time.Time          `json:"created_at"`
	EditedAt        *time.Time         `json:"edited_at"`
	InReplyToID     *string            `json:"in_reply_to_id"`
	Sensitive       bool               `json:"sensitive"`
	SpoilerText     string             `json:"spoiler_text"`
	Language        *string            `json:"language"`
	Content         string             `json:"content"`
	RepliesCount    int                `json:"replies_count"`
	ReblogsCount    int                `json:"reblogs_count"`
	FavouritesCount int                `json:"favourites_count"`
	Account         MastodonAccount    `json:"account"`
	MediaAttachment []MastodonMedia    `json:"media_attachments"`
	Mentions        []MastodonMention  `json:"mentions"`
	Tags            []MastodonTag      `json:"tags"`
	Emojis          []MastodonEmoji    `json:"emojis"`
	Poll            *MastodonPoll      `json:"poll"`
}

type MastodonAccount struct {
	ID          string          `json:"id"`
	Username    string          `json:"username"`
	Acct        string          `json:"acct"`
	DisplayName string          `json:"display_name"`
	URL         string          `json:"url"`
	Avatar      string          `json:"avatar"`
	AvatarStat  string          `json:"avatar_static"`
	Emojis      []MastodonEmoji `json:"emojis"`
}

type MastodonMedia struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	URL         string             `json:"url"`
	PreviewURL  string             `json:"preview_url"`
	RemoteURL   string             `json:"remote_url"`
	Description string             `json:"description"`
	Blurhash    string             `json:"blurhash"`
	Meta        *MastodonMediaMeta `json:"meta"`
}

type MastodonMediaMeta struct {
	Original *MastodonMediaDims `json:"original"`
}

type MastodonMediaDims struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type MastodonMention struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Acct     string `json:"acct"`
	URL      string `json:"url"`
}

type MastodonTag struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type MastodonEmoji struct {
	Shortcode string `json:"shortcode"`
	URL       string `json:"url"`
	StaticURL string `json:"static_url"`
}

type MastodonPoll struct {
	ID         string               `json:"id"`
	ExpiresAt  *time.Time           `json:"expires_at"`
	Expired    bool                 `json:"expired"`
	Multiple   bool                 `json:"multiple"`
	VotesCount int                  `json:"votes_count"`
	Options    []MastodonPollOption `json:"options"`
}

type MastodonPollOption struct {
	Title      string `json:"title"`
	VotesCount int    `json:"votes_count"`
}

// NormalizeMastodon converts a Mastodon-family status into the canonical
// post model. domain is the resolved request domain, used to backfill the
// acct handle when the upstream payload omits the domain portion.
func NormalizeMastodon(s *MastodonStatus, platformKey, domain string) *Post {
	p := &Post{
		ID:              s.ID,
		Content:         s.Content,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.EditedAt,
		RepliesCount:    clampCount(s.RepliesCount),
		ReblogsCount:    clampCount(s.ReblogsCount),
		FavouritesCount: clampCount(s.FavouritesCount),
		Sensitive:       s.Sensitive,
		SpoilerText:     s.SpoilerText,
		URL:             s.URL,
		Platform:        platformKey,
	}
	if p.URL == "" {
		p.URL = s.URI
	}
	if s.InReplyToID != nil {
		p.InReplyToID = *s.InReplyToID
	}
	if s.Language != nil {
		p.Language = *s.Language
	}

	p.Account = normalizeMastodonAccount(&s.Account, platformKey, domain, s.Emojis)

	p.Attachments = make([]Attachment, 0, len(s.MediaAttachment))
	for _, m := range s.MediaAttachment {
		fileURL := m.URL
		if fileURL == "" {
			fileURL = m.RemoteURL
		}
		a := Attachment{
			Type:        SniffAttachmentType(m.Type, fileURL),
			URL:         fileURL,
			PreviewURL:  m.PreviewURL,
			Description: m.Description,
			Blurhash:    m.Blurhash,
		}
		if a.PreviewURL == "" && a.Type == AttachmentVideo {
			a.PreviewURL = DerivePreviewURL(fileURL)
		}
		if m.Meta != nil && m.Meta.Original != nil {
			a.Width = m.Meta.Original.Width
			a.Height = m.Meta.Original.Height
		}
		p.Attachments = append(p.Attachments, a)
	}

	tags := make([]Tag, 0, len(s.Tags)+len(s.Mentions))
	for _, t := range s.Tags {
		tags = append(tags, Tag{Type: TagHashtag, Name: t.Name, URL: t.URL})
	}
	for _, m := range s.Mentions {
		tags = append(tags, Tag{Type: TagMention, Name: "@" + m.Acct, URL: m.URL})
	}
	p.Tags = NormalizeTags(tags)

	if s.Poll != nil {
		poll := &Poll{
			VotesCount: clampCount(s.Poll.VotesCount),
			ExpiresAt:  s.Poll.ExpiresAt,
			Expired:    s.Poll.Expired,
			Multiple:   s.Poll.Multiple,
		}
		for _, o := range s.Poll.Options {
			poll.Options = append(poll.Options, PollOption{Title: o.Title, VotesCount: clampCount(o.VotesCount)})
		}
		p.Poll = poll
	}

	return p
}

func normalizeMastodonAccount(a *MastodonAccount, platformKey, domain string, contentEmojis []MastodonEmoji) Account {
	acct := Account{
		ID:          a.ID,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Avatar:      a.Avatar,
		URL:         a.URL,
		Platform:    platformKey,
	}
	if acct.DisplayName == "" {
		acct.DisplayName = a.Username
	}
	acct.Acct = BackfillAcct(a.Username, a.Acct, a.URL, domain)

	accountEmojis := make([]Emoji, 0, len(a.Emojis))
	for _, e := range a.Emojis {
		accountEmojis = append(accountEmojis, Emoji{Shortcode: e.Shortcode, URL: e.URL, StaticURL: e.StaticURL})
	}
	statusEmojis := make([]Emoji, 0, len(contentEmojis))
	for _, e := range contentEmojis {
		statusEmojis = append(statusEmojis, Emoji{Shortcode: e.Shortcode, URL: e.URL, StaticURL: e.StaticURL})
	}
	acct.Emojis = MergeEmojis(accountEmojis, statusEmojis)

	return acct
}
