package post

import (
	"html"
	"strings"
	"time"
)

// Misskey RPC wire format (POST /api/notes/show). Note responses do not
// embed emoji URLs, so normalization takes the instance emoji directory
// (POST /api/emojis) as a second input.

type MisskeyNote struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"createdAt"`
	Text         *string        `json:"text"`
	CW           *string        `json:"cw"`
	User         MisskeyUser    `json:"user"`
	RepliesCount int            `json:"repliesCount"`
	RenoteCount  int            `json:"renoteCount"`
	Reactions    map[string]int `json:"reactions"`
	Files        []MisskeyFile  `json:"files"`
	ReplyID      *string        `json:"replyId"`
	Poll         *MisskeyPoll   `json:"poll"`
	Tags         []string       `json:"tags"`
	URI          string         `json:"uri"`
	URL          string         `json:"url"`
}

type MisskeyUser struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Name      string  `json:"name"`
	AvatarURL string  `json:"avatarUrl"`
	Host      *string `json:"host"` // nil for local users
}

type MisskeyFile struct {
	ID           string           `json:"id"`
	Type         string           `json:"type"` // MIME type
	URL          string           `json:"url"`
	ThumbnailURL string           `json:"thumbnailUrl"`
	Comment      string           `json:"comment"`
	IsSensitive  bool             `json:"isSensitive"`
	Blurhash     string           `json:"blurhash"`
	Properties   MisskeyFileProps `json:"properties"`
}

type MisskeyFileProps struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type MisskeyPoll struct {
	Multiple  bool                `json:"multiple"`
	ExpiresAt *time.Time          `json:"expiresAt"`
	Choices   []MisskeyPollChoice `json:"choices"`
}

type MisskeyPollChoice struct {
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// MisskeyEmoji is one entry of the instance emoji directory.
type MisskeyEmoji struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// NormalizeMisskey converts a Misskey note plus the instance emoji directory
// into the canonical post model. Emoji shortcodes are scanned out of the note
// text and the author display name and resolved against the directory.
func NormalizeMisskey(note *MisskeyNote, emojiDir []MisskeyEmoji, platformKey, domain string) *Post {
	text := ""
	if note.Text != nil {
		text = *note.Text
	}

	p := &Post{
		ID:           note.ID,
		Content:      misskeyTextToHTML(text),
		CreatedAt:    note.CreatedAt,
		RepliesCount: clampCount(note.RepliesCount),
		ReblogsCount: clampCount(note.RenoteCount),
		Platform:     platformKey,
		URL:          note.URL,
	}
	if p.URL == "" {
		p.URL = note.URI
	}
	if p.URL == "" {
		p.URL = "https://" + stripPort(domain) + "/notes/" + note.ID
	}
	if note.ReplyID != nil {
		p.InReplyToID = *note.ReplyID
	}

	// Misskey has named reactions instead of favourites; the sum is the
	// closest canonical equivalent.
	for _, count := range note.Reactions {
		p.FavouritesCount += clampCount(count)
	}

	if note.CW != nil && *note.CW != "" {
		p.Sensitive = true
		p.SpoilerText = *note.CW
	}

	p.Attachments = make([]Attachment, 0, len(note.Files))
	for _, f := range note.Files {
		if f.IsSensitive {
			p.Sensitive = true
		}
		declared := ""
		switch {
		case strings.HasPrefix(f.Type, "image/gif"):
			declared = AttachmentGifv
		case strings.HasPrefix(f.Type, "image/"):
			declared = AttachmentImage
		case strings.HasPrefix(f.Type, "video/"):
			declared = AttachmentVideo
		case strings.HasPrefix(f.Type, "audio/"):
			declared = AttachmentAudio
		}
		a := Attachment{
			Type:        SniffAttachmentType(declared, f.URL),
			URL:         f.URL,
			PreviewURL:  f.ThumbnailURL,
			Description: f.Comment,
			Width:       f.Properties.Width,
			Height:      f.Properties.Height,
			Blurhash:    f.Blurhash,
		}
		if a.PreviewURL == "" && a.Type == AttachmentVideo {
			a.PreviewURL = DerivePreviewURL(f.URL)
		}
		p.Attachments = append(p.Attachments, a)
	}

	tags := make([]Tag, 0, len(note.Tags))
	for _, t := range note.Tags {
		tags = append(tags, Tag{
			Type: TagHashtag,
			Name: t,
			URL:  "https://" + stripPort(domain) + "/tags/" + t,
		})
	}
	p.Tags = NormalizeTags(tags)

	if note.Poll != nil {
		poll := &Poll{
			Multiple:  note.Poll.Multiple,
			ExpiresAt: note.Poll.ExpiresAt,
		}
		if note.Poll.ExpiresAt != nil {
			poll.Expired = time.Now().After(*note.Poll.ExpiresAt)
		}
		for _, c := range note.Poll.Choices {
			opt := PollOption{Title: c.Text, VotesCount: clampCount(c.Votes)}
			poll.VotesCount += opt.VotesCount
			poll.Options = append(poll.Options, opt)
		}
		p.Poll = poll
	}

	p.Account = normalizeMisskeyUser(&note.User, platformKey, domain)

	directory := make(map[string]string, len(emojiDir))
	for _, e := range emojiDir {
		if _, ok := directory[e.Name]; !ok {
			directory[e.Name] = e.URL
		}
	}
	for _, code := range ScanShortcodes(text, note.User.Name) {
		if u, ok := directory[code]; ok {
			p.Account.Emojis = append(p.Account.Emojis, Emoji{Shortcode: code, URL: u})
		}
	}
	p.Account.Emojis = MergeEmojis(p.Account.Emojis)

	return p
}

func normalizeMisskeyUser(u *MisskeyUser, platformKey, domain string) Account {
	host := stripPort(domain)
	if u.Host != nil && *u.Host != "" {
		host = *u.Host
	}

	account := Account{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.Name,
		Avatar:      u.AvatarURL,
		URL:         "https://" + host + "/@" + u.Username,
		Platform:    platformKey,
	}
	if account.DisplayName == "" {
		account.DisplayName = u.Username
	}
	account.Acct = u.Username + "@" + host

	return account
}

// misskeyTextToHTML renders MFM plain text as minimal HTML: escaped, with
// line breaks preserved. Full MFM rendering is out of scope.
func misskeyTextToHTML(text string) string {
	if text == "" {
		return ""
	}
	escaped := html.EscapeString(text)
	return "<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>"
}
