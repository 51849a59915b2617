package post

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ActivityPub wire format. Field values vary wildly across implementations:
// url can be a string, a Link object, or a list of either; attributedTo can
// be a bare actor URL or an embedded actor; tag and attachment can be a
// single object or a list. The Flex* types absorb those variations.

// Object types accepted as posts.
var apPostTypes = map[string]bool{
	"Note":     true,
	"Article":  true,
	"Page":     true,
	"Image":    true,
	"Video":    true,
	"Question": true,
}

// IsAPPostType reports whether an ActivityPub object type is renderable as a
// post. Create wrappers must be dereferenced first.
func IsAPPostType(t string) bool {
	return apPostTypes[t]
}

// FlexString decodes a JSON value that is either a string, an object with an
// href/url/id field, or a list of those (first entry wins).
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		if len(list) == 0 {
			*f = ""
			return nil
		}
		return f.UnmarshalJSON(list[0])
	case '{':
		var obj struct {
			Href string `json:"href"`
			URL  string `json:"url"`
			ID   string `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		switch {
		case obj.Href != "":
			*f = FlexString(obj.Href)
		case obj.URL != "":
			*f = FlexString(obj.URL)
		default:
			*f = FlexString(obj.ID)
		}
		return nil
	}

	return fmt.Errorf("unexpected JSON value for link field: %s", string(data))
}

func (f FlexString) String() string { return string(f) }

// FlexList decodes a JSON value that is either a single object or a list.
type FlexList[T any] []T

func (l *FlexList[T]) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
		return nil
	}
	var single T
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = []T{single}
	return nil
}

type APObject struct {
	Context      json.RawMessage        `json:"@context,omitempty"`
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Content      string                 `json:"content"`
	ContentMap   map[string]string      `json:"contentMap"`
	Name         string                 `json:"name"`
	Summary      string                 `json:"summary"`
	Sensitive    bool                   `json:"sensitive"`
	Published    string                 `json:"published"`
	Updated      string                 `json:"updated"`
	URL          FlexString             `json:"url"`
	AttributedTo FlexString             `json:"attributedTo"`
	InReplyTo    FlexString             `json:"inReplyTo"`
	Tag          FlexList[APTag]        `json:"tag"`
	Attachment   FlexList[APAttachment] `json:"attachment"`
	Object       json.RawMessage        `json:"object,omitempty"` // Create wrapper payload
	Replies      *APCollection          `json:"replies"`
	Likes        *APCollection          `json:"likes"`
	Shares       *APCollection          `json:"shares"`
	OneOf        []APQuestionOption     `json:"oneOf"`
	AnyOf        []APQuestionOption     `json:"anyOf"`
	EndTime      string                 `json:"endTime"`
	Closed       string                 `json:"closed"`
}

type APTag struct {
	Type string     `json:"type"`
	Name string     `json:"name"`
	Href string     `json:"href"`
	Icon *APImage   `json:"icon"`
	URL  FlexString `json:"url"`
}

type APAttachment struct {
	Type      string     `json:"type"`
	MediaType string     `json:"mediaType"`
	URL       FlexString `json:"url"`
	Href      string     `json:"href"`
	Name      string     `json:"name"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Blurhash  string     `json:"blurhash"`
}

type APImage struct {
	Type      string     `json:"type"`
	MediaType string     `json:"mediaType"`
	URL       FlexString `json:"url"`
}

type APCollection struct {
	TotalItems int `json:"totalItems"`
}

type APQuestionOption struct {
	Name    string        `json:"name"`
	Replies *APCollection `json:"replies"`
}

type APActor struct {
	ID                string            `json:"id"`
	Type              string            `json:"type"`
	PreferredUsername string            `json:"preferredUsername"`
	Name              string            `json:"name"`
	URL               FlexString        `json:"url"`
	Icon              FlexList[APImage] `json:"icon"`
	Tag               FlexList[APTag]   `json:"tag"`
}

// ActorResolver retrieves an actor document when attributedTo is a bare URL.
// This is the single additional round trip the ActivityPub normalizer may
// perform.
type ActorResolver func(ctx context.Context, actorURL string) (*APActor, error)

// apTimeLayouts covers the timestamp shapes seen in the wild.
var apTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
}

func parseAPTime(s string) (time.Time, bool) {
	for _, layout := range apTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeActivityPub converts an ActivityPub object into the canonical post
// model. The resolver is invoked at most once, when attributedTo references
// an actor by URL; a nil resolver (or a resolver failure) degrades to a
// minimal account derived from the actor URL itself.
func NormalizeActivityPub(ctx context.Context, obj *APObject, platformKey, domain string, resolve ActorResolver) (*Post, error) {
	if obj == nil {
		return nil, fmt.Errorf("nil ActivityPub object")
	}

	p := &Post{
		ID:          apObjectID(obj),
		Content:     obj.Content,
		Sensitive:   obj.Sensitive,
		SpoilerText: obj.Summary,
		URL:         obj.URL.String(),
		Platform:    platformKey,
		InReplyToID: obj.InReplyTo.String(),
	}
	if p.URL == "" {
		p.URL = obj.ID
	}
	if p.Content == "" && len(obj.ContentMap) > 0 {
		for lang, content := range obj.ContentMap {
			p.Content = content
			p.Language = lang
			break
		}
	}
	if p.Content == "" && obj.Name != "" {
		p.Content = "<p>" + obj.Name + "</p>"
	}

	if t, ok := parseAPTime(obj.Published); ok {
		p.CreatedAt = t
	}
	if t, ok := parseAPTime(obj.Updated); ok {
		p.UpdatedAt = &t
	}

	if obj.Replies != nil {
		p.RepliesCount = clampCount(obj.Replies.TotalItems)
	}
	if obj.Shares != nil {
		p.ReblogsCount = clampCount(obj.Shares.TotalItems)
	}
	if obj.Likes != nil {
		p.FavouritesCount = clampCount(obj.Likes.TotalItems)
	}

	var contentEmojis []Emoji
	var tags []Tag
	for _, t := range obj.Tag {
		switch t.Type {
		case "Hashtag":
			tags = append(tags, Tag{Type: TagHashtag, Name: t.Name, URL: tagHref(t)})
		case "Mention":
			tags = append(tags, Tag{Type: TagMention, Name: t.Name, URL: tagHref(t)})
		case "Emoji":
			if t.Icon != nil {
				contentEmojis = append(contentEmojis, Emoji{
					Shortcode: strings.Trim(t.Name, ":"),
					URL:       t.Icon.URL.String(),
				})
			}
		}
	}
	p.Tags = NormalizeTags(tags)

	p.Attachments = normalizeAPAttachments(obj.Attachment)

	if poll := normalizeAPQuestion(obj); poll != nil {
		p.Poll = poll
	}

	p.Account = resolveAPAccount(ctx, obj, platformKey, domain, resolve)
	p.Account.Emojis = MergeEmojis(p.Account.Emojis, contentEmojis)

	return p, nil
}

func apObjectID(obj *APObject) string {
	if obj.ID == "" {
		return ""
	}
	// Use the trailing path segment as the short id when the object id is a URL.
	if u, err := url.Parse(obj.ID); err == nil && u.Path != "" {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		if last := segments[len(segments)-1]; last != "" {
			return last
		}
	}
	return obj.ID
}

func tagHref(t APTag) string {
	if t.Href != "" {
		return t.Href
	}
	return t.URL.String()
}

func normalizeAPAttachments(attachments []APAttachment) []Attachment {
	normalized := make([]Attachment, 0, len(attachments))
	for _, att := range attachments {
		fileURL := att.URL.String()
		if fileURL == "" {
			fileURL = att.Href
		}
		if fileURL == "" {
			continue
		}

		declared := ""
		switch {
		case strings.HasPrefix(att.MediaType, "image/gif"):
			declared = AttachmentGifv
		case strings.HasPrefix(att.MediaType, "image/"):
			declared = AttachmentImage
		case strings.HasPrefix(att.MediaType, "video/"):
			declared = AttachmentVideo
		case strings.HasPrefix(att.MediaType, "audio/"):
			declared = AttachmentAudio
		case att.Type == "Image":
			declared = AttachmentImage
		case att.Type == "Video":
			declared = AttachmentVideo
		case att.Type == "Audio":
			declared = AttachmentAudio
		}

		a := Attachment{
			Type:        SniffAttachmentType(declared, fileURL),
			URL:         fileURL,
			Description: att.Name,
			Width:       att.Width,
			Height:      att.Height,
			Blurhash:    att.Blurhash,
		}
		if a.Type == AttachmentVideo {
			a.PreviewURL = DerivePreviewURL(fileURL)
		}
		normalized = append(normalized, a)
	}
	return normalized
}

func normalizeAPQuestion(obj *APObject) *Poll {
	options := obj.OneOf
	multiple := false
	if len(options) == 0 {
		options = obj.AnyOf
		multiple = len(options) > 0
	}
	if len(options) == 0 {
		return nil
	}

	poll := &Poll{Multiple: multiple}
	for _, o := range options {
		opt := PollOption{Title: o.Name}
		if o.Replies != nil {
			opt.VotesCount = clampCount(o.Replies.TotalItems)
		}
		poll.VotesCount += opt.VotesCount
		poll.Options = append(poll.Options, opt)
	}
	if t, ok := parseAPTime(obj.EndTime); ok {
		poll.ExpiresAt = &t
		poll.Expired = time.Now().After(t)
	}
	if obj.Closed != "" {
		poll.Expired = true
	}
	return poll
}

func resolveAPAccount(ctx context.Context, obj *APObject, platformKey, domain string, resolve ActorResolver) Account {
	actorURL := obj.AttributedTo.String()

	var actor *APActor
	if actorURL != "" && resolve != nil {
		if resolved, err := resolve(ctx, actorURL); err == nil {
			actor = resolved
		}
	}

	if actor == nil {
		// Minimal account recovered from the actor URL path (/users/name, /@name).
		username := usernameFromActorURL(actorURL)
		return Account{
			ID:          actorURL,
			Username:    username,
			DisplayName: username,
			URL:         actorURL,
			Acct:        BackfillAcct(username, "", actorURL, domain),
			Platform:    platformKey,
		}
	}

	username := actor.PreferredUsername
	if username == "" {
		username = usernameFromActorURL(actor.ID)
	}

	account := Account{
		ID:          actor.ID,
		Username:    username,
		DisplayName: actor.Name,
		URL:         actor.URL.String(),
		Platform:    platformKey,
	}
	if account.URL == "" {
		account.URL = actor.ID
	}
	if account.DisplayName == "" {
		account.DisplayName = username
	}
	if len(actor.Icon) > 0 {
		account.Avatar = actor.Icon[0].URL.String()
	}
	account.Acct = BackfillAcct(username, "", account.URL, domain)

	for _, t := range actor.Tag {
		if t.Type == "Emoji" && t.Icon != nil {
			account.Emojis = append(account.Emojis, Emoji{
				Shortcode: strings.Trim(t.Name, ":"),
				URL:       t.Icon.URL.String(),
			})
		}
	}

	return account
}

func usernameFromActorURL(actorURL string) string {
	if actorURL == "" {
		return ""
	}
	u, err := url.Parse(actorURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	last := segments[len(segments)-1]
	return strings.TrimPrefix(last, "@")
}
