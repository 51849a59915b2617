package post

import (
	"strconv"
	"time"
)

// PeerTube REST wire format (/api/v1/videos/{id}). A video is treated as a
// one-attachment post.

type PeerTubeVideo struct {
	ID            int               `json:"id"`
	UUID          string            `json:"uuid"`
	ShortUUID     string            `json:"shortUUID"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	URL           string            `json:"url"`
	PublishedAt   time.Time         `json:"publishedAt"`
	UpdatedAt     *time.Time        `json:"updatedAt"`
	ThumbnailPath string            `json:"thumbnailPath"`
	PreviewPath   string            `json:"previewPath"`
	EmbedPath     string            `json:"embedPath"`
	Views         int               `json:"views"`
	Likes         int               `json:"likes"`
	Comments      int               `json:"comments"`
	NSFW          bool              `json:"nsfw"`
	Language      *PeerTubeLabelled `json:"language"`
	Account       PeerTubeActor     `json:"account"`
	Channel       PeerTubeActor     `json:"channel"`
	Files         []PeerTubeFile    `json:"files"`
}

type PeerTubeLabelled struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

type PeerTubeActor struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"displayName"`
	URL         string           `json:"url"`
	Host        string           `json:"host"`
	Avatar      *PeerTubeAvatar  `json:"avatar"`
	Avatars     []PeerTubeAvatar `json:"avatars"`
}

type PeerTubeAvatar struct {
	Path string `json:"path"`
}

type PeerTubeFile struct {
	FileURL    string            `json:"fileUrl"`
	Resolution *PeerTubeLabelled `json:"resolution"`
}

// NormalizePeerTube converts a PeerTube video into the canonical post model.
func NormalizePeerTube(v *PeerTubeVideo, platformKey, domain string) *Post {
	watchURL := v.URL
	if watchURL == "" {
		watchURL = absoluteURL(domain, "/videos/watch/"+v.UUID)
	}

	p := &Post{
		ID:              videoID(v),
		Content:         peertubeContent(v),
		CreatedAt:       v.PublishedAt,
		UpdatedAt:       v.UpdatedAt,
		RepliesCount:    clampCount(v.Comments),
		FavouritesCount: clampCount(v.Likes),
		Sensitive:       v.NSFW,
		URL:             watchURL,
		Platform:        platformKey,
	}
	if v.Language != nil {
		p.Language = v.Language.ID
	}

	fileURL := watchURL
	if len(v.Files) > 0 && v.Files[0].FileURL != "" {
		fileURL = v.Files[0].FileURL
	}
	preview := v.PreviewPath
	if preview == "" {
		preview = v.ThumbnailPath
	}
	p.Attachments = []Attachment{{
		Type:        AttachmentVideo,
		URL:         fileURL,
		PreviewURL:  absoluteURL(domain, preview),
		Description: v.Name,
	}}

	p.Account = normalizePeerTubeAccount(v, platformKey, domain)

	return p
}

func videoID(v *PeerTubeVideo) string {
	if v.UUID != "" {
		return v.UUID
	}
	if v.ShortUUID != "" {
		return v.ShortUUID
	}
	return strconv.Itoa(v.ID)
}

func peertubeContent(v *PeerTubeVideo) string {
	content := "<p>" + v.Name + "</p>"
	if v.Description != "" {
		content += "<p>" + v.Description + "</p>"
	}
	return content
}

func normalizePeerTubeAccount(v *PeerTubeVideo, platformKey, domain string) Account {
	account := Account{
		ID:          v.Account.URL,
		Username:    v.Account.Name,
		DisplayName: v.Account.DisplayName,
		URL:         v.Account.URL,
		Platform:    platformKey,
		Avatar:      peertubeAvatar(v, domain),
	}
	if account.DisplayName == "" {
		account.DisplayName = v.Account.Name
	}

	host := v.Account.Host
	if host == "" {
		host = stripPort(domain)
	}
	if account.Username != "" {
		account.Acct = account.Username + "@" + host
	}
	if account.URL == "" {
		account.URL = "https://" + host + "/accounts/" + v.Account.Name
	}

	return account
}

// peertubeAvatar tries the four known avatar locations in order before
// giving up: account.avatar, account.avatars[0], channel.avatar,
// channel.avatars[0].
func peertubeAvatar(v *PeerTubeVideo, domain string) string {
	if v.Account.Avatar != nil && v.Account.Avatar.Path != "" {
		return absoluteURL(domain, v.Account.Avatar.Path)
	}
	if len(v.Account.Avatars) > 0 && v.Account.Avatars[0].Path != "" {
		return absoluteURL(domain, v.Account.Avatars[0].Path)
	}
	if v.Channel.Avatar != nil && v.Channel.Avatar.Path != "" {
		return absoluteURL(domain, v.Channel.Avatar.Path)
	}
	if len(v.Channel.Avatars) > 0 && v.Channel.Avatars[0].Path != "" {
		return absoluteURL(domain, v.Channel.Avatars[0].Path)
	}
	return ""
}
