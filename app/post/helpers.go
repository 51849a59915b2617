package post

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Extensions treated as video when a declared attachment type is ambiguous.
var videoExtensions = []string{".mp4", ".webm", ".mov", ".m4v", ".ogv", ".avi", ".mkv"}

var audioExtensions = []string{".mp3", ".ogg", ".oga", ".opus", ".flac", ".wav", ".m4a", ".aac"}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".avif", ".heic", ".svg"}

var shortcodeRe = regexp.MustCompile(`:([a-zA-Z0-9_+-]+):`)

// SniffAttachmentType maps a platform-declared attachment type onto the
// canonical set. Ambiguous declarations ("document", "unknown", empty) are
// resolved by sniffing the URL file extension.
func SniffAttachmentType(declared, fileURL string) string {
	switch declared {
	case AttachmentImage, AttachmentVideo, AttachmentAudio, AttachmentGifv:
		return declared
	}

	ext := strings.ToLower(path.Ext(stripQuery(fileURL)))
	for _, e := range videoExtensions {
		if ext == e {
			return AttachmentVideo
		}
	}
	for _, e := range audioExtensions {
		if ext == e {
			return AttachmentAudio
		}
	}
	for _, e := range imageExtensions {
		if ext == e {
			return AttachmentImage
		}
	}

	return AttachmentDocument
}

// DerivePreviewURL guesses a thumbnail URL for a video attachment by
// substituting the video extension with a _thumb variant. This follows one
// platform's storage convention and is not guaranteed to resolve; callers
// treat a dead derived URL as a normal outcome.
func DerivePreviewURL(fileURL string) string {
	clean := stripQuery(fileURL)
	ext := strings.ToLower(path.Ext(clean))
	for _, e := range videoExtensions {
		if ext == e {
			return clean[:len(clean)-len(ext)] + "_thumb.jpeg"
		}
	}
	return ""
}

// MergeEmojis combines account-level and content-level emoji lists,
// de-duplicating by shortcode and keeping the first occurrence.
func MergeEmojis(lists ...[]Emoji) []Emoji {
	seen := make(map[string]bool)
	var merged []Emoji
	for _, list := range lists {
		for _, e := range list {
			if e.Shortcode == "" || seen[e.Shortcode] {
				continue
			}
			seen[e.Shortcode] = true
			merged = append(merged, e)
		}
	}
	return merged
}

// NormalizeTags ensures hashtag names carry a leading # and drops tags that
// have neither a name nor a URL.
func NormalizeTags(tags []Tag) []Tag {
	normalized := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if t.Name == "" && t.URL == "" {
			continue
		}
		if t.Type == TagHashtag && t.Name != "" && !strings.HasPrefix(t.Name, "#") {
			t.Name = "#" + t.Name
		}
		normalized = append(normalized, t)
	}
	return normalized
}

// BackfillAcct produces a username@domain handle. When the upstream acct
// already carries a domain it is used as-is; otherwise the domain is taken
// from the profile URL host, falling back to the resolved request domain.
func BackfillAcct(username, acct, profileURL, domain string) string {
	if strings.Contains(acct, "@") {
		return acct
	}
	if username == "" {
		username = acct
	}
	if username == "" {
		return ""
	}

	host := ""
	if profileURL != "" {
		if u, err := url.Parse(profileURL); err == nil {
			host = u.Hostname()
		}
	}
	if host == "" {
		host = stripPort(domain)
	}
	if host == "" {
		return username
	}

	return username + "@" + host
}

// ScanShortcodes extracts :code: emoji shortcodes from the given texts,
// de-duplicated, in order of first occurrence.
func ScanShortcodes(texts ...string) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, text := range texts {
		for _, m := range shortcodeRe.FindAllStringSubmatch(text, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				codes = append(codes, m[1])
			}
		}
	}
	return codes
}

func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func stripQuery(s string) string {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		return s[:i]
	}
	return s
}

func stripPort(host string) string {
	if i := strings.IndexByte(host, ':'); i >= 0 {
		return host[:i]
	}
	return host
}

// absoluteURL resolves a possibly relative path against a domain.
func absoluteURL(domain, p string) string {
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return "https://" + domain + p
}
