package fetch

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Eyozy/tootpic/app/post"
)

// HTML scraping fallbacks. Platforms that under-populate federation metadata
// (or refuse ActivityPub content negotiation) still render the post into
// their HTML pages; these heuristics recover what the API path could not.
// Each is a named function over a parsed document so it can be tested
// against fixed fixtures and disabled independently when an instance's
// markup changes.

func parseHTML(data []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(data))
}

// extractJSONLD pulls an ActivityPub post object out of an embedded JSON-LD
// or activity+json script block.
func extractJSONLD(doc *goquery.Document) (*post.APObject, bool) {
	var found *post.APObject

	doc.Find(`script[type="application/ld+json"], script[type="application/activity+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var obj post.APObject
		if err := json.Unmarshal([]byte(sel.Text()), &obj); err != nil {
			return true
		}
		if !post.IsAPPostType(obj.Type) && obj.Type != "Create" {
			return true
		}
		found = &obj
		return false
	})

	return found, found != nil
}

// avatarSelectors is tried in order; the first hit wins.
var avatarSelectors = []string{
	`img.avatar`,
	`.avatar img`,
	`img[class*="avatar"]`,
	`.profile-avatar img`,
	`a[class*="avatar"] img`,
}

// scrapeAvatar recovers the author avatar URL from profile markup.
func scrapeAvatar(doc *goquery.Document) (string, bool) {
	for _, selector := range avatarSelectors {
		if src, ok := doc.Find(selector).First().Attr("src"); ok && src != "" {
			return src, true
		}
	}
	return "", false
}

// scrapeVideoPoster recovers a video thumbnail from a poster attribute or
// the page's og:image.
func scrapeVideoPoster(doc *goquery.Document) (string, bool) {
	if poster, ok := doc.Find("video[poster]").First().Attr("poster"); ok && poster != "" {
		return poster, true
	}
	if img, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && img != "" {
		return img, true
	}
	return "", false
}

var hashtagToken = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// scrapeHashtags mines hashtags from tag-class anchors, /tags/ links and
// plain #word tokens in the post body.
func scrapeHashtags(doc *goquery.Document, base string) []post.Tag {
	seen := map[string]bool{}
	var tags []post.Tag

	add := func(name, href string) {
		name = strings.TrimPrefix(strings.TrimSpace(name), "#")
		if name == "" || seen[strings.ToLower(name)] {
			return
		}
		seen[strings.ToLower(name)] = true
		if href == "" {
			href = base + "/tags/" + name
		}
		tags = append(tags, post.Tag{Type: post.TagHashtag, Name: "#" + name, URL: href})
	}

	doc.Find(`a[class*="hashtag"], a[href*="/tags/"], a[rel="tag"]`).Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		add(sel.Text(), href)
	})

	doc.Find(`.status__content, .post-content, article, .e-content`).Each(func(_ int, sel *goquery.Selection) {
		for _, m := range hashtagToken.FindAllStringSubmatch(sel.Text(), -1) {
			add(m[1], "")
		}
	})

	return tags
}

// scrapeMediaLinks mines inline anchors pointing straight at media files.
func scrapeMediaLinks(doc *goquery.Document) []post.Attachment {
	var attachments []post.Attachment
	seen := map[string]bool{}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || seen[href] {
			return
		}
		kind := post.SniffAttachmentType("", href)
		if kind == post.AttachmentDocument {
			return
		}
		seen[href] = true
		attachments = append(attachments, post.Attachment{
			Type:        kind,
			URL:         href,
			Description: strings.TrimSpace(sel.Text()),
		})
	})

	return attachments
}

// scrapeEmbeds mines iframe embeds as video attachments.
func scrapeEmbeds(doc *goquery.Document) []post.Attachment {
	var attachments []post.Attachment

	doc.Find("iframe[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if src == "" {
			return
		}
		title, _ := sel.Attr("title")
		attachments = append(attachments, post.Attachment{
			Type:        post.AttachmentVideo,
			URL:         src,
			Description: title,
		})
	})

	return attachments
}

// applyScrapedMetadata merges HTML-mined tags and attachments into an
// already normalized post without overwriting anything the API provided.
func applyScrapedMetadata(p *post.Post, doc *goquery.Document, base string) {
	if p.Account.Avatar == "" {
		if avatar, ok := scrapeAvatar(doc); ok {
			p.Account.Avatar = avatar
		}
	}

	existing := map[string]bool{}
	for _, t := range p.Tags {
		existing[strings.ToLower(t.Name)] = true
	}
	for _, t := range scrapeHashtags(doc, base) {
		if !existing[strings.ToLower(t.Name)] {
			p.Tags = append(p.Tags, t)
		}
	}

	if len(p.Attachments) == 0 {
		p.Attachments = append(p.Attachments, scrapeMediaLinks(doc)...)
		p.Attachments = append(p.Attachments, scrapeEmbeds(doc)...)
	}

	for i := range p.Attachments {
		if p.Attachments[i].Type == post.AttachmentVideo && p.Attachments[i].PreviewURL == "" {
			if poster, ok := scrapeVideoPoster(doc); ok {
				p.Attachments[i].PreviewURL = poster
			}
		}
	}
}
