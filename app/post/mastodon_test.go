package post

import (
	"encoding/json"
	"testing"
)

const mastodonStatusFixture = `{
	"id": "123456789",
	"created_at": "2024-03-01T12:00:00.000Z",
	"in_reply_to_id": null,
	"sensitive": true,
	"spoiler_text": "cw text",
	"language": "en",
	"uri": "https://mastodon.social/users/alice/statuses/123456789",
	"url": "https://mastodon.social/@alice/123456789",
	"replies_count": 3,
	"reblogs_count": 7,
	"favourites_count": 42,
	"content": "<p>hi :blob:</p>",
	"account": {
		"id": "1",
		"username": "alice",
		"acct": "",
		"display_name": "Alice",
		"url": "https://mastodon.social/@alice",
		"avatar": "https://files.mastodon.social/avatars/alice.png",
		"emojis": [{"shortcode": "blob", "url": "https://x/blob.png"}]
	},
	"media_attachments": [
		{
			"id": "m1",
			"type": "unknown",
			"url": "https://files.mastodon.social/media/clip.mp4",
			"preview_url": "",
			"description": "a clip",
			"blurhash": "LEHV6n",
			"meta": {"original": {"width": 1280, "height": 720}}
		},
		{
			"id": "m2",
			"type": "image",
			"url": "https://files.mastodon.social/media/pic.png",
			"preview_url": "https://files.mastodon.social/media/pic_small.png"
		}
	],
	"mentions": [{"id": "2", "username": "bob", "acct": "bob@other.example", "url": "https://other.example/@bob"}],
	"tags": [{"name": "golang", "url": "https://mastodon.social/tags/golang"}],
	"emojis": [{"shortcode": "blob", "url": "https://x/blob.png"}],
	"poll": {
		"id": "p1",
		"expired": false,
		"multiple": false,
		"votes_count": 10,
		"options": [
			{"title": "yes", "votes_count": 6},
			{"title": "no", "votes_count": 4}
		]
	}
}`

func TestNormalizeMastodon(t *testing.T) {
	var status MastodonStatus
	if err := json.Unmarshal([]byte(mastodonStatusFixture), &status); err != nil {
		t.Fatal(err)
	}

	p := NormalizeMastodon(&status, "mastodon", "mastodon.social")

	if p.ID != "123456789" {
		t.Errorf("Expected id '123456789', got %q", p.ID)
	}
	if p.Platform != "mastodon" {
		t.Errorf("Expected platform 'mastodon', got %q", p.Platform)
	}
	if p.Content != "<p>hi :blob:</p>" {
		t.Errorf("Unexpected content: %q", p.Content)
	}
	if !p.Sensitive || p.SpoilerText != "cw text" {
		t.Errorf("Expected sensitive post with CW, got sensitive=%v spoiler=%q", p.Sensitive, p.SpoilerText)
	}
	if p.RepliesCount != 3 || p.ReblogsCount != 7 || p.FavouritesCount != 42 {
		t.Errorf("Unexpected counts: %d/%d/%d", p.RepliesCount, p.ReblogsCount, p.FavouritesCount)
	}
	if p.Language != "en" {
		t.Errorf("Expected language 'en', got %q", p.Language)
	}
}

func TestNormalizeMastodonEmojiMerge(t *testing.T) {
	var status MastodonStatus
	if err := json.Unmarshal([]byte(mastodonStatusFixture), &status); err != nil {
		t.Fatal(err)
	}

	p := NormalizeMastodon(&status, "mastodon", "mastodon.social")

	// "blob" appears in both the account and content emoji lists; duplicates
	// collapse to one entry.
	if len(p.Account.Emojis) != 1 {
		t.Fatalf("Expected exactly 1 emoji, got %d: %+v", len(p.Account.Emojis), p.Account.Emojis)
	}
	if p.Account.Emojis[0].Shortcode != "blob" {
		t.Errorf("Expected shortcode 'blob', got %q", p.Account.Emojis[0].Shortcode)
	}
}

func TestNormalizeMastodonAcctBackfill(t *testing.T) {
	var status MastodonStatus
	if err := json.Unmarshal([]byte(mastodonStatusFixture), &status); err != nil {
		t.Fatal(err)
	}

	p := NormalizeMastodon(&status, "mastodon", "fallback.example")

	// acct is empty upstream; the domain comes from the profile URL host.
	if p.Account.Acct != "alice@mastodon.social" {
		t.Errorf("Expected acct 'alice@mastodon.social', got %q", p.Account.Acct)
	}

	// Without a profile URL the request domain is used.
	status.Account.URL = ""
	p = NormalizeMastodon(&status, "mastodon", "fallback.example")
	if p.Account.Acct != "alice@fallback.example" {
		t.Errorf("Expected acct 'alice@fallback.example', got %q", p.Account.Acct)
	}
}

func TestNormalizeMastodonAttachments(t *testing.T) {
	var status MastodonStatus
	if err := json.Unmarshal([]byte(mastodonStatusFixture), &status); err != nil {
		t.Fatal(err)
	}

	p := NormalizeMastodon(&status, "mastodon", "mastodon.social")

	if len(p.Attachments) != 2 {
		t.Fatalf("Expected 2 attachments, got %d", len(p.Attachments))
	}

	clip := p.Attachments[0]
	if clip.Type != AttachmentVideo {
		t.Errorf("Expected 'unknown' type to be sniffed as video, got %q", clip.Type)
	}
	if clip.PreviewURL != "https://files.mastodon.social/media/clip_thumb.jpeg" {
		t.Errorf("Expected derived preview URL, got %q", clip.PreviewURL)
	}
	if clip.Width != 1280 || clip.Height != 720 {
		t.Errorf("Expected 1280x720, got %dx%d", clip.Width, clip.Height)
	}

	pic := p.Attachments[1]
	if pic.Type != AttachmentImage {
		t.Errorf("Expected image, got %q", pic.Type)
	}
	if pic.PreviewURL != "https://files.mastodon.social/media/pic_small.png" {
		t.Errorf("Expected upstream preview to be kept, got %q", pic.PreviewURL)
	}
}

func TestNormalizeMastodonTagsAndPoll(t *testing.T) {
	var status MastodonStatus
	if err := json.Unmarshal([]byte(mastodonStatusFixture), &status); err != nil {
		t.Fatal(err)
	}

	p := NormalizeMastodon(&status, "mastodon", "mastodon.social")

	if len(p.Tags) != 2 {
		t.Fatalf("Expected 2 tags, got %d", len(p.Tags))
	}
	if p.Tags[0].Type != TagHashtag || p.Tags[0].Name != "#golang" {
		t.Errorf("Unexpected hashtag: %+v", p.Tags[0])
	}
	if p.Tags[1].Type != TagMention || p.Tags[1].Name != "@bob@other.example" {
		t.Errorf("Unexpected mention: %+v", p.Tags[1])
	}

	if p.Poll == nil {
		t.Fatal("Expected poll")
	}
	if p.Poll.VotesCount != 10 || len(p.Poll.Options) != 2 {
		t.Errorf("Unexpected poll: %+v", p.Poll)
	}
	if p.Poll.Options[0].Title != "yes" || p.Poll.Options[0].VotesCount != 6 {
		t.Errorf("Unexpected first option: %+v", p.Poll.Options[0])
	}
}

func TestNormalizeMastodonNegativeCounts(t *testing.T) {
	status := &MastodonStatus{
		ID:              "1",
		RepliesCount:    -1,
		ReblogsCount:    -5,
		FavouritesCount: -3,
		Account:         MastodonAccount{Username: "alice"},
	}

	p := NormalizeMastodon(status, "mastodon", "example.org")

	if p.RepliesCount != 0 || p.ReblogsCount != 0 || p.FavouritesCount != 0 {
		t.Errorf("Expected negative counts clamped to 0, got %d/%d/%d",
			p.RepliesCount, p.ReblogsCount, p.FavouritesCount)
	}
}
