package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Eyozy/tootpic/app/cache"
	"github.com/Eyozy/tootpic/app/platform"
)

const mastodonStatusBody = `{
	"id": "123456789",
	"content": "<p>hello fediverse</p>",
	"created_at": "2024-01-15T10:00:00.000Z",
	"url": "https://mastodon.example/@alice/123456789",
	"replies_count": 1,
	"reblogs_count": 2,
	"favourites_count": 3,
	"account": {
		"id": "1",
		"username": "alice",
		"acct": "alice",
		"display_name": "Alice",
		"url": "https://mastodon.example/@alice",
		"avatar": "https://mastodon.example/avatars/alice.png"
	}
}`

// recordingHandler wraps a handler and records every request path.
type recordingHandler struct {
	mu      sync.Mutex
	paths   []string
	handler http.HandlerFunc
}

func (h *recordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.paths = append(h.paths, r.URL.Path)
	h.mu.Unlock()
	h.handler(w, r)
}

func (h *recordingHandler) requests() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.paths...)
}

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()

	c, err := cache.New(100, ttl, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)

	client := NewClient("tootpic-test/1.0", 5*time.Second)
	return NewService(client, c, platform.NewDenylist())
}

func TestFetchPostInvalidURL(t *testing.T) {
	s := newTestService(t, time.Hour)

	for _, raw := range []string{"", "not a url", "ftp://example.org/x", "https://"} {
		result := s.FetchPost(context.Background(), raw)
		if result.Success {
			t.Errorf("Expected failure for %q", raw)
		}
		if result.ErrorCode != CodeInvalidURL {
			t.Errorf("Expected INVALID_URL for %q, got %s", raw, result.ErrorCode)
		}
	}
}

func TestFetchPostDeniedDomain(t *testing.T) {
	s := newTestService(t, time.Hour)

	result := s.FetchPost(context.Background(), "https://twitter.com/user/status/123")
	if result.Success {
		t.Fatal("Expected failure for a denied domain")
	}
	if result.ErrorCode != CodeUnsupportedPlatform {
		t.Errorf("Expected UNSUPPORTED_PLATFORM, got %s", result.ErrorCode)
	}
}

func TestFetchPostUnmatchedURL(t *testing.T) {
	s := newTestService(t, time.Hour)

	result := s.FetchPost(context.Background(), "https://example.com/totally/unrelated/path")
	if result.Success {
		t.Fatal("Expected failure for an unmatched URL")
	}
	if result.ErrorCode != CodeUnsupportedPlatform {
		t.Errorf("Expected UNSUPPORTED_PLATFORM, got %s", result.ErrorCode)
	}
}

func TestFetchPostMastodon(t *testing.T) {
	h := &recordingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/statuses/123456789" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mastodonStatusBody))
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	s := newTestService(t, time.Hour)
	result := s.FetchPost(context.Background(), srv.URL+"/@alice/123456789")

	if !result.Success {
		t.Fatalf("Expected success, got %s: %s", result.ErrorCode, result.Error)
	}
	if result.Platform != platform.Mastodon {
		t.Errorf("Unexpected platform: %q", result.Platform)
	}
	if result.Data.ID != "123456789" {
		t.Errorf("Unexpected post id: %q", result.Data.ID)
	}
	if result.Data.Account.Acct == "" || !strings.Contains(result.Data.Account.Acct, "@") {
		t.Errorf("Expected a backfilled acct, got %q", result.Data.Account.Acct)
	}
}

func TestFetchPostIdempotentWithinTTL(t *testing.T) {
	h := &recordingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mastodonStatusBody))
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	s := newTestService(t, time.Hour)
	url := srv.URL + "/@alice/123456789"

	first := s.FetchPost(context.Background(), url)
	second := s.FetchPost(context.Background(), url)

	if !first.Success || !second.Success {
		t.Fatal("Expected both calls to succeed")
	}
	if got := len(h.requests()); got != 1 {
		t.Errorf("Expected exactly 1 outbound request, got %d", got)
	}
	if first.Data != second.Data {
		t.Error("Expected the second call to return the cached post")
	}
}

func TestFetchPostRefetchesAfterExpiry(t *testing.T) {
	h := &recordingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mastodonStatusBody))
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	s := newTestService(t, time.Nanosecond)
	url := srv.URL + "/@alice/123456789"

	s.FetchPost(context.Background(), url)
	time.Sleep(5 * time.Millisecond)
	s.FetchPost(context.Background(), url)

	if got := len(h.requests()); got != 2 {
		t.Errorf("Expected a refetch after expiry, got %d requests", got)
	}
}

func TestFetchPostFailuresAreNotCached(t *testing.T) {
	h := &recordingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	s := newTestService(t, time.Hour)
	url := srv.URL + "/@alice/123456789"

	first := s.FetchPost(context.Background(), url)
	if first.Success || first.ErrorCode != CodeNotFound {
		t.Fatalf("Expected NOT_FOUND, got %+v", first)
	}

	s.FetchPost(context.Background(), url)
	if got := len(h.requests()); got != 2 {
		t.Errorf("Expected the failure to be retried, got %d requests", got)
	}
}

func TestFetchPostStatusMapping(t *testing.T) {
	tests := []struct {
		status   int
		expected Code
	}{
		{http.StatusNotFound, CodeNotFound},
		{http.StatusUnauthorized, CodePrivatePost},
		{http.StatusForbidden, CodePrivatePost},
		{http.StatusTooManyRequests, CodeRateLimited},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		s := newTestService(t, time.Hour)
		result := s.FetchPost(context.Background(), srv.URL+"/@alice/123456789")
		srv.Close()

		if result.Success {
			t.Errorf("Status %d: expected failure", tt.status)
			continue
		}
		if result.ErrorCode != tt.expected {
			t.Errorf("Status %d: expected %s, got %s", tt.status, tt.expected, result.ErrorCode)
		}
		if result.Platform != platform.Mastodon {
			t.Errorf("Status %d: expected the platform on the error, got %q", tt.status, result.Platform)
		}
	}
}

// A Pleroma URL whose statuses API is broken must be retried over
// ActivityPub before any error surfaces.
func TestFetchPostFallsBackToActivityPub(t *testing.T) {
	var srvURL string
	h := &recordingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/statuses/abc123":
			w.WriteHeader(http.StatusInternalServerError)
		case "/notice/abc123":
			if !strings.Contains(r.Header.Get("Accept"), "application/activity+json") {
				w.WriteHeader(http.StatusNotAcceptable)
				return
			}
			w.Header().Set("Content-Type", "application/activity+json")
			w.Write([]byte(`{
				"id": "` + srvURL + `/objects/uuid-1",
				"type": "Note",
				"content": "<p>from activitypub</p>",
				"published": "2024-02-01T00:00:00Z",
				"attributedTo": "` + srvURL + `/users/alice"
			}`))
		case "/users/alice":
			w.Header().Set("Content-Type", "application/activity+json")
			w.Write([]byte(`{"id": "` + srvURL + `/users/alice", "type": "Person", "preferredUsername": "alice", "name": "Alice"}`))
		default:
			http.NotFound(w, r)
		}
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()
	srvURL = srv.URL

	s := newTestService(t, time.Hour)
	result := s.FetchPost(context.Background(), srv.URL+"/notice/abc123")

	if !result.Success {
		t.Fatalf("Expected the ActivityPub fallback to succeed, got %s: %s", result.ErrorCode, result.Error)
	}
	if result.Platform != platform.Pleroma {
		t.Errorf("Unexpected platform: %q", result.Platform)
	}
	if result.Data.Content != "<p>from activitypub</p>" {
		t.Errorf("Unexpected content: %q", result.Data.Content)
	}
	if result.Data.Account.Username != "alice" {
		t.Errorf("Expected the actor round trip to populate the account, got %q", result.Data.Account.Username)
	}

	paths := h.requests()
	if len(paths) < 2 || paths[0] != "/api/v1/statuses/abc123" || paths[1] != "/notice/abc123" {
		t.Errorf("Expected the statuses API attempt before the ActivityPub fetch, got %v", paths)
	}
}

func TestFetchPostMisskey(t *testing.T) {
	h := &recordingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/notes/show":
			w.Write([]byte(`{
				"id": "9abcdef",
				"createdAt": "2024-03-01T00:00:00.000Z",
				"text": "hello :wave:",
				"user": {"id": "u1", "username": "bob", "name": "Bob"},
				"reactions": {"👍": 2}
			}`))
		case "/api/emojis":
			w.Write([]byte(`{"emojis": [{"name": "wave", "url": "https://misskey.example/emoji/wave.png"}]}`))
		default:
			http.NotFound(w, r)
		}
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	s := newTestService(t, time.Hour)
	result := s.FetchPost(context.Background(), srv.URL+"/notes/9abcdef")

	if !result.Success {
		t.Fatalf("Expected success, got %s: %s", result.ErrorCode, result.Error)
	}
	if result.Platform != platform.Misskey {
		t.Errorf("Unexpected platform: %q", result.Platform)
	}
	if result.Data.FavouritesCount != 2 {
		t.Errorf("Expected summed reactions, got %d", result.Data.FavouritesCount)
	}

	paths := h.requests()
	if len(paths) != 2 || paths[0] != "/api/notes/show" || paths[1] != "/api/emojis" {
		t.Errorf("Expected the note fetch followed by the emoji directory, got %v", paths)
	}
}

func TestFetchPostPixelfedFallsBackToHTML(t *testing.T) {
	page := `<html><head><script type="application/ld+json">{
		"type": "Note",
		"content": "<p>scraped</p>",
		"published": "2024-04-01T00:00:00Z"
	}</script></head><body><img class="avatar" src="https://pix.example/a.png"></body></html>`

	h := &recordingHandler{handler: func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		if strings.Contains(r.Header.Get("Accept"), "application/activity+json") {
			w.WriteHeader(http.StatusNotAcceptable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}}
	srv := httptest.NewServer(h)
	defer srv.Close()

	s := newTestService(t, time.Hour)
	result := s.FetchPost(context.Background(), srv.URL+"/p/alice/581234")

	if !result.Success {
		t.Fatalf("Expected the HTML fallback to succeed, got %s: %s", result.ErrorCode, result.Error)
	}
	if result.Data.Content != "<p>scraped</p>" {
		t.Errorf("Unexpected content: %q", result.Data.Content)
	}
	if result.Data.Account.Avatar != "https://pix.example/a.png" {
		t.Errorf("Expected the scraped avatar, got %q", result.Data.Account.Avatar)
	}

	paths := h.requests()
	if len(paths) < 3 || paths[0] != "/api/v2/statuses/581234" || paths[1] != "/api/v1/statuses/581234" {
		t.Errorf("Expected v2 then v1 before the HTML fallback, got %v", paths)
	}
}

func TestFetchPostPeerTube(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/videos/9c9de5e8-0a1e-484a-b099-e80766180a6d" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"uuid": "9c9de5e8-0a1e-484a-b099-e80766180a6d",
			"name": "clip",
			"publishedAt": "2024-05-01T00:00:00.000Z",
			"account": {"name": "carol", "host": "tube.example"}
		}`))
	}))
	defer srv.Close()

	s := newTestService(t, time.Hour)
	result := s.FetchPost(context.Background(), srv.URL+"/videos/watch/9c9de5e8-0a1e-484a-b099-e80766180a6d")

	if !result.Success {
		t.Fatalf("Expected success, got %s: %s", result.ErrorCode, result.Error)
	}
	if result.Platform != platform.PeerTube {
		t.Errorf("Unexpected platform: %q", result.Platform)
	}
	if len(result.Data.Attachments) != 1 || result.Data.Attachments[0].Type != "video" {
		t.Errorf("Expected one video attachment, got %+v", result.Data.Attachments)
	}
}
