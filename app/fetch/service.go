package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/Eyozy/tootpic/app/cache"
	"github.com/Eyozy/tootpic/app/platform"
	"github.com/Eyozy/tootpic/app/post"
)

// Result is the pipeline's boundary type, consumed by the HTTP layer.
type Result struct {
	Success    bool       `json:"success"`
	Data       *post.Post `json:"data,omitempty"`
	Platform   string     `json:"platform,omitempty"`
	Error      string     `json:"error,omitempty"`
	ErrorCode  Code       `json:"error_code,omitempty"`
	Suggestion string     `json:"suggestion,omitempty"`
}

type strategyFunc func(ctx context.Context, parsed *platform.ParsedURL) (*post.Post, *Error)

// Service runs the pipeline: validate, deny-list, cache lookup, match,
// dispatch, normalize, cache write. Every failure mode comes back as a
// Result carrying a taxonomy code; nothing escapes this boundary.
type Service struct {
	client     *Client
	cache      *cache.Cache
	denylist   *platform.Denylist
	strategies map[string]strategyFunc
}

func NewService(client *Client, c *cache.Cache, denylist *platform.Denylist) *Service {
	s := &Service{
		client:   client,
		cache:    c,
		denylist: denylist,
	}

	s.strategies = map[string]strategyFunc{
		platform.Mastodon:   s.fetchMastodon,
		platform.Pleroma:    s.fetchMastodon,
		platform.Pixelfed:   s.fetchPixelfed,
		platform.Misskey:    s.fetchMisskey,
		platform.PeerTube:   s.fetchPeerTube,
		platform.GoToSocial: s.fetchGeneric,
		platform.Generic:    s.fetchGeneric,
	}

	return s
}

// FetchPost converts a post URL into a canonical post. Successful results
// are cached by input URL; failures never are, so transient outages are
// retried on the next request.
func (s *Service) FetchPost(ctx context.Context, rawURL string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			slog.Error("Fetch panicked", "url", rawURL, "error", err)
			result = failure(classified(err, ""))
		}
	}()

	start := time.Now()

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return failure(newError(CodeInvalidURL, "Not a valid post URL", "Provide a full URL including https://"))
	}

	if s.denylist.Denied(u.Host) {
		return failure(newError(CodeUnsupportedPlatform, fmt.Sprintf("%s is not a Fediverse platform", u.Hostname()), "Only Fediverse posts (Mastodon, Pixelfed, Misskey, PeerTube, ...) are supported"))
	}

	if cached, ok := s.cache.Get(rawURL); ok {
		slog.Debug("Cache hit", "url", rawURL)
		return success(cached)
	}

	parsed, ok := platform.Match(rawURL)
	if !ok {
		return failure(newError(CodeUnsupportedPlatform, "Could not recognize this URL as a Fediverse post", "Check the URL or try the post's original (non-proxied) address"))
	}

	strategy, ok := s.strategies[parsed.Platform]
	if !ok {
		strategy = s.fetchGeneric
	}

	p, ferr := strategy(ctx, parsed)
	if ferr != nil {
		if ferr.Platform == "" {
			ferr.Platform = parsed.Platform
		}
		slog.Warn("Fetch failed", "url", rawURL, "platform", parsed.Platform, "code", ferr.Code, "error", ferr.Message)
		return failure(ferr)
	}

	s.cache.Set(rawURL, p)
	slog.Info("Fetched post", "platform", parsed.Platform, "domain", parsed.Domain, "duration", time.Since(start).Round(time.Millisecond))

	return success(p)
}

// CacheStats exposes cache counters to the admin surface.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// PurgeCache drops every cached post and reports how many were removed.
func (s *Service) PurgeCache() int {
	return s.cache.Purge()
}

func success(p *post.Post) Result {
	return Result{Success: true, Data: p, Platform: p.Platform}
}

func failure(e *Error) Result {
	return Result{
		Success:    false,
		Error:      e.Message,
		ErrorCode:  e.Code,
		Suggestion: e.Suggestion,
		Platform:   e.Platform,
	}
}
