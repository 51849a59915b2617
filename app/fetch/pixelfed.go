package fetch

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Eyozy/tootpic/app/platform"
	"github.com/Eyozy/tootpic/app/post"
)

// fetchPixelfed walks the v2 statuses endpoint, then v1, then falls back to
// extracting the ActivityPub object from the rendered HTML page. The HTML
// path additionally mines avatar and video-thumbnail URLs from the markup
// because Pixelfed's federation objects are often incomplete.
func (s *Service) fetchPixelfed(ctx context.Context, parsed *platform.ParsedURL) (*post.Post, *Error) {
	base := baseURL(parsed.URL, parsed.Domain)

	for _, endpoint := range []string{"/api/v2/statuses/", "/api/v1/statuses/"} {
		data, status, err := s.client.Get(ctx, base+endpoint+parsed.ID, acceptJSON)
		if err != nil {
			return nil, networkError(err)
		}
		switch {
		case status >= 200 && status < 300:
			var st post.MastodonStatus
			if perr := decodeJSON(data, &st); perr != nil {
				continue
			}
			return post.NormalizeMastodon(&st, parsed.Platform, parsed.Domain), nil
		case status == http.StatusUnauthorized, status == http.StatusForbidden,
			status == http.StatusTooManyRequests:
			return nil, errorFromStatus(status)
		}
	}

	slog.Debug("Statuses API unavailable, scraping post page", "platform", parsed.Platform, "domain", parsed.Domain)
	return s.fetchPixelfedHTML(ctx, parsed)
}

func (s *Service) fetchPixelfedHTML(ctx context.Context, parsed *platform.ParsedURL) (*post.Post, *Error) {
	obj, doc, ferr := s.fetchAPObject(ctx, stripFragment(parsed.URL))
	if ferr != nil {
		return nil, ferr
	}

	p, err := post.NormalizeActivityPub(ctx, obj, parsed.Platform, parsed.Domain, s.resolveActor)
	if err != nil {
		return nil, newError(CodeParseError, "Failed to normalize the post object: "+err.Error(), "")
	}
	if doc != nil {
		applyScrapedMetadata(p, doc, baseURL(parsed.URL, parsed.Domain))
	}

	return p, nil
}
