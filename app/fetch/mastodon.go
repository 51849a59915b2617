package fetch

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Eyozy/tootpic/app/platform"
	"github.com/Eyozy/tootpic/app/post"
)

// fetchMastodon serves Mastodon and Pleroma URLs through the public statuses
// API. Recognized failure statuses are mapped immediately; anything else
// falls through to the generic ActivityPub resolver as a second attempt.
func (s *Service) fetchMastodon(ctx context.Context, parsed *platform.ParsedURL) (*post.Post, *Error) {
	endpoint := "/api/v1/statuses/" + parsed.ID
	if d, ok := platform.Lookup(parsed.Platform); ok {
		endpoint = d.StatusEndpoint.Expand(parsed.ID)
	}

	data, status, err := s.client.Get(ctx, baseURL(parsed.URL, parsed.Domain)+endpoint, acceptJSON)
	if err != nil {
		return nil, networkError(err)
	}

	switch {
	case status >= 200 && status < 300:
		var st post.MastodonStatus
		if perr := decodeJSON(data, &st); perr != nil {
			return nil, perr
		}
		return post.NormalizeMastodon(&st, parsed.Platform, parsed.Domain), nil
	case status == http.StatusNotFound, status == http.StatusGone,
		status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusTooManyRequests:
		return nil, errorFromStatus(status)
	default:
		slog.Debug("Statuses API failed, trying ActivityPub", "platform", parsed.Platform, "domain", parsed.Domain, "status", status)
		return s.fetchGeneric(ctx, parsed)
	}
}
