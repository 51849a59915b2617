package fetch

import (
	"context"

	"github.com/Eyozy/tootpic/app/platform"
	"github.com/Eyozy/tootpic/app/post"
)

// fetchPeerTube retrieves a video object and treats it as a one-attachment
// post.
func (s *Service) fetchPeerTube(ctx context.Context, parsed *platform.ParsedURL) (*post.Post, *Error) {
	endpoint := "/api/v1/videos/" + parsed.ID
	if d, ok := platform.Lookup(parsed.Platform); ok {
		endpoint = d.StatusEndpoint.Expand(parsed.ID)
	}

	data, status, err := s.client.Get(ctx, baseURL(parsed.URL, parsed.Domain)+endpoint, acceptJSON)
	if err != nil {
		return nil, networkError(err)
	}
	if status < 200 || status >= 300 {
		return nil, errorFromStatus(status)
	}

	var video post.PeerTubeVideo
	if perr := decodeJSON(data, &video); perr != nil {
		return nil, perr
	}

	return post.NormalizePeerTube(&video, parsed.Platform, parsed.Domain), nil
}
