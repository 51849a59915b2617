package fetch

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Eyozy/tootpic/app/platform"
	"github.com/Eyozy/tootpic/app/post"
)

// fetchMisskey uses the POST-based RPC API. Note responses do not embed
// emoji URLs, so a second call retrieves the instance emoji directory; that
// call failing only costs emoji resolution, never the post.
func (s *Service) fetchMisskey(ctx context.Context, parsed *platform.ParsedURL) (*post.Post, *Error) {
	base := baseURL(parsed.URL, parsed.Domain)

	data, status, err := s.client.PostJSON(ctx, base+"/api/notes/show", map[string]string{"noteId": parsed.ID})
	if err != nil {
		return nil, networkError(err)
	}
	if status < 200 || status >= 300 {
		return nil, errorFromStatus(status)
	}

	var note post.MisskeyNote
	if perr := decodeJSON(data, &note); perr != nil {
		return nil, perr
	}

	return post.NormalizeMisskey(&note, s.fetchMisskeyEmojis(ctx, base), parsed.Platform, parsed.Domain), nil
}

func (s *Service) fetchMisskeyEmojis(ctx context.Context, base string) []post.MisskeyEmoji {
	data, status, err := s.client.PostJSON(ctx, base+"/api/emojis", map[string]string{})
	if err != nil || status < 200 || status >= 300 {
		slog.Debug("Emoji directory unavailable", "base", base, "status", status)
		return nil
	}

	var dir struct {
		Emojis []post.MisskeyEmoji `json:"emojis"`
	}
	if err := json.Unmarshal(data, &dir); err != nil {
		return nil
	}

	return dir.Emojis
}
