package fetch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Eyozy/tootpic/app/platform"
	"github.com/Eyozy/tootpic/app/post"
)

// fetchGeneric is the universal last-resort path, also serving GoToSocial
// and any URL only the broad ActivityPub shape matched. It walks a short
// list of candidate object URLs; each is first requested with ActivityPub
// content negotiation, then scraped from the rendered HTML when negotiation
// fails.
func (s *Service) fetchGeneric(ctx context.Context, parsed *platform.ParsedURL) (*post.Post, *Error) {
	var lastErr *Error

	for _, candidate := range candidateURLs(parsed) {
		obj, doc, ferr := s.fetchAPObject(ctx, candidate)
		if ferr != nil {
			lastErr = ferr
			continue
		}

		p, err := post.NormalizeActivityPub(ctx, obj, parsed.Platform, parsed.Domain, s.resolveActor)
		if err != nil {
			lastErr = newError(CodeParseError, "Failed to normalize the post object: "+err.Error(), "")
			continue
		}
		if doc != nil {
			applyScrapedMetadata(p, doc, baseURL(parsed.URL, parsed.Domain))
		}
		return p, nil
	}

	if lastErr == nil {
		lastErr = newError(CodeNotFound, "No retrievable post object at this URL", "Check that the post is public and the URL is complete")
	}
	return nil, lastErr
}

// candidateURLs lists the object URL shapes to try, most specific first,
// starting with the original URL itself.
func candidateURLs(parsed *platform.ParsedURL) []string {
	base := baseURL(parsed.URL, parsed.Domain)

	candidates := []string{stripFragment(parsed.URL)}
	if parsed.ID != "" {
		for _, shape := range []string{"/objects/", "/posts/", "/notes/", "/statuses/"} {
			candidates = append(candidates, base+shape+parsed.ID)
		}
	}

	seen := make(map[string]bool, len(candidates))
	deduped := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			deduped = append(deduped, c)
		}
	}
	return deduped
}

// fetchAPObject requests one candidate URL with ActivityPub Accept headers
// and falls back to scraping JSON-LD out of the bare page. The returned
// document is non-nil only on the scrape path, so callers know when HTML
// metadata mining applies.
func (s *Service) fetchAPObject(ctx context.Context, rawURL string) (*post.APObject, *goquery.Document, *Error) {
	data, status, err := s.client.Get(ctx, rawURL, acceptActivity)
	if err != nil {
		return nil, nil, networkError(err)
	}

	if status >= 200 && status < 300 {
		var obj post.APObject
		if json.Unmarshal(data, &obj) == nil {
			if resolved, ok := s.resolveCreateWrapper(ctx, &obj); ok {
				return resolved, nil, nil
			}
		}
	} else if status != 406 && !(status >= 300 && status < 400) {
		// Hard failures short of content-negotiation refusals are final for
		// this candidate.
		if ferr := errorFromStatus(status); ferr.Code != CodeServerError {
			return nil, nil, ferr
		}
	}

	// Content negotiation gave nothing usable; scrape the rendered page.
	data, status, err = s.client.Get(ctx, rawURL, acceptHTML)
	if err != nil {
		return nil, nil, networkError(err)
	}
	if status < 200 || status >= 300 {
		return nil, nil, errorFromStatus(status)
	}

	doc, err := parseHTML(data)
	if err != nil {
		return nil, nil, newError(CodeParseError, "Failed to parse the post page", "")
	}
	obj, ok := extractJSONLD(doc)
	if !ok {
		return nil, nil, newError(CodeParseError, "No post object embedded in the page", "The instance may not expose posts to unauthenticated clients")
	}
	if resolved, ok := s.resolveCreateWrapper(ctx, obj); ok {
		return resolved, doc, nil
	}
	return nil, nil, newError(CodeParseError, "Embedded object is not a post", "")
}

// resolveCreateWrapper unwraps a Create activity down to the object it
// carries, dereferencing by URL when the object is a bare reference.
func (s *Service) resolveCreateWrapper(ctx context.Context, obj *post.APObject) (*post.APObject, bool) {
	if post.IsAPPostType(obj.Type) {
		return obj, true
	}
	if obj.Type != "Create" || len(obj.Object) == 0 {
		return nil, false
	}

	raw := obj.Object
	if raw[0] == '"' {
		var ref string
		if json.Unmarshal(raw, &ref) != nil || ref == "" {
			return nil, false
		}
		data, status, err := s.client.Get(ctx, ref, acceptActivity)
		if err != nil || status < 200 || status >= 300 {
			return nil, false
		}
		raw = data
	}

	var inner post.APObject
	if json.Unmarshal(raw, &inner) != nil || !post.IsAPPostType(inner.Type) {
		return nil, false
	}
	return &inner, true
}

// resolveActor fetches an actor document for a bare attributedTo URL. When
// the document cannot be retrieved, WebFinger is tried as a minimal
// fallback so the post still carries a usable account.
func (s *Service) resolveActor(ctx context.Context, actorURL string) (*post.APActor, error) {
	data, status, err := s.client.Get(ctx, actorURL, acceptActivity)
	if err == nil && status >= 200 && status < 300 {
		var actor post.APActor
		if json.Unmarshal(data, &actor) == nil && actor.PreferredUsername != "" {
			return &actor, nil
		}
	}

	slog.Debug("Actor document unavailable, trying WebFinger", "actor", actorURL, "status", status)
	return s.webfingerActor(ctx, actorURL)
}

// webfingerActor builds a minimal actor from a WebFinger lookup of the
// acct derived from the actor URL.
func (s *Service) webfingerActor(ctx context.Context, actorURL string) (*post.APActor, error) {
	u, err := url.Parse(actorURL)
	if err != nil {
		return nil, err
	}

	username := strings.TrimPrefix(u.Path[strings.LastIndex(u.Path, "/")+1:], "@")
	resource := "acct:" + username + "@" + u.Hostname()
	wfURL := u.Scheme + "://" + u.Host + "/.well-known/webfinger?resource=" + url.QueryEscape(resource)

	data, status, err := s.client.Get(ctx, wfURL, acceptJSON)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, errorFromStatus(status)
	}

	var wf struct {
		Subject string `json:"subject"`
		Links   []struct {
			Rel  string `json:"rel"`
			Type string `json:"type"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, err
	}

	actor := &post.APActor{ID: actorURL, PreferredUsername: username}
	if acct, ok := strings.CutPrefix(wf.Subject, "acct:"); ok {
		if name, _, found := strings.Cut(acct, "@"); found && name != "" {
			actor.PreferredUsername = name
		}
	}
	for _, link := range wf.Links {
		if link.Rel == "http://webfinger.net/rel/profile-page" && link.Href != "" {
			actor.URL = post.FlexString(link.Href)
			break
		}
	}

	return actor, nil
}

func stripFragment(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
