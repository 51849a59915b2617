package platform

import (
	"regexp"
	"strings"
)

// Registry of supported platforms, iterated in order by Match. Narrow URL
// shapes come first; Mastodon last among the specific platforms because its
// /@user/id shape is the broadest and would shadow the others.
var registry = []*Descriptor{
	{
		Key:  Pixelfed,
		Name: "Pixelfed",
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/p/(?P<username>[^/]+)/(?P<id>\d+)(?:$|[/?#])`),
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/i/web/post/(?P<id>\d+)(?:$|[/?#])`),
		},
		StatusEndpoint: Endpoint{Method: "GET", Path: "/api/v1/statuses/{id}"},
		ActorEndpoint:  Endpoint{Method: "GET", Path: "/api/v1/accounts/{id}"},
		Capabilities:   Capabilities{Sensitive: true, ContentWarning: true, CustomEmoji: false},
	},
	{
		Key:  PeerTube,
		Name: "PeerTube",
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/videos/watch/(?P<id>[0-9a-zA-Z-]+)`),
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/w/(?P<id>[0-9a-zA-Z]+)(?:$|[/?#])`),
		},
		StatusEndpoint: Endpoint{Method: "GET", Path: "/api/v1/videos/{id}"},
		ActorEndpoint:  Endpoint{Method: "GET", Path: "/api/v1/accounts/{id}"},
		Capabilities:   Capabilities{Sensitive: true, ContentWarning: false, CustomEmoji: false},
	},
	{
		Key:  Misskey,
		Name: "Misskey",
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/notes/(?P<id>[0-9a-z]+)(?:$|[/?#])`),
		},
		StatusEndpoint: Endpoint{Method: "POST", Path: "/api/notes/show"},
		ActorEndpoint:  Endpoint{Method: "POST", Path: "/api/users/show"},
		Capabilities:   Capabilities{Sensitive: true, ContentWarning: true, CustomEmoji: true},
	},
	{
		Key:  Pleroma,
		Name: "Pleroma",
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/notice/(?P<id>[0-9a-zA-Z]+)(?:$|[/?#])`),
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/objects/(?P<id>[0-9a-f-]{36})`),
		},
		StatusEndpoint: Endpoint{Method: "GET", Path: "/api/v1/statuses/{id}"},
		ActorEndpoint:  Endpoint{Method: "GET", Path: "/api/v1/accounts/{id}"},
		Capabilities:   Capabilities{Sensitive: true, ContentWarning: true, CustomEmoji: true},
	},
	{
		Key:  GoToSocial,
		Name: "GoToSocial",
		Rules: []*regexp.Regexp{
			// ULID status ids, e.g. /@user/statuses/01FVW7JHQFF4D0EHZ3V48GS14E
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/@(?P<username>[^/@]+)/statuses/(?P<id>[0-9A-HJKMNP-TV-Z]{26})`),
		},
		StatusEndpoint: Endpoint{Method: "GET", Path: "/api/v1/statuses/{id}"},
		ActorEndpoint:  Endpoint{Method: "GET", Path: "/api/v1/accounts/{id}"},
		Capabilities:   Capabilities{Sensitive: true, ContentWarning: true, CustomEmoji: true},
	},
	{
		Key:  Mastodon,
		Name: "Mastodon",
		Rules: []*regexp.Regexp{
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/@(?P<username>[^/@]+)/(?P<id>\d+)(?:$|[/?#])`),
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/users/(?P<username>[^/]+)/statuses/(?P<id>\d+)(?:$|[/?#])`),
			regexp.MustCompile(`^https?://(?P<domain>[^/]+)/deck/@(?P<username>[^/@]+)/(?P<id>\d+)(?:$|[/?#])`),
		},
		StatusEndpoint: Endpoint{Method: "GET", Path: "/api/v1/statuses/{id}"},
		ActorEndpoint:  Endpoint{Method: "GET", Path: "/api/v1/accounts/{id}"},
		Capabilities:   Capabilities{Sensitive: true, ContentWarning: true, CustomEmoji: true},
	},
}

// genericRule is the broad ActivityPub path-shape fallback, tried only after
// every platform-specific rule has failed.
var genericRule = regexp.MustCompile(`^https?://(?P<domain>[^/]+)/(?:@[^/]+|users/[^/]+(?:/statuses)?|objects|notice|notes|statuses|p/[^/]+|videos/watch)/(?P<id>[^/?#]+)`)

// Secondary id-recovery patterns for generic URLs. Which one applies is
// decided by which path segment substring is present in the URL; platforms
// with overlapping path shapes may be misclassified here.
var (
	genericMentionID = regexp.MustCompile(`/@[^/]+/(?:statuses/)?(?P<id>[^/?#]+)`)
	genericObjectID  = regexp.MustCompile(`/objects/(?P<id>[^/?#]+)`)
	genericPhotoID   = regexp.MustCompile(`/p/[^/]+/(?P<id>[^/?#]+)`)
	genericVideoID   = regexp.MustCompile(`/videos/watch/(?P<id>[^/?#]+)`)
	genericUsername  = regexp.MustCompile(`/@([^/@]+)`)
)

// Lookup returns the descriptor for a platform key. The generic sentinel has
// no descriptor.
func Lookup(key string) (*Descriptor, bool) {
	for _, d := range registry {
		if d.Key == key {
			return d, true
		}
	}
	return nil, false
}

// Descriptors returns the registry in matching order.
func Descriptors() []*Descriptor {
	return registry
}

// Match classifies a URL against the registry. Iteration order is fixed and
// the first matching rule wins. URLs matching no platform-specific rule fall
// back to the broad generic ActivityPub shape; if that also fails, Match
// returns (nil, false).
func Match(rawURL string) (*ParsedURL, bool) {
	for _, d := range registry {
		for _, rule := range d.Rules {
			m := rule.FindStringSubmatch(rawURL)
			if m == nil {
				continue
			}
			parsed := &ParsedURL{
				Platform: d.Key,
				URL:      rawURL,
			}
			if i := rule.SubexpIndex("domain"); i >= 0 {
				parsed.Domain = m[i]
			}
			if i := rule.SubexpIndex("id"); i >= 0 {
				parsed.ID = m[i]
			}
			if i := rule.SubexpIndex("username"); i >= 0 {
				parsed.Username = m[i]
			}
			return parsed, true
		}
	}

	return matchGeneric(rawURL)
}

func matchGeneric(rawURL string) (*ParsedURL, bool) {
	m := genericRule.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, false
	}

	parsed := &ParsedURL{
		Platform: Generic,
		URL:      rawURL,
		Domain:   m[genericRule.SubexpIndex("domain")],
		ID:       m[genericRule.SubexpIndex("id")],
	}

	// The broad rule captures the last path segment, which is wrong for some
	// shapes. Recover the true id based on the path segment present.
	var idRule *regexp.Regexp
	switch {
	case strings.Contains(rawURL, "/objects/"):
		idRule = genericObjectID
	case strings.Contains(rawURL, "/videos/watch/"):
		idRule = genericVideoID
	case strings.Contains(rawURL, "/p/"):
		idRule = genericPhotoID
	case strings.Contains(rawURL, "/@"):
		idRule = genericMentionID
	}
	if idRule != nil {
		if rm := idRule.FindStringSubmatch(rawURL); rm != nil {
			parsed.ID = rm[idRule.SubexpIndex("id")]
		}
	}

	if um := genericUsername.FindStringSubmatch(rawURL); um != nil {
		parsed.Username = um[1]
	}

	return parsed, true
}
