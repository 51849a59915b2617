package platform

import (
	"regexp"
	"strings"
)

// Platform keys. Every ParsedURL.Platform value is one of these.
const (
	Mastodon   = "mastodon"
	Pixelfed   = "pixelfed"
	PeerTube   = "peertube"
	Pleroma    = "pleroma"
	Misskey    = "misskey"
	GoToSocial = "gotosocial"
	Generic    = "generic"
)

type Capabilities struct {
	Sensitive      bool
	ContentWarning bool
	CustomEmoji    bool
}

// Endpoint is an API endpoint template. Path templates use {id} as the
// post or actor identifier placeholder.
type Endpoint struct {
	Method string
	Path   string
}

func (e Endpoint) Expand(id string) string {
	return strings.ReplaceAll(e.Path, "{id}", id)
}

// Descriptor describes one supported platform: how its post URLs look and
// which API endpoints serve post and actor data. Descriptors are defined at
// process start and never mutated.
type Descriptor struct {
	Key            string
	Name           string
	Rules          []*regexp.Regexp
	StatusEndpoint Endpoint
	ActorEndpoint  Endpoint
	Capabilities   Capabilities
}

// ParsedURL is the result of matching an input URL against the registry.
type ParsedURL struct {
	Platform string
	Domain   string
	ID       string
	Username string
	URL      string
}
