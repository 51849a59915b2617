package platform

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Well-known non-Fediverse domains. Posts on these will never resolve through
// ActivityPub, so requests are rejected before any network round trip.
var defaultDenied = []string{
	"twitter.com",
	"x.com",
	"facebook.com",
	"instagram.com",
	"threads.net",
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"reddit.com",
	"linkedin.com",
	"bsky.app",
	"t.me",
	"telegram.org",
	"medium.com",
	"tumblr.com",
}

type denylistFile struct {
	Domains []string `yaml:"domains"`
}

// Denylist holds domains known not to speak ActivityPub. Matching is
// suffix-based, so "twitter.com" also covers "mobile.twitter.com".
type Denylist struct {
	domains []string
}

func NewDenylist() *Denylist {
	return &Denylist{domains: append([]string(nil), defaultDenied...)}
}

// NewDenylistFromFile extends the built-in list with domains from a YAML file:
//
//	domains:
//	  - example.org
func NewDenylistFromFile(path string) (*Denylist, error) {
	dl := NewDenylist()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read denylist file: %w", err)
	}

	var file denylistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse denylist YAML: %w", err)
	}

	for _, d := range file.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			dl.domains = append(dl.domains, d)
		}
	}

	return dl, nil
}

func (dl *Denylist) Denied(host string) bool {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	for _, d := range dl.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func (dl *Denylist) Size() int {
	return len(dl.domains)
}
