// Package site holds one extractor per covered retailer. A site is mostly
// selector strings chained through the fixed traversal; everything generic
// lives in the crawl engine and the parser package.
package site

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/maltedev/catalog-crawler/internal/crawl"
)

// Seed is the per-site static configuration: where to start and which
// locale the crawl reports.
type Seed struct {
	HomeURL  string
	Country  string
	Language string
	Currency string
}

// New returns the named site's extractor.
func New(name string, seed Seed) (crawl.Site, error) {
	switch strings.ToLower(name) {
	case "thesting":
		return NewTheSting(seed), nil
	case "mohagni":
		return NewMohagni(seed), nil
	case "marcjacobs":
		return NewMarcJacobs(seed), nil
	case "arket":
		return NewArket(seed), nil
	default:
		return nil, fmt.Errorf("unknown site %q", name)
	}
}

// Names lists the covered sites.
func Names() []string {
	return []string{"thesting", "mohagni", "marcjacobs", "arket"}
}

// resolveURL joins a possibly-relative href against the page it was found
// on. Unparsable hrefs come back empty and the engine drops them.
func resolveURL(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
