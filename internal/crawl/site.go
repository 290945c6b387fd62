package crawl

import (
	"github.com/maltedev/catalog-crawler/internal/fetch"
	"github.com/maltedev/catalog-crawler/internal/models"
)

// Link is a follow-up fetch produced by parsing a response. The context is
// the forked copy the target page should see; it already carries every
// category label and color selection accumulated on the way here.
type Link struct {
	URL     string
	Stage   Stage
	Context models.CrawlContext
}

// Outcome is what parsing one response yields: follow-up links, an optional
// next-page URL for the listing self-loop, and, at the detail stage, the
// normalized record.
type Outcome struct {
	Links []Link

	// NextPage re-enters the listing stage with the same context. Empty
	// means the site reported no further pages.
	NextPage string

	// Record is set by detail responses (and by color pages that double as
	// detail pages). Exactly one record per successful detail fetch.
	Record *models.ProductRecord
}

// Site is one retailer's extraction logic. The selector strings live inside
// the implementation; the traversal shape is fixed by the engine.
type Site interface {
	Name() string

	// Seeds returns the entry points of the crawl, usually a single
	// homepage link carrying the seed locale context.
	Seeds() []Link

	// Parse runs the stage-specific extractor on a fetched response.
	Parse(stage Stage, res *fetch.Response, cc models.CrawlContext) (Outcome, error)
}
