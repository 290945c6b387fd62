// Package crawl drives the fixed traversal every site shares: homepage to
// navigation levels to listings (with a pagination self-loop) to optional
// color-variant expansion to product detail, where a normalized record is
// emitted to the sink.
package crawl

// Stage is one phase of the crawl graph. Sites skip stages they do not
// have: a link's Stage decides which extractor runs on its response.
type Stage int

const (
	// StageHome is the seed fetch; extracts top-level navigation links.
	StageHome Stage = iota
	// StageNav covers every intermediate navigation hop. Each hop appends
	// category labels to the context before reaching a listing.
	StageNav
	// StageListing extracts product (or color-group) links and the next
	// page indicator. Pagination re-enters this stage, it is not a state
	// of its own.
	StageListing
	// StageColor expands one listing entry into per-color detail fetches.
	StageColor
	// StageDetail extracts all normalized fields and emits one record.
	StageDetail
)

func (s Stage) String() string {
	switch s {
	case StageHome:
		return "home"
	case StageNav:
		return "nav"
	case StageListing:
		return "listing"
	case StageColor:
		return "color"
	case StageDetail:
		return "detail"
	default:
		return "unknown"
	}
}
