package models

import (
	"maps"
	"strings"
)

// CrawlContext carries the locale and category metadata accumulated while
// walking from the homepage down to a product detail page. Contexts are
// values: every navigation hop forks its own copy, so sibling branches of
// the traversal never observe each other's later extensions.
type CrawlContext struct {
	CountryCode  string
	LanguageCode string
	Currency     string
	CategoryPath []string
	ColorLabel   string
	// Counters holds per-branch bookkeeping such as products seen per
	// category path. Copied on fork like everything else.
	Counters map[string]int
}

// NewCrawlContext builds the seed context for a crawl.
func NewCrawlContext(country, language, currency string) CrawlContext {
	return CrawlContext{
		CountryCode:  country,
		LanguageCode: language,
		Currency:     currency,
	}
}

// Fork returns a deep copy of the context. The category path and counters
// are copied, not referenced, so mutating the fork never leaks into the
// parent or into sibling forks.
func (c CrawlContext) Fork() CrawlContext {
	clone := c
	clone.CategoryPath = append([]string(nil), c.CategoryPath...)
	if c.Counters != nil {
		clone.Counters = make(map[string]int, len(c.Counters))
		maps.Copy(clone.Counters, c.Counters)
	}
	return clone
}

// WithCategory forks the context and appends one category label to the path.
// Labels are trimmed of surrounding whitespace and embedded newlines.
func (c CrawlContext) WithCategory(label string) CrawlContext {
	clone := c.Fork()
	clone.CategoryPath = append(clone.CategoryPath, cleanLabel(label))
	return clone
}

// WithCategoryPath forks the context and replaces the whole category path.
// Used by sites that discover several nav levels from a single response.
func (c CrawlContext) WithCategoryPath(labels []string) CrawlContext {
	clone := c.Fork()
	clone.CategoryPath = make([]string, 0, len(labels))
	for _, l := range labels {
		clone.CategoryPath = append(clone.CategoryPath, cleanLabel(l))
	}
	return clone
}

// WithColor forks the context and records the selected color swatch label.
func (c CrawlContext) WithColor(label string) CrawlContext {
	clone := c.Fork()
	clone.ColorLabel = strings.TrimSpace(label)
	return clone
}

// WithCount forks the context and adds n to the named counter.
func (c CrawlContext) WithCount(key string, n int) CrawlContext {
	clone := c.Fork()
	if clone.Counters == nil {
		clone.Counters = make(map[string]int, 1)
	}
	clone.Counters[key] += n
	return clone
}

// CategoryKey joins the category path into a stable counter key.
func (c CrawlContext) CategoryKey() string {
	return strings.Join(c.CategoryPath, "/")
}

func cleanLabel(label string) string {
	return strings.TrimSpace(strings.ReplaceAll(label, "\n", " "))
}
