package site

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/catalog-crawler/internal/crawl"
	"github.com/maltedev/catalog-crawler/internal/fetch"
	"github.com/maltedev/catalog-crawler/internal/models"
	"github.com/maltedev/catalog-crawler/internal/parser"
)

// TheSting crawls thesting.com: home -> sub-navigation (2 or 4 category
// levels) -> listing with a next-link pagination loop -> color swatch
// expansion -> DOM detail page. Prices live at the product level.
type TheSting struct {
	seed Seed
}

func NewTheSting(seed Seed) *TheSting {
	return &TheSting{seed: seed}
}

func (s *TheSting) Name() string { return "thesting" }

func (s *TheSting) Seeds() []crawl.Link {
	return []crawl.Link{{
		URL:     s.seed.HomeURL,
		Stage:   crawl.StageHome,
		Context: models.NewCrawlContext(s.seed.Country, s.seed.Language, s.seed.Currency),
	}}
}

func (s *TheSting) Parse(stage crawl.Stage, res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	switch stage {
	case crawl.StageHome:
		return s.parseHome(res, cc)
	case crawl.StageNav:
		return s.parseSubNav(res, cc)
	case crawl.StageListing:
		return s.parseListing(res, cc)
	case crawl.StageColor:
		return s.parseColor(res, cc)
	case crawl.StageDetail:
		return s.parseDetail(res, cc)
	default:
		return crawl.Outcome{}, fmt.Errorf("unsupported stage %s", stage)
	}
}

// parseHome pairs the main category labels with the main navigation links.
func (s *TheSting) parseHome(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	var labels []string
	doc.Find("div.header__menu-secondary[data-category]").Each(func(_ int, sel *goquery.Selection) {
		labels = append(labels, sel.AttrOr("data-category", ""))
	})

	var out crawl.Outcome
	doc.Find("div.header__menu-navigation a").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= len(labels) {
			return false
		}
		out.Links = append(out.Links, crawl.Link{
			URL:     resolveURL(res.URL, sel.AttrOr("href", "")),
			Stage:   crawl.StageNav,
			Context: cc.WithCategory(labels[i]),
		})
		return true
	})
	return out, nil
}

// parseSubNav expands the flyout menu for the branch's main category. A
// second-level link is a listing on its own; deeper flyout columns add a
// third and fourth label.
func (s *TheSting) parseSubNav(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}
	if len(cc.CategoryPath) == 0 {
		return crawl.Outcome{}, fmt.Errorf("sub-nav stage without a main category")
	}
	cat1 := cc.CategoryPath[0]

	var out crawl.Outcome
	scope := doc.Find(fmt.Sprintf("div[data-category=%q]", cat1))
	scope.Find("a.header__menu-navigation-link--is-secondary").Each(func(_ int, level1 *goquery.Selection) {
		cat2 := level1.Text()
		out.Links = append(out.Links, crawl.Link{
			URL:     resolveURL(res.URL, level1.AttrOr("href", "")),
			Stage:   crawl.StageListing,
			Context: cc.WithCategoryPath([]string{cat1, cat2}),
		})

		level1.NextFiltered("div").Find(".header__menu-flyout-navigation-wrapper").Each(func(_ int, level2 *goquery.Selection) {
			cat3 := level2.Find(".header__menu-flyout-navigation-label").First().Text()
			level2.Find("span + nav a").Each(func(_ int, level3 *goquery.Selection) {
				cat4 := level3.Find("span").First().Text()
				out.Links = append(out.Links, crawl.Link{
					URL:     resolveURL(res.URL, level3.AttrOr("href", "")),
					Stage:   crawl.StageListing,
					Context: cc.WithCategoryPath([]string{cat1, cat2, cat3, cat4}),
				})
			})
		})
	})
	return out, nil
}

// parseListing extracts product tiles and the next-page link. Pagination is
// a self-loop: the engine re-enters this stage with the same context.
func (s *TheSting) parseListing(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	var productURLs []string
	doc.Find("div.product a.product-tile__link").Each(func(_ int, sel *goquery.Selection) {
		productURLs = append(productURLs, resolveURL(res.URL, sel.AttrOr("href", "")))
	})

	// Every branch keeps its own count of products seen per category.
	branch := cc.WithCount(cc.CategoryKey(), len(productURLs))

	var out crawl.Outcome
	for _, u := range productURLs {
		out.Links = append(out.Links, crawl.Link{
			URL:     u,
			Stage:   crawl.StageColor,
			Context: branch.Fork(),
		})
	}

	out.NextPage = resolveURL(res.URL, doc.Find("a.pagination__action--next").AttrOr("href", ""))
	return out, nil
}

// parseColor emits the detail record for the currently-selected color and
// follows each other swatch to its own detail page.
func (s *TheSting) parseColor(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	out, err := s.parseDetail(res, cc)
	if err != nil {
		return crawl.Outcome{}, err
	}

	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}
	doc.Find(".c-color-swatches a").Each(func(_ int, sel *goquery.Selection) {
		out.Links = append(out.Links, crawl.Link{
			URL:     resolveURL(res.URL, sel.AttrOr("href", "")),
			Stage:   crawl.StageDetail,
			Context: cc.Fork(),
		})
	})
	return out, nil
}

func (s *TheSting) parseDetail(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	oldPrice := parser.ParsePriceText(doc.Find("data.product-detail-aside__price").First().Text())
	salePrice := parser.ParsePriceText(doc.Find("data.product-detail-aside__price--is-on-sale").First().Text())
	if salePrice == 0 {
		salePrice = oldPrice
	}
	current, original := parser.ResolvePrices(salePrice, oldPrice)

	rec := &models.ProductRecord{
		Key:           res.URL,
		URL:           res.URL,
		Title:         strings.TrimSpace(doc.Find("h1.product-detail-aside__title").First().Text()),
		Brand:         strings.TrimSpace(doc.Find("a.product-detail-aside__brand").First().Text()),
		Description:   parser.Description(s.description(doc)),
		CategoryPath:  cc.CategoryPath,
		ColorName:     strings.TrimSpace(doc.Find("span.product-detail-aside__current-color").First().Text()),
		ImageURLs:     s.images(doc),
		CountryCode:   cc.CountryCode,
		LanguageCode:  cc.LanguageCode,
		Currency:      cc.Currency,
		Variants:      s.sizes(doc),
		VariantPrices: false,
		CurrentPrice:  current,
		OriginalPrice: original,
	}
	return crawl.Outcome{Record: rec}, nil
}

// sizes reads the size radio group. A size is sold out when the radio label
// carries the sold-out marker next to the value.
func (s *TheSting) sizes(doc *goquery.Document) []models.VariantInfo {
	var sizes []models.VariantInfo
	doc.Find(".c-product-detail-aside span.radio__size-value").Each(func(_ int, sel *goquery.Selection) {
		soldOut := sel.NextFiltered("span.radio__size-label").Length() > 0
		sizes = append(sizes, models.VariantInfo{
			Name:  strings.TrimSpace(sel.Text()),
			Stock: parser.StockFromBool(!soldOut),
		})
	})
	return sizes
}

// description flattens the accordion sections into "summary\ncontent"
// blocks, matching how the site presents product copy.
func (s *TheSting) description(doc *goquery.Document) string {
	var sections []string
	doc.Find("div.c-accordion details.accordion__detail").Each(func(_ int, item *goquery.Selection) {
		summary := strings.TrimSpace(item.Find("summary.accordion__item-summary").First().Text())

		content := strings.Join(strings.Fields(item.Find("div.accordion__item-content").Text()), " ")

		if summary != "" && content != "" {
			sections = append(sections, summary+"\n"+content)
		}
	})
	return strings.Join(sections, "\n\n")
}

func (s *TheSting) images(doc *goquery.Document) []string {
	var imgs []string
	doc.Find(".product-image-grid__item .image__holder picture source").Each(func(_ int, sel *goquery.Selection) {
		srcset := sel.AttrOr("data-srcset", "")
		if srcset == "" {
			return
		}
		imgs = append(imgs, strings.SplitN(srcset, "?", 2)[0])
	})
	return imgs
}
