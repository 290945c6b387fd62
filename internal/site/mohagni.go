package site

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/catalog-crawler/internal/crawl"
	"github.com/maltedev/catalog-crawler/internal/fetch"
	"github.com/maltedev/catalog-crawler/internal/models"
	"github.com/maltedev/catalog-crawler/internal/parser"
)

var (
	// mohagniProductPattern captures the Shopify product object embedded in
	// an inline script on the detail page.
	mohagniProductPattern = regexp.MustCompile(`product: ({.*?}),\s*collectionId:`)
	// mohagniGTINPattern quotes the bare gtin14 values the site emits,
	// which would otherwise break the ld+json decode.
	mohagniGTINPattern = regexp.MustCompile(`("gtin14": )([^,\s"]+)`)
	// mohagniIdentifierPattern pulls the product identifier out of the URL;
	// it is the natural key for this site.
	mohagniIdentifierPattern = regexp.MustCompile(`/products/(\w+-\d+)`)
)

// Mohagni crawls mohagni.com: home -> category page (which exposes the full
// pagination link set up front) -> listing -> detail. Detail pages embed
// Shopify JSON; products come as stitched sizes, an unstitched base, or
// both, merged into one variant list per record. Prices live per variant.
type Mohagni struct {
	seed Seed
}

func NewMohagni(seed Seed) *Mohagni {
	return &Mohagni{seed: seed}
}

func (s *Mohagni) Name() string { return "mohagni" }

func (s *Mohagni) Seeds() []crawl.Link {
	return []crawl.Link{{
		URL:     s.seed.HomeURL,
		Stage:   crawl.StageHome,
		Context: models.NewCrawlContext(s.seed.Country, s.seed.Language, s.seed.Currency),
	}}
}

func (s *Mohagni) Parse(stage crawl.Stage, res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	switch stage {
	case crawl.StageHome:
		return s.parseHome(res, cc)
	case crawl.StageNav:
		return s.parseCategory(res, cc)
	case crawl.StageListing:
		return s.parseListing(res, cc)
	case crawl.StageDetail:
		return s.parseDetail(res, cc)
	default:
		return crawl.Outcome{}, fmt.Errorf("unsupported stage %s", stage)
	}
}

// parseHome collects category links from the swiper carousel and the
// multicolumn list, deduplicated.
func (s *Mohagni) parseHome(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	seen := make(map[string]bool)
	var out crawl.Outcome
	doc.Find("div.swiper a, ul.multicolumn-list a").Each(func(_ int, sel *goquery.Selection) {
		u := resolveURL(res.URL, sel.AttrOr("href", ""))
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		out.Links = append(out.Links, crawl.Link{
			URL:     u,
			Stage:   crawl.StageNav,
			Context: cc.Fork(),
		})
	})
	return out, nil
}

// parseCategory reads the category title from the collection hero and fans
// out over the full pagination link set. The site exposes all page links up
// front, so pagination is folded into this stage rather than a self-loop.
func (s *Mohagni) parseCategory(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	titles := doc.Find("h2.collection-hero__title")
	if titles.Length() < 2 {
		return crawl.Outcome{}, fmt.Errorf("category title not found")
	}
	branch := cc.WithCategory(titles.Eq(1).Text())

	pages := map[string]bool{res.URL + "?page=1": true}
	doc.Find("ul.pagination__list a").Each(func(_ int, sel *goquery.Selection) {
		if u := resolveURL(res.URL, sel.AttrOr("href", "")); u != "" {
			pages[u] = true
		}
	})

	var out crawl.Outcome
	for u := range pages {
		out.Links = append(out.Links, crawl.Link{
			URL:     u,
			Stage:   crawl.StageListing,
			Context: branch.Fork(),
		})
	}
	return out, nil
}

func (s *Mohagni) parseListing(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	var out crawl.Outcome
	doc.Find("li.grid__item").Each(func(_ int, item *goquery.Selection) {
		u := resolveURL(res.URL, item.Find("a.full-unstyled-link").First().AttrOr("href", ""))
		if u == "" {
			return
		}
		out.Links = append(out.Links, crawl.Link{
			URL:     u,
			Stage:   crawl.StageDetail,
			Context: cc.Fork(),
		})
	})
	return out, nil
}

func (s *Mohagni) parseDetail(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	m := mohagniIdentifierPattern.FindStringSubmatch(res.URL)
	if m == nil {
		return crawl.Outcome{}, fmt.Errorf("no product identifier in URL %s", res.URL)
	}

	variants, err := s.variants(doc)
	if err != nil {
		return crawl.Outcome{}, err
	}

	rec := &models.ProductRecord{
		Key:           m[1],
		URL:           res.URL,
		Title:         strings.TrimSpace(doc.Find("div.product__title h1").First().Text()),
		Description:   parser.Description(s.description(doc)),
		CategoryPath:  cc.CategoryPath,
		ImageURLs:     s.images(doc),
		CountryCode:   cc.CountryCode,
		LanguageCode:  cc.LanguageCode,
		Currency:      cc.Currency,
		Variants:      variants,
		VariantPrices: true,
	}
	return crawl.Outcome{Record: rec}, nil
}

// shopifyVariant is the embedded Shopify variant/product shape. Prices are
// in minor units; compare_at_price is null when the product is not on sale.
type shopifyVariant struct {
	Title          string   `json:"title"`
	Price          float64  `json:"price"`
	CompareAtPrice *float64 `json:"compare_at_price"`
	Available      bool     `json:"available"`
}

// variants decides the product's style makeup from the option label: a
// "Style" option means stitched sizes plus an unstitched base, a "Size"
// option means stitched only, and no label means unstitched only.
func (s *Mohagni) variants(doc *goquery.Document) ([]models.VariantInfo, error) {
	styleLabel := doc.Find("fieldset.product-form__input legend.form__label").First().Text()

	switch {
	case strings.Contains(styleLabel, "Style"):
		stitched, err := s.stitchedVariants(doc)
		if err != nil {
			return nil, err
		}
		unstitched, err := s.unstitchedVariant(doc)
		if err != nil {
			return nil, err
		}
		return append(stitched, unstitched...), nil
	case strings.Contains(styleLabel, "Size"):
		return s.stitchedVariants(doc)
	default:
		return s.unstitchedVariant(doc)
	}
}

// stitchedVariants decodes the variant radio JSON and keeps the entries
// whose titles carry a stitch-size token; the rest are the unstitched base
// appearing in the same list and are sourced separately.
func (s *Mohagni) stitchedVariants(doc *goquery.Document) ([]models.VariantInfo, error) {
	data := doc.Find("variant-radios.no-js-hidden script").First().Text()
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("variant data not found")
	}

	var raw []shopifyVariant
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode variant data: %w", err)
	}

	var variants []models.VariantInfo
	for _, v := range raw {
		if !parser.IsStitchedName(v.Title) {
			continue
		}
		variants = append(variants, s.toVariant(v.Title, v))
	}
	return variants, nil
}

// unstitchedVariant pulls the product object embedded in the theme script
// and synthesizes the single UNSTITCHED entry.
func (s *Mohagni) unstitchedVariant(doc *goquery.Document) ([]models.VariantInfo, error) {
	script := doc.Find(`script[type="text/javascript"]`).First().Text()

	var raw shopifyVariant
	if err := parser.DecodeEmbedded(mohagniProductPattern, script, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode unstitched product data: %w", err)
	}
	return []models.VariantInfo{s.toVariant("UNSTITCHED", raw)}, nil
}

func (s *Mohagni) toVariant(name string, v shopifyVariant) models.VariantInfo {
	original := v.Price
	if v.CompareAtPrice != nil && *v.CompareAtPrice > 0 {
		original = *v.CompareAtPrice
	}
	current, original := parser.ResolvePrices(v.Price/100, original/100)
	return models.VariantInfo{
		Name:          name,
		CurrentPrice:  current,
		OriginalPrice: original,
		Stock:         parser.StockFromBool(v.Available),
	}
}

// description reads the second ld+json block, repairing the site's unquoted
// gtin14 values before decoding. A malformed block degrades to the
// description fallback rather than dropping the product.
func (s *Mohagni) description(doc *goquery.Document) string {
	blocks := doc.Find(`script[type="application/ld+json"]`)
	if blocks.Length() < 2 {
		return ""
	}
	data := strings.ReplaceAll(strings.TrimSpace(blocks.Eq(1).Text()), "\n", "")
	data = strings.ReplaceAll(data, `\"`, `"`)
	data = mohagniGTINPattern.ReplaceAllString(data, `$1"$2"`)

	var payload struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return ""
	}
	return payload.Description
}

func (s *Mohagni) images(doc *goquery.Document) []string {
	seen := make(map[string]bool)
	var imgs []string
	doc.Find("li.product__media-item div.product__media img").Each(func(_ int, sel *goquery.Selection) {
		src := sel.AttrOr("src", "")
		if src == "" {
			return
		}
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		if seen[src] {
			return
		}
		seen[src] = true
		imgs = append(imgs, src)
	})
	return imgs
}
