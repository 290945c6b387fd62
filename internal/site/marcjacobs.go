package site

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/catalog-crawler/internal/crawl"
	"github.com/maltedev/catalog-crawler/internal/fetch"
	"github.com/maltedev/catalog-crawler/internal/models"
	"github.com/maltedev/catalog-crawler/internal/parser"
)

// MarcJacobs crawls marcjacobs.com: two nav levels from the homepage menu,
// listing pages with a spinner-driven next-page URL, a color drawer that
// maps each swatch to a JSON detail endpoint, and a JSON detail payload.
// The natural key is the base SKU, not the URL, because every color of a
// product shares one detail identity per swatch endpoint.
type MarcJacobs struct {
	seed Seed
}

func NewMarcJacobs(seed Seed) *MarcJacobs {
	return &MarcJacobs{seed: seed}
}

func (s *MarcJacobs) Name() string { return "marcjacobs" }

func (s *MarcJacobs) Seeds() []crawl.Link {
	return []crawl.Link{{
		URL:     s.seed.HomeURL,
		Stage:   crawl.StageHome,
		Context: models.NewCrawlContext(s.seed.Country, s.seed.Language, s.seed.Currency),
	}}
}

func (s *MarcJacobs) Parse(stage crawl.Stage, res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	switch stage {
	case crawl.StageHome:
		return s.parseHome(res, cc)
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

// parseHome walks the two-level nav menu; every second-level entry links
// straight to a listing.
func (s *MarcJacobs) parseHome(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	var out crawl.Outcome
	doc.Find(".nav-modal__sub-list li.navL1").Each(func(_ int, level1 *goquery.Selection) {
		cat1 := level1.Find("a, .navHeaven > span").First().Text()
		level1.Find(".navL2 ul li").Each(func(_ int, level2 *goquery.Selection) {
			href := level2.Find("a").First().AttrOr("href", "")
			if href == "" {
				return
			}
			cat2 := level2.Find("a").First().Text()
			out.Links = append(out.Links, crawl.Link{
				URL:     resolveURL(res.URL, href),
				Stage:   crawl.StageListing,
				Context: cc.WithCategoryPath([]string{cat1, cat2}),
			})
		})
	})
	return out, nil
}

func (s *MarcJacobs) parseListing(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	var out crawl.Outcome
	doc.Find(".product-grid__list-element .lockup-card, .product-grid__list-element .plp-card").Each(func(_ int, sel *goquery.Selection) {
		out.Links = append(out.Links, crawl.Link{
			URL:     resolveURL(res.URL, sel.AttrOr("href", "")),
			Stage:   crawl.StageColor,
			Context: cc.Fork(),
		})
	})

	out.NextPage = resolveURL(res.URL, doc.Find(".spinner").First().AttrOr("data-url", ""))
	return out, nil
}

// parseColor maps each color drawer entry to its JSON detail endpoint,
// forking the context with the swatch label.
func (s *MarcJacobs) parseColor(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	var out crawl.Outcome
	doc.Find("div.swiper-wrapper input.colorDrawer__item-radio, li.heaven-color__item-container picture").Each(func(_ int, sel *goquery.Selection) {
		dataURL := sel.AttrOr("data-url", "")
		if dataURL == "" {
			return
		}
		out.Links = append(out.Links, crawl.Link{
			URL:     resolveURL(res.URL, dataURL),
			Stage:   crawl.StageDetail,
			Context: cc.WithColor(sel.AttrOr("data-label", "")),
		})
	})
	return out, nil
}

// marcJacobsDetail is the JSON detail payload shape.
type marcJacobsDetail struct {
	Product struct {
		ID              string `json:"id"`
		Brand           string `json:"brand"`
		ProductName     string `json:"productName"`
		LongDescription string `json:"longDescription"`
		Price           struct {
			Sales *struct {
				Formatted string `json:"formatted"`
			} `json:"sales"`
			List *struct {
				Formatted string `json:"formatted"`
			} `json:"list"`
		} `json:"price"`
		Images struct {
			Large []struct {
				URL string `json:"url"`
			} `json:"large"`
		} `json:"images"`
		VariationAttributes []struct {
			AttributeID string `json:"attributeId"`
			Values      []struct {
				DisplayValue string `json:"displayValue"`
				Selectable   bool   `json:"selectable"`
			} `json:"values"`
		} `json:"variationAttributes"`
	} `json:"product"`
}

func (s *MarcJacobs) parseDetail(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	var payload marcJacobsDetail
	if err := res.JSON(&payload); err != nil {
		return crawl.Outcome{}, err
	}
	p := payload.Product

	salesText := ""
	if p.Price.Sales != nil {
		salesText = p.Price.Sales.Formatted
	}
	listText := salesText
	if p.Price.List != nil && p.Price.List.Formatted != "" {
		listText = p.Price.List.Formatted
	}
	current, original := parser.ResolvePrices(
		parser.ParsePriceText(salesText), parser.ParsePriceText(listText))

	var imgs []string
	for _, img := range p.Images.Large {
		imgs = append(imgs, resolveURL(res.URL, img.URL))
	}

	var sizes []models.VariantInfo
	for _, attr := range p.VariationAttributes {
		if attr.AttributeID != "size" {
			continue
		}
		for _, v := range attr.Values {
			sizes = append(sizes, models.VariantInfo{
				Name:  v.DisplayValue,
				Stock: parser.StockFromBool(v.Selectable),
			})
		}
	}

	rec := &models.ProductRecord{
		Key:           p.ID,
		URL:           res.URL,
		Title:         p.ProductName,
		Brand:         p.Brand,
		Description:   parser.Description(p.LongDescription),
		CategoryPath:  cc.CategoryPath,
		ColorName:     cc.ColorLabel,
		ImageURLs:     imgs,
		CountryCode:   cc.CountryCode,
		LanguageCode:  cc.LanguageCode,
		Currency:      cc.Currency,
		Variants:      sizes,
		VariantPrices: false,
		CurrentPrice:  current,
		OriginalPrice: original,
	}
	return crawl.Outcome{Record: rec}, nil
}
