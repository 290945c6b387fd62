package site

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/catalog-crawler/internal/crawl"
	"github.com/maltedev/catalog-crawler/internal/fetch"
	"github.com/maltedev/catalog-crawler/internal/models"
	"github.com/maltedev/catalog-crawler/internal/parser"
)

const arketImageBase = "https://image.thehyundai.com/static/"

// Arket crawls arket.com: the homepage menu exposes every category (2 or 3
// levels) up front, listing pages carry hidden pagination inputs from which
// the full page set is computed, and each color swatch maps to a JSON
// item-info endpoint. Stock comes as a per-size remaining count.
type Arket struct {
	seed Seed
	// base is the locale root ("https://www.arket.com/ko-kr/"); the
	// pagination and item-info endpoints hang off it.
	base string
}

func NewArket(seed Seed) *Arket {
	return &Arket{
		seed: seed,
		base: strings.TrimSuffix(seed.HomeURL, "index.html"),
	}
}

func (s *Arket) Name() string { return "arket" }

func (s *Arket) Seeds() []crawl.Link {
	return []crawl.Link{{
		URL:     s.seed.HomeURL,
		Stage:   crawl.StageHome,
		Context: models.NewCrawlContext(s.seed.Country, s.seed.Language, s.seed.Currency),
	}}
}

func (s *Arket) Parse(stage crawl.Stage, res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
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

// parseHome walks the category wrappers: curated departments link straight
// to a listing under two labels, the folder columns add a third level.
func (s *Arket) parseHome(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	var out crawl.Outcome
	doc.Find("div.category-wrapper").Each(func(_ int, level1 *goquery.Selection) {
		cat1 := level1.AttrOr("data-title", "")

		level1.Find(".curated-categories a.department-link").Each(func(_ int, level2 *goquery.Selection) {
			out.Links = append(out.Links, crawl.Link{
				URL:     resolveURL(res.URL, level2.AttrOr("href", "")),
				Stage:   crawl.StageListing,
				Context: cc.WithCategoryPath([]string{cat1, level2.Text()}),
			})
		})

		level1.Find(".main-categories .folder-category").Each(func(_ int, level2 *goquery.Selection) {
			cat2 := level2.Find("h3.a-heading-3 a").First().Text()
			level2.Find("li.subcategory").Each(func(_ int, level3 *goquery.Selection) {
				out.Links = append(out.Links, crawl.Link{
					URL:     resolveURL(res.URL, level3.AttrOr("href", "")),
					Stage:   crawl.StageListing,
					Context: cc.WithCategoryPath([]string{cat1, cat2, level3.Find("a").First().Text()}),
				})
			})
		})
	})
	return out, nil
}

// parseListing extracts product tiles and, on the category landing page,
// computes the remaining page URLs from the hidden pagination inputs. The
// add-item pages carry the same inputs but never re-derive the set.
func (s *Arket) parseListing(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	var out crawl.Outcome
	doc.Find(".o-product > a").Each(func(_ int, sel *goquery.Selection) {
		out.Links = append(out.Links, crawl.Link{
			URL:     resolveURL(res.URL, sel.AttrOr("href", "")),
			Stage:   crawl.StageColor,
			Context: cc.Fork(),
		})
	})

	if !strings.Contains(res.URL, "ctgrListAddItem") {
		for _, u := range s.paginationURLs(doc) {
			out.Links = append(out.Links, crawl.Link{
				URL:     u,
				Stage:   crawl.StageListing,
				Context: cc.Fork(),
			})
		}
	}
	return out, nil
}

// paginationURLs builds the add-item page set from the hidden inputs. The
// page count is ceil(totalCnt / viewCnt); each page requests the items
// beyond what the previous pages already showed.
func (s *Arket) paginationURLs(doc *goquery.Document) []string {
	viewCnt := hiddenInt(doc, "viewCnt")
	totalCnt := hiddenInt(doc, "totalCnt")
	pageSize := hiddenInt(doc, "pageSize")
	sectID := doc.Find(`input[name="sect_id"]`).First().AttrOr("value", "")
	if viewCnt <= 0 || totalCnt <= 0 || sectID == "" {
		return nil
	}

	numPages := (totalCnt + viewCnt - 1) / viewCnt
	var urls []string
	for page := 2; page <= numPages; page++ {
		urls = append(urls, fmt.Sprintf(
			"%sdpa/ctgrListAddItem.html?sect_id=%s&pageNum=%d&viewCnt=%d&totalCnt=%d&pageSize=%d",
			s.base, sectID, page, pageSize*(page-1), totalCnt, pageSize))
	}
	return urls
}

func hiddenInt(doc *goquery.Document, name string) int {
	v := doc.Find(fmt.Sprintf("input[name=%q]", name)).First().AttrOr("value", "")
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

// parseColor maps each swatch to the item-info JSON endpoint for its color.
func (s *Arket) parseColor(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	doc, err := res.Document()
	if err != nil {
		return crawl.Outcome{}, err
	}

	swatches := doc.Find("div.color-swatch-container div.js-swatch")
	if swatches.Length() == 0 {
		return crawl.Outcome{}, nil
	}

	sectID := doc.Find(`form [name="sectId"]`).First().AttrOr("value", "")
	if sectID == "" {
		return crawl.Outcome{}, fmt.Errorf("sect id not found on product page")
	}

	var out crawl.Outcome
	swatches.Each(func(_ int, sel *goquery.Selection) {
		colorID := sel.Find("a.colorLink").First().AttrOr("data-slitm-cd", "")
		if colorID == "" {
			return
		}
		out.Links = append(out.Links, crawl.Link{
			URL: fmt.Sprintf("%spda/changeItemInfo.html?slitmCd=%s&sectId=%s&preview=false",
				s.base, colorID, sectID),
			Stage:   crawl.StageDetail,
			Context: cc.Fork(),
		})
	})
	return out, nil
}

// arketDetail is the item-info JSON payload shape. Prices are KRW integers;
// stockCount is loosely typed across payload variants.
type arketDetail struct {
	ItemPtc struct {
		Name         string  `json:"engItemNm"`
		ColorName    string  `json:"clrEngNm"`
		SellPrice    float64 `json:"sellPrc"`
		ListPrice    float64 `json:"csmPrc"`
		InfoSections []struct {
			Title   string `json:"itstTitl"`
			Content string `json:"itstCntn"`
		} `json:"itstInfoList"`
	} `json:"itemPtc"`
	Images []struct {
		FileName string `json:"imflNm"`
	} `json:"imgList"`
	Articles []struct {
		ArticleCode string `json:"articleCd"`
		Sizes       []struct {
			Name  string `json:"u2aNm"`
			Stock any    `json:"stockCount"`
		} `json:"sizeAndStockVOList"`
	} `json:"sizeAndStockBySlitmCdList"`
}

func (s *Arket) parseDetail(res *fetch.Response, cc models.CrawlContext) (crawl.Outcome, error) {
	var payload arketDetail
	if err := res.JSON(&payload); err != nil {
		return crawl.Outcome{}, err
	}
	if len(payload.Articles) == 0 {
		return crawl.Outcome{}, fmt.Errorf("no article data in detail payload")
	}
	article := payload.Articles[0]

	var sizes []models.VariantInfo
	for _, sz := range article.Sizes {
		status, qty := parser.StockFromRaw(sz.Stock)
		sizes = append(sizes, models.VariantInfo{
			Name:     sz.Name,
			Stock:    status,
			Quantity: qty,
		})
	}

	var imgs []string
	for _, img := range payload.Images {
		if u := arketImageURL(img.FileName); u != "" {
			imgs = append(imgs, u)
		}
	}

	current, original := parser.ResolvePrices(payload.ItemPtc.SellPrice, payload.ItemPtc.ListPrice)

	rec := &models.ProductRecord{
		Key:           article.ArticleCode,
		URL:           res.URL,
		Title:         payload.ItemPtc.Name,
		Description:   parser.Description(s.description(payload)),
		CategoryPath:  cc.CategoryPath,
		ColorName:     payload.ItemPtc.ColorName,
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

// description flattens the titled info sections into "title\ncontent"
// blocks, the same shape the DOM-based sites produce.
func (s *Arket) description(payload arketDetail) string {
	var sections []string
	for _, sec := range payload.ItemPtc.InfoSections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			continue
		}
		sections = append(sections, title+"\n"+strings.TrimSpace(sec.Content))
	}
	return strings.Join(sections, "\n\n")
}

// arketImageURL expands an image file name into its CDN path: the last
// three digits of the name (reversed) and two slices of its date prefix
// form the directory shards.
func arketImageURL(name string) string {
	if len(name) < 10 {
		return ""
	}
	n := len(name)
	return fmt.Sprintf("%s%c/%c/%c/%s/%s/%s",
		arketImageBase, name[n-8], name[n-9], name[n-10], name[7:9], name[5:7], name)
}
