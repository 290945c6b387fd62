package site

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/catalog-crawler/internal/crawl"
	"github.com/maltedev/catalog-crawler/internal/models"
)

var mohagniSeed = Seed{
	HomeURL:  "https://mohagni.com",
	Country:  "PK",
	Language: "en",
	Currency: "PKR",
}

func mohagniContext() models.CrawlContext {
	return models.NewCrawlContext("PK", "en", "PKR")
}

func TestMohagni_ParseHome(t *testing.T) {
	body := `
<div class="swiper">
  <a href="/collections/lawn">Lawn</a>
  <a href="/collections/festive">Festive</a>
</div>
<ul class="multicolumn-list">
  <li><a href="/collections/lawn">Lawn</a></li>
  <li><a href="/collections/winter">Winter</a></li>
</ul>`

	s := NewMohagni(mohagniSeed)
	out, err := s.Parse(crawl.StageHome, htmlResponse("https://mohagni.com", body), mohagniContext())
	require.NoError(t, err)

	// Duplicated category links collapse to one fetch each.
	require.Len(t, out.Links, 3)
	var urls []string
	for _, l := range out.Links {
		urls = append(urls, l.URL)
		assert.Equal(t, crawl.StageNav, l.Stage)
	}
	assert.ElementsMatch(t, []string{
		"https://mohagni.com/collections/lawn",
		"https://mohagni.com/collections/festive",
		"https://mohagni.com/collections/winter",
	}, urls)
}

func TestMohagni_ParseCategory(t *testing.T) {
	body := `
<h2 class="collection-hero__title">Mohagni</h2>
<h2 class="collection-hero__title">
  Lawn Collection
</h2>
<ul class="pagination__list">
  <li><a href="/collections/lawn?page=2">2</a></li>
  <li><a href="/collections/lawn?page=3">3</a></li>
</ul>`

	s := NewMohagni(mohagniSeed)
	out, err := s.Parse(crawl.StageNav, htmlResponse("https://mohagni.com/collections/lawn", body), mohagniContext())
	require.NoError(t, err)

	require.Len(t, out.Links, 3)

	var urls []string
	for _, l := range out.Links {
		urls = append(urls, l.URL)
		assert.Equal(t, crawl.StageListing, l.Stage)
		assert.Equal(t, []string{"Lawn Collection"}, l.Context.CategoryPath)
	}
	sort.Strings(urls)
	assert.Equal(t, []string{
		"https://mohagni.com/collections/lawn?page=1",
		"https://mohagni.com/collections/lawn?page=2",
		"https://mohagni.com/collections/lawn?page=3",
	}, urls)
}

func TestMohagni_ParseCategory_MissingTitle(t *testing.T) {
	s := NewMohagni(mohagniSeed)

	_, err := s.Parse(crawl.StageNav, htmlResponse("https://mohagni.com/collections/lawn",
		`<h2 class="collection-hero__title">Mohagni</h2>`), mohagniContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "category title not found")
}

func TestMohagni_ParseListing(t *testing.T) {
	body := `
<ul>
  <li class="grid__item"><a class="full-unstyled-link" href="/products/kurta-101">Kurta</a></li>
  <li class="grid__item"><a class="full-unstyled-link" href="/products/kurta-102">Kurta 2</a></li>
  <li class="grid__item"><span>sold out tile without link</span></li>
</ul>`

	s := NewMohagni(mohagniSeed)
	cc := mohagniContext().WithCategory("Lawn Collection")

	out, err := s.Parse(crawl.StageListing, htmlResponse("https://mohagni.com/collections/lawn?page=1", body), cc)
	require.NoError(t, err)

	require.Len(t, out.Links, 2)
	assert.Equal(t, "https://mohagni.com/products/kurta-101", out.Links[0].URL)
	assert.Equal(t, crawl.StageDetail, out.Links[0].Stage)
	assert.Equal(t, []string{"Lawn Collection"}, out.Links[0].Context.CategoryPath)
}

const mohagniStitchedJSON = `[
  {"title": "S / Stitched", "price": 499000, "compare_at_price": 599000, "available": true},
  {"title": "M / Stitched", "price": 499000, "compare_at_price": 599000, "available": false},
  {"title": "Unstitched Fabric", "price": 399000, "compare_at_price": null, "available": true}
]`

const mohagniThemeScript = `
window.theme = window.theme || {};
var meta = { product: {"title": "Chiffon Kurta", "price": 399000, "compare_at_price": null, "available": true}, collectionId: 42 };
`

func mohagniDetailBody(optionLabel string) string {
	return `
<div class="product__title"><h1>Chiffon Kurta</h1></div>
<fieldset class="product-form__input">
  <legend class="form__label">` + optionLabel + `</legend>
</fieldset>
<variant-radios class="no-js-hidden">
  <script type="application/json">` + mohagniStitchedJSON + `</script>
</variant-radios>
<script type="text/javascript">` + mohagniThemeScript + `</script>
<script type="application/ld+json">{"@type": "BreadcrumbList"}</script>
<script type="application/ld+json">{"@type": "Product", "gtin14": 01234567890123, "description": "Embroidered chiffon kurta."}</script>
<ul>
  <li class="product__media-item">
    <div class="product__media"><img src="//cdn.mohagni.com/kurta-101-a.jpg"></div>
  </li>
  <li class="product__media-item">
    <div class="product__media"><img src="//cdn.mohagni.com/kurta-101-a.jpg"></div>
  </li>
</ul>`
}

func TestMohagni_ParseDetail_StyleOption(t *testing.T) {
	s := NewMohagni(mohagniSeed)
	cc := mohagniContext().WithCategory("Lawn Collection")

	out, err := s.Parse(crawl.StageDetail,
		htmlResponse("https://mohagni.com/products/kurta-101", mohagniDetailBody("Style")), cc)
	require.NoError(t, err)
	require.NotNil(t, out.Record)

	rec := out.Record
	assert.Equal(t, "kurta-101", rec.Key)
	assert.Equal(t, "Chiffon Kurta", rec.Title)
	assert.Equal(t, "Embroidered chiffon kurta.", rec.Description)
	assert.True(t, rec.VariantPrices)
	assert.Equal(t, "PK", rec.CountryCode)
	assert.Equal(t, "PKR", rec.Currency)

	// Two stitched sizes plus the synthesized unstitched base.
	require.Len(t, rec.Variants, 3)

	assert.Equal(t, "S / Stitched", rec.Variants[0].Name)
	assert.Equal(t, 4990.0, rec.Variants[0].CurrentPrice)
	assert.Equal(t, 5990.0, rec.Variants[0].OriginalPrice)
	assert.Equal(t, models.StockAvailable, rec.Variants[0].Stock)

	assert.Equal(t, "M / Stitched", rec.Variants[1].Name)
	assert.Equal(t, models.StockUnavailable, rec.Variants[1].Stock)

	assert.Equal(t, "UNSTITCHED", rec.Variants[2].Name)
	assert.Equal(t, 3990.0, rec.Variants[2].CurrentPrice)
	assert.Equal(t, 3990.0, rec.Variants[2].OriginalPrice)

	assert.Equal(t, []string{"https://cdn.mohagni.com/kurta-101-a.jpg"}, rec.ImageURLs)
	assert.Empty(t, rec.Validate())
}

func TestMohagni_ParseDetail_SizeOption(t *testing.T) {
	s := NewMohagni(mohagniSeed)

	out, err := s.Parse(crawl.StageDetail,
		htmlResponse("https://mohagni.com/products/kurta-101", mohagniDetailBody("Size")), mohagniContext())
	require.NoError(t, err)

	// Size-only products carry stitched entries and no unstitched base.
	require.Len(t, out.Record.Variants, 2)
	assert.Equal(t, "S / Stitched", out.Record.Variants[0].Name)
	assert.Equal(t, "M / Stitched", out.Record.Variants[1].Name)
}

func TestMohagni_ParseDetail_NoOptionLabel(t *testing.T) {
	s := NewMohagni(mohagniSeed)

	out, err := s.Parse(crawl.StageDetail,
		htmlResponse("https://mohagni.com/products/kurta-101", mohagniDetailBody("")), mohagniContext())
	require.NoError(t, err)

	require.Len(t, out.Record.Variants, 1)
	assert.Equal(t, "UNSTITCHED", out.Record.Variants[0].Name)
	assert.Equal(t, 3990.0, out.Record.Variants[0].CurrentPrice)
}

func TestMohagni_ParseDetail_NoIdentifier(t *testing.T) {
	s := NewMohagni(mohagniSeed)

	_, err := s.Parse(crawl.StageDetail,
		htmlResponse("https://mohagni.com/pages/about", mohagniDetailBody("Style")), mohagniContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no product identifier")
}

func TestMohagni_ParseDetail_BrokenLDJSON(t *testing.T) {
	body := `
<div class="product__title"><h1>Chiffon Kurta</h1></div>
<script type="text/javascript">` + mohagniThemeScript + `</script>
<script type="application/ld+json">{}</script>
<script type="application/ld+json">{not json at all</script>`

	s := NewMohagni(mohagniSeed)
	out, err := s.Parse(crawl.StageDetail,
		htmlResponse("https://mohagni.com/products/kurta-101", body), mohagniContext())
	require.NoError(t, err)

	// A broken description block degrades to the fallback, not an error.
	assert.Equal(t, "Not provided", out.Record.Description)
}
