package models

// StockStatus is the normalized three-way availability indicator. Raw site
// data arrives as booleans, stock counts or status strings and is collapsed
// by the parser package.
type StockStatus string

const (
	StockUnavailable StockStatus = "unavailable"
	StockAvailable   StockStatus = "available"
	// StockWithQuantity means the site reported a concrete remaining count.
	StockWithQuantity StockStatus = "available_with_quantity"
)

// VariantInfo is one purchasable size/style option of a product.
type VariantInfo struct {
	Name          string      `json:"name"`
	CurrentPrice  float64     `json:"current_price"`
	OriginalPrice float64     `json:"original_price"`
	Stock         StockStatus `json:"stock"`
	// Quantity is only meaningful when Stock is StockWithQuantity.
	Quantity int `json:"quantity,omitempty"`
}

// ProductRecord is the canonical output of a detail-stage fetch. Records are
// built once by a site extractor and treated as immutable afterwards.
type ProductRecord struct {
	// Key is the natural dedup key: the product URL or a site identifier
	// such as a base SKU.
	Key          string        `json:"key"`
	URL          string        `json:"url"`
	Title        string        `json:"title"`
	Brand        string        `json:"brand,omitempty"`
	Description  string        `json:"description"`
	CategoryPath []string      `json:"category_path"`
	ColorName    string        `json:"color_name,omitempty"`
	ImageURLs    []string      `json:"image_urls"`
	CountryCode  string        `json:"country_code"`
	LanguageCode string        `json:"language_code"`
	Currency     string        `json:"currency"`
	Variants     []VariantInfo `json:"variants"`

	// VariantPrices reports whether pricing lives on each variant. When
	// false, CurrentPrice/OriginalPrice hold the product-level prices and
	// the variant entries carry sizes and stock only.
	VariantPrices bool    `json:"variant_prices"`
	CurrentPrice  float64 `json:"current_price,omitempty"`
	OriginalPrice float64 `json:"original_price,omitempty"`
}

// Validate returns a list of problems that make the record unfit for the
// sink. An empty slice means the record may be persisted.
func (p *ProductRecord) Validate() []string {
	var errs []string

	if p.Key == "" {
		errs = append(errs, "natural key is required")
	}
	if p.Title == "" {
		errs = append(errs, "title is required")
	}
	if p.CountryCode == "" {
		errs = append(errs, "country code is required")
	}
	if p.Currency == "" {
		errs = append(errs, "currency is required")
	}
	for _, v := range p.Variants {
		if v.Name == "" {
			errs = append(errs, "variant name is required")
			continue
		}
		if v.OriginalPrice > 0 && v.CurrentPrice > v.OriginalPrice {
			errs = append(errs, "variant "+v.Name+": current price exceeds original price")
		}
	}

	return errs
}
