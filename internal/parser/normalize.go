// Package parser normalizes heterogeneous per-site raw fields into the
// canonical product/variant schema. Site extractors pull strings, numbers
// and embedded JSON out of responses; everything passes through here before
// a ProductRecord is built.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/maltedev/catalog-crawler/internal/models"
)

// DescriptionFallback keeps the persisted schema total: a missing or empty
// description is stored as this sentinel, never as an empty string.
const DescriptionFallback = "Not provided"

// stitchPattern matches stitch-size tokens in a variant display name. Names
// carrying one of these tokens are treated as stitched-class variants. This
// is a heuristic: a title containing an incidental size token is
// misclassified, and the sites give nothing better to key on.
var stitchPattern = regexp.MustCompile(`(?i)\b(STITCHED|S|M|L|XL)\b`)

// ResolvePrices applies the compare-at rule: when no original/list price is
// known (zero), the current price is authoritative for both. The result
// always satisfies current <= original.
func ResolvePrices(current, original float64) (float64, float64) {
	if original <= 0 || original < current {
		original = current
	}
	return current, original
}

// ParsePriceText extracts a numeric amount from formatted price text such
// as "€ 1.234,56", "£1,234.56", "PKR 4,990" or "49,95". It returns 0 for
// text without any digits.
func ParsePriceText(text string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			return r
		default:
			return -1
		}
	}, text)
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma > lastDot:
		// Comma is the rightmost separator. A trailing group of exactly
		// three digits is thousands grouping ("4,990", "1,234,990");
		// one or two digits make it a decimal part ("49,95").
		if len(cleaned)-lastComma-1 == 3 {
			cleaned = strings.NewReplacer(",", "", ".", "").Replace(cleaned)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case lastDot > lastComma:
		// Dot is the rightmost separator; commas group thousands. More
		// than one dot means dots group too ("1.299.000").
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		if strings.Count(cleaned, ".") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// StockFromCount collapses a numeric remaining count to the three-way
// indicator, keeping the count when positive.
func StockFromCount(n int) (models.StockStatus, int) {
	if n > 0 {
		return models.StockWithQuantity, n
	}
	return models.StockUnavailable, 0
}

// StockFromBool collapses a boolean availability flag.
func StockFromBool(available bool) models.StockStatus {
	if available {
		return models.StockAvailable
	}
	return models.StockUnavailable
}

// StockFromStatus collapses an enumerated status string. Unknown statuses
// are treated as unavailable.
func StockFromStatus(status string) models.StockStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "instock", "in_stock", "in stock", "available", "selectable", "true", "1":
		return models.StockAvailable
	case "outofstock", "out_of_stock", "out of stock", "soldout", "sold_out", "unavailable", "false", "0", "":
		return models.StockUnavailable
	default:
		return models.StockUnavailable
	}
}

// StockFromRaw collapses a value decoded from loosely-typed JSON: booleans,
// numbers and status strings all map to the three-way indicator.
func StockFromRaw(v any) (models.StockStatus, int) {
	switch val := v.(type) {
	case bool:
		return StockFromBool(val), 0
	case float64:
		return StockFromCount(int(val))
	case int:
		return StockFromCount(val)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return StockFromCount(n)
		}
		return StockFromStatus(val), 0
	case nil:
		return models.StockUnavailable, 0
	default:
		return models.StockUnavailable, 0
	}
}

// IsStitchedName reports whether a variant display name carries a
// stitch-size token.
func IsStitchedName(name string) bool {
	return stitchPattern.MatchString(name)
}

// ClassifyVariants splits a raw variant list into the stitched class and
// the remainder by display-name keyword. Callers merge the remainder with
// any separately-fetched unstitched base payload.
func ClassifyVariants(raw []models.VariantInfo) (stitched, rest []models.VariantInfo) {
	for _, v := range raw {
		if IsStitchedName(v.Name) {
			stitched = append(stitched, v)
		} else {
			rest = append(rest, v)
		}
	}
	return stitched, rest
}

// Description returns the text trimmed, or the fallback sentinel when the
// site provided nothing.
func Description(text string) string {
	if t := strings.TrimSpace(text); t != "" {
		return t
	}
	return DescriptionFallback
}

// DecodeEmbedded applies a capture pattern to inline script text and decodes
// the first capture group as JSON. Malformed payloads are reported, never
// panicked on; the caller skips the affected product and moves on.
func DecodeEmbedded(re *regexp.Regexp, text string, v any) error {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return fmt.Errorf("embedded payload not found")
	}
	if err := json.Unmarshal([]byte(m[1]), v); err != nil {
		return fmt.Errorf("failed to decode embedded payload: %w", err)
	}
	return nil
}
