package parser

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/catalog-crawler/internal/models"
)

func TestResolvePrices(t *testing.T) {
	tests := []struct {
		name             string
		current          float64
		original         float64
		wantCurrent      float64
		wantOriginal     float64
	}{
		{"discounted", 49.99, 79.99, 49.99, 79.99},
		{"no original price", 49.99, 0, 49.99, 49.99},
		{"original below current", 49.99, 20.00, 49.99, 49.99},
		{"equal prices", 49.99, 49.99, 49.99, 49.99},
		{"zero prices", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, original := ResolvePrices(tt.current, tt.original)
			assert.Equal(t, tt.wantCurrent, current)
			assert.Equal(t, tt.wantOriginal, original)
			assert.LessOrEqual(t, current, original)
		})
	}
}

func TestParsePriceText(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"€ 49,95", 49.95},
		{"€ 1.234,56", 1234.56},
		{"£1,234.56", 1234.56},
		{"$59.00", 59},
		{"PKR 4,990", 4990},
		{"PKR 1,234,990", 1234990},
		{"$1,299", 1299},
		{"₩ 129,000", 129000},
		{"€ 1.299.000", 1299000},
		{"€ 1.299,-", 1299},
		{"49,95", 49.95},
		{"4,99", 4.99},
		{"  129  ", 129},
		{"", 0},
		{"Sold out", 0},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePriceText(tt.text))
		})
	}
}

func TestStockNormalization(t *testing.T) {
	t.Run("from count", func(t *testing.T) {
		status, qty := StockFromCount(3)
		assert.Equal(t, models.StockWithQuantity, status)
		assert.Equal(t, 3, qty)

		status, qty = StockFromCount(0)
		assert.Equal(t, models.StockUnavailable, status)
		assert.Zero(t, qty)
	})

	t.Run("from bool", func(t *testing.T) {
		assert.Equal(t, models.StockAvailable, StockFromBool(true))
		assert.Equal(t, models.StockUnavailable, StockFromBool(false))
	})

	t.Run("from status string", func(t *testing.T) {
		assert.Equal(t, models.StockAvailable, StockFromStatus("InStock"))
		assert.Equal(t, models.StockAvailable, StockFromStatus("selectable"))
		assert.Equal(t, models.StockUnavailable, StockFromStatus("sold_out"))
		assert.Equal(t, models.StockUnavailable, StockFromStatus(""))
		assert.Equal(t, models.StockUnavailable, StockFromStatus("backordered"))
	})

	t.Run("from raw json value", func(t *testing.T) {
		status, qty := StockFromRaw(true)
		assert.Equal(t, models.StockAvailable, status)
		assert.Zero(t, qty)

		status, qty = StockFromRaw(float64(7))
		assert.Equal(t, models.StockWithQuantity, status)
		assert.Equal(t, 7, qty)

		status, qty = StockFromRaw("2")
		assert.Equal(t, models.StockWithQuantity, status)
		assert.Equal(t, 2, qty)

		status, _ = StockFromRaw("out of stock")
		assert.Equal(t, models.StockUnavailable, status)

		status, _ = StockFromRaw(nil)
		assert.Equal(t, models.StockUnavailable, status)
	})
}

func TestIsStitchedName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"M Stitched", true},
		{"stitched / L", true},
		{"XL", true},
		{"S", true},
		{"UNSTITCHED", false},
		{"Small", false},
		{"Fabric Only", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStitchedName(tt.name))
		})
	}
}

func TestClassifyVariants(t *testing.T) {
	raw := []models.VariantInfo{
		{Name: "M Stitched"},
		{Name: "UNSTITCHED"},
		{Name: "XL"},
	}

	stitched, rest := ClassifyVariants(raw)

	require.Len(t, stitched, 2)
	assert.Equal(t, "M Stitched", stitched[0].Name)
	assert.Equal(t, "XL", stitched[1].Name)

	require.Len(t, rest, 1)
	assert.Equal(t, "UNSTITCHED", rest[0].Name)
}

func TestDescription(t *testing.T) {
	assert.Equal(t, "Soft cotton kurta.", Description("  Soft cotton kurta.  "))
	assert.Equal(t, DescriptionFallback, Description(""))
	assert.Equal(t, DescriptionFallback, Description("   \n  "))
}

func TestDecodeEmbedded(t *testing.T) {
	re := regexp.MustCompile(`product: ({.*?}),\s*collectionId:`)

	t.Run("decodes capture group", func(t *testing.T) {
		var payload struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		}
		script := `var meta = { product: {"id": 42, "title": "Kurta"}, collectionId: 7 };`

		err := DecodeEmbedded(re, script, &payload)
		require.NoError(t, err)
		assert.Equal(t, 42, payload.ID)
		assert.Equal(t, "Kurta", payload.Title)
	})

	t.Run("missing payload", func(t *testing.T) {
		var payload map[string]any
		err := DecodeEmbedded(re, "nothing here", &payload)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("malformed payload", func(t *testing.T) {
		var payload map[string]any
		err := DecodeEmbedded(re, `product: {"id": }, collectionId: 7`, &payload)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode")
	})
}
