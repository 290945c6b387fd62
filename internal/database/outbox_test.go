package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/catalog-crawler/internal/models"
)

func TestCalculateNextRetryTime(t *testing.T) {
	now := time.Now()

	tests := []struct {
		retryCount  int
		wantSeconds int
	}{
		{1, 2},
		{2, 4},
		{3, 8},
		{4, 16},
		{10, 300}, // capped at 5 minutes
	}

	for _, tt := range tests {
		next := calculateNextRetryTime(tt.retryCount)
		delta := next.Sub(now)

		assert.InDelta(t, float64(tt.wantSeconds), delta.Seconds(), 1.0,
			"retry %d should back off ~%ds", tt.retryCount, tt.wantSeconds)
	}
}

func TestProductStore_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	store := NewProductStore(db)

	rec := &models.ProductRecord{
		Key:          "kurta-101",
		URL:          "https://mohagni.com/products/kurta-101",
		Title:        "Chiffon Kurta",
		Description:  "Embroidered chiffon kurta.",
		CategoryPath: []string{"Lawn Collection"},
		CountryCode:  "PK",
		LanguageCode: "en",
		Currency:     "PKR",
		Variants: []models.VariantInfo{
			{Name: "M Stitched", CurrentPrice: 4990, OriginalPrice: 5990, Stock: models.StockAvailable},
		},
		VariantPrices: true,
	}

	inserted, err := store.InsertIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Second insert with the same natural key is a no-op.
	inserted, err = store.InsertIfAbsent(ctx, rec)
	require.NoError(t, err)
	assert.False(t, inserted)

	// The first insert also queued a discovery event.
	events, err := NewOutboxRepository(db).GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventProductDiscovered, events[0].EventType)
	assert.Equal(t, "kurta-101", events[0].AggregateID)
}

// setupTestDB creates a test database connection
// In a real implementation, this would use a test container or test database
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	// For now, we'll skip if no test DB is available
	t.Skip("Test database not configured")
	return nil
}
