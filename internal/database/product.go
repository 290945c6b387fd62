package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/catalog-crawler/internal/models"
)

// StoredProduct is a product row as persisted, with the JSONB columns decoded.
type StoredProduct struct {
	NaturalKey    string               `json:"natural_key"`
	URL           string               `json:"url"`
	Title         string               `json:"title"`
	Brand         string               `json:"brand"`
	Description   string               `json:"description"`
	CategoryPath  []string             `json:"category_path"`
	ColorName     string               `json:"color_name,omitempty"`
	ImageURLs     []string             `json:"image_urls"`
	CountryCode   string               `json:"country_code"`
	LanguageCode  string               `json:"language_code"`
	Currency      string               `json:"currency"`
	Variants      []models.VariantInfo `json:"variants"`
	VariantPrices bool                 `json:"variant_prices"`
	CurrentPrice  float64              `json:"current_price"`
	OriginalPrice float64              `json:"original_price"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ProductStore persists crawled products with natural-key deduplication.
// Every first insert also writes a PRODUCT_DISCOVERED event to the outbox
// in the same transaction.
type ProductStore struct {
	db     *DB
	outbox *OutboxRepository
}

func NewProductStore(db *DB) *ProductStore {
	return &ProductStore{db: db, outbox: NewOutboxRepository(db)}
}

// InsertIfAbsent stores the record unless a row with the same natural key
// already exists. It reports whether a row was inserted.
func (s *ProductStore) InsertIfAbsent(ctx context.Context, rec *models.ProductRecord) (bool, error) {
	variantsJSON, err := json.Marshal(rec.Variants)
	if err != nil {
		return false, fmt.Errorf("failed to marshal variants: %w", err)
	}
	categoriesJSON, err := json.Marshal(rec.CategoryPath)
	if err != nil {
		return false, fmt.Errorf("failed to marshal category path: %w", err)
	}
	imagesJSON, err := json.Marshal(rec.ImageURLs)
	if err != nil {
		return false, fmt.Errorf("failed to marshal image urls: %w", err)
	}

	inserted := false
	err = s.db.WithTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO catalog_products (
				natural_key, url, title, brand, description,
				category_path, color_name, image_urls,
				country_code, language_code, currency,
				variants, variant_prices, current_price, original_price
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
			)
			ON CONFLICT (natural_key) DO NOTHING`

		tag, err := tx.Exec(ctx, query,
			rec.Key, rec.URL, rec.Title, rec.Brand, rec.Description,
			categoriesJSON, rec.ColorName, imagesJSON,
			rec.CountryCode, rec.LanguageCode, rec.Currency,
			variantsJSON, rec.VariantPrices, rec.CurrentPrice, rec.OriginalPrice,
		)
		if err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}

		if tag.RowsAffected() == 0 {
			return nil
		}
		inserted = true

		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}

		return s.outbox.InsertWithTx(ctx, tx, &OutboxEvent{
			AggregateType: "product",
			AggregateID:   rec.Key,
			EventType:     EventProductDiscovered,
			Payload:       payload,
		})
	})
	if err != nil {
		return false, err
	}

	return inserted, nil
}

// Exists reports whether a product with the given natural key is stored.
func (s *ProductStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM catalog_products WHERE natural_key = $1)", key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return exists, nil
}

// Get retrieves a product by natural key, or nil if absent.
func (s *ProductStore) Get(ctx context.Context, key string) (*StoredProduct, error) {
	query := `
		SELECT natural_key, url, title, brand, description,
			   category_path, color_name, image_urls,
			   country_code, language_code, currency,
			   variants, variant_prices, current_price, original_price, created_at
		FROM catalog_products
		WHERE natural_key = $1`

	p, err := scanProduct(s.db.pool.QueryRow(ctx, query, key))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// List returns the most recently stored products.
func (s *ProductStore) List(ctx context.Context, limit, offset int) ([]*StoredProduct, error) {
	query := `
		SELECT natural_key, url, title, brand, description,
			   category_path, color_name, image_urls,
			   country_code, language_code, currency,
			   variants, variant_prices, current_price, original_price, created_at
		FROM catalog_products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := s.db.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*StoredProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return products, nil
}

// CountByCountry returns stored product counts grouped by country code.
func (s *ProductStore) CountByCountry(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.pool.Query(ctx,
		"SELECT country_code, COUNT(*) FROM catalog_products GROUP BY country_code")
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var country string
		var count int
		if err := rows.Scan(&country, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[country] = count
	}

	return counts, nil
}

func scanProduct(row pgx.Row) (*StoredProduct, error) {
	p := &StoredProduct{}
	var categoriesJSON, imagesJSON, variantsJSON []byte

	err := row.Scan(
		&p.NaturalKey, &p.URL, &p.Title, &p.Brand, &p.Description,
		&categoriesJSON, &p.ColorName, &imagesJSON,
		&p.CountryCode, &p.LanguageCode, &p.Currency,
		&variantsJSON, &p.VariantPrices, &p.CurrentPrice, &p.OriginalPrice, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(categoriesJSON, &p.CategoryPath); err != nil {
		return nil, fmt.Errorf("failed to unmarshal category path: %w", err)
	}
	if err := json.Unmarshal(imagesJSON, &p.ImageURLs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal image urls: %w", err)
	}
	if err := json.Unmarshal(variantsJSON, &p.Variants); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
	}

	return p, nil
}
