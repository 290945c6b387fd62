package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maltedev/catalog-crawler/internal/crawl"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusCanceled  = "canceled"
)

// RunRepository records one row per crawl invocation so runs can be
// compared over time.
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// StartRun inserts a running row for the site and returns its id.
func (r *RunRepository) StartRun(ctx context.Context, site string) (uuid.UUID, error) {
	id := uuid.New()
	query := `
		INSERT INTO crawl_runs (id, site, status, started_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.pool.Exec(ctx, query, id, site, RunStatusRunning, time.Now())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start crawl run: %w", err)
	}
	return id, nil
}

// FinishRun closes the row with final status and counters.
func (r *RunRepository) FinishRun(ctx context.Context, id uuid.UUID, status string, stats *crawl.Stats) error {
	categoriesJSON, err := json.Marshal(stats.ProductsPerCategory)
	if err != nil {
		return fmt.Errorf("failed to marshal category counts: %w", err)
	}
	listedJSON, err := json.Marshal(stats.ListedPerCategory)
	if err != nil {
		return fmt.Errorf("failed to marshal listed counts: %w", err)
	}

	query := `
		UPDATE crawl_runs SET
			status = $2,
			finished_at = $3,
			pages_fetched = $4,
			fetch_failures = $5,
			parse_failures = $6,
			products_emitted = $7,
			products_inserted = $8,
			duplicates = $9,
			invalid_records = $10,
			category_counts = $11,
			listed_counts = $12
		WHERE id = $1`

	tag, err := r.db.pool.Exec(ctx, query,
		id, status, time.Now(),
		stats.PagesFetched, stats.FetchFailures, stats.ParseFailures,
		stats.Emitted, stats.Inserted, stats.Duplicates, stats.InvalidRecords,
		categoriesJSON, listedJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to finish crawl run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("crawl run not found: %s", id)
	}
	return nil
}
