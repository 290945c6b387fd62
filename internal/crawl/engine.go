package crawl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/maltedev/catalog-crawler/internal/fetch"
	"github.com/maltedev/catalog-crawler/internal/models"
	"github.com/maltedev/catalog-crawler/internal/ratelimit"
)

// Fetcher retrieves one page. fetch.Client is the production implementation;
// tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, url string, cc models.CrawlContext) (*fetch.Response, error)
}

// Sink persists emitted records with at-most-once-per-key semantics.
// InsertIfAbsent reports true when the record was inserted and false when an
// existing natural key blocked it.
type Sink interface {
	InsertIfAbsent(ctx context.Context, rec *models.ProductRecord) (bool, error)
}

// Stats accumulates counts over one crawl run.
type Stats struct {
	mu sync.Mutex

	PagesFetched   int
	FetchFailures  int
	ParseFailures  int
	Emitted        int
	Inserted       int
	Duplicates     int
	SinkFailures   int
	InvalidRecords int
	// ProductsPerCategory counts emitted records per joined category path.
	ProductsPerCategory map[string]int
	// ListedPerCategory aggregates the per-branch context counters: product
	// tiles seen on listing pages, before color expansion and dedup.
	ListedPerCategory map[string]int
}

func newStats() *Stats {
	return &Stats{
		ProductsPerCategory: make(map[string]int),
		ListedPerCategory:   make(map[string]int),
	}
}

// Config bounds one crawl run.
type Config struct {
	// Workers is the number of concurrent branches. Branches share nothing
	// mutable except the sink.
	Workers int
	// MaxPages caps the listing pagination self-loop per branch so a site
	// reporting a bogus next-page chain cannot loop forever.
	MaxPages int
}

// Engine walks one site's traversal graph. Sibling branches run
// concurrently; a failed fetch or parse is local to its branch and never
// aborts the crawl.
type Engine struct {
	site    Site
	fetcher Fetcher
	sink    Sink
	limiter ratelimit.Limiter
	logger  *slog.Logger
	cfg     Config
}

// New builds an engine. A nil limiter disables inter-request delays.
func New(site Site, fetcher Fetcher, sink Sink, limiter ratelimit.Limiter, logger *slog.Logger, cfg Config) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 50
	}
	return &Engine{
		site:    site,
		fetcher: fetcher,
		sink:    sink,
		limiter: limiter,
		logger:  logger.With("component", "engine", "site", site.Name()),
		cfg:     cfg,
	}
}

// Run crawls the site's seeds to completion and returns the accumulated
// stats. The returned error is non-nil only when the context was canceled;
// per-branch failures are counted, logged and swallowed.
func (e *Engine) Run(ctx context.Context) (*Stats, error) {
	stats := newStats()
	frontier := NewFrontier()

	// pending tracks tasks on the frontier plus tasks being processed.
	// Once it drains to zero no new work can appear, so the frontier
	// closes and the workers exit.
	var pending sync.WaitGroup

	seeds := e.site.Seeds()
	if len(seeds) == 0 {
		return stats, nil
	}
	for _, seed := range seeds {
		pending.Add(1)
		if err := frontier.Push(NewTask(seed)); err != nil {
			pending.Done()
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		pending.Wait()
		frontier.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			frontier.Close()
		case <-done:
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < e.cfg.Workers; i++ {
		g.Go(func() error {
			for {
				task, err := frontier.Pop(gctx)
				if err != nil {
					if errors.Is(err, ErrFrontierClosed) {
						return gctx.Err()
					}
					return err
				}
				if gctx.Err() != nil {
					// Canceled mid-drain: drop the task unprocessed.
					pending.Done()
					continue
				}
				e.process(gctx, task, frontier, &pending, stats)
			}
		})
	}

	err := g.Wait()

	// Release tasks stranded on the frontier by cancellation so the
	// pending watcher can finish.
	for {
		if _, popErr := frontier.Pop(context.Background()); popErr != nil {
			break
		}
		pending.Done()
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return stats, err
	}
	return stats, ctx.Err()
}

// process handles one frontier task end to end. All failures are
// branch-local: they are logged, counted and dropped here.
func (e *Engine) process(ctx context.Context, task *Task, frontier *Frontier, pending *sync.WaitGroup, stats *Stats) {
	defer pending.Done()

	log := e.logger.With("stage", task.Stage.String(), "url", task.URL)

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return
		}
	}

	res, err := e.fetcher.Fetch(ctx, task.URL, task.Context)
	if err != nil {
		log.Warn("fetch failed, abandoning branch", "error", err)
		e.recordFetchError(stats)
		return
	}
	e.recordFetchSuccess(stats)

	outcome, err := e.site.Parse(task.Stage, res, task.Context)
	if err != nil {
		log.Warn("parse failed, abandoning branch", "error", err)
		stats.mu.Lock()
		stats.ParseFailures++
		stats.mu.Unlock()
		return
	}

	e.foldCounters(task.Context, outcome.Links, stats)

	for _, link := range outcome.Links {
		if link.URL == "" {
			continue
		}
		e.enqueue(frontier, pending, NewTask(link))
	}

	if outcome.NextPage != "" {
		if task.Page >= e.cfg.MaxPages {
			log.Warn("pagination cap reached, not following next page",
				"page", task.Page, "max_pages", e.cfg.MaxPages)
		} else {
			next := &Task{
				ID:      task.ID,
				URL:     outcome.NextPage,
				Stage:   StageListing,
				Context: task.Context,
				Page:    task.Page + 1,
			}
			e.enqueue(frontier, pending, next)
		}
	}

	if outcome.Record != nil {
		e.emit(ctx, outcome.Record, log, stats)
	}
}

// foldCounters rolls a stage's branch-counter increment into the run stats.
// A stage that bumps its branch counters hands the same incremented context
// to every child link, so the first link is representative; the delta
// against the parent context is the increment this page contributed.
// Counter state carried unchanged from the parent folds as zero, which
// keeps the aggregation exactly-once across the branch.
func (e *Engine) foldCounters(parent models.CrawlContext, links []Link, stats *Stats) {
	if len(links) == 0 {
		return
	}
	child := links[0].Context
	if len(child.Counters) == 0 {
		return
	}
	stats.mu.Lock()
	defer stats.mu.Unlock()
	for key, count := range child.Counters {
		if d := count - parent.Counters[key]; d > 0 {
			stats.ListedPerCategory[key] += d
		}
	}
}

func (e *Engine) enqueue(frontier *Frontier, pending *sync.WaitGroup, task *Task) {
	pending.Add(1)
	if err := frontier.Push(task); err != nil {
		pending.Done()
	}
}

// emit validates and persists one record.
func (e *Engine) emit(ctx context.Context, rec *models.ProductRecord, log *slog.Logger, stats *Stats) {
	stats.mu.Lock()
	stats.Emitted++
	stats.ProductsPerCategory[strings.Join(rec.CategoryPath, "/")]++
	stats.mu.Unlock()

	if problems := rec.Validate(); len(problems) > 0 {
		log.Warn("dropping invalid record", "key", rec.Key, "problems", strings.Join(problems, "; "))
		stats.mu.Lock()
		stats.InvalidRecords++
		stats.mu.Unlock()
		return
	}

	inserted, err := e.sink.InsertIfAbsent(ctx, rec)
	switch {
	case err != nil:
		log.Error("failed to persist record", "key", rec.Key, "error", err)
		stats.mu.Lock()
		stats.SinkFailures++
		stats.mu.Unlock()
	case inserted:
		log.Info("product stored", "key", rec.Key, "title", rec.Title, "variants", len(rec.Variants))
		stats.mu.Lock()
		stats.Inserted++
		stats.mu.Unlock()
	default:
		log.Warn("product already in database", "key", rec.Key)
		stats.mu.Lock()
		stats.Duplicates++
		stats.mu.Unlock()
	}
}

func (e *Engine) recordFetchSuccess(stats *Stats) {
	stats.mu.Lock()
	stats.PagesFetched++
	stats.mu.Unlock()
	if a, ok := e.limiter.(*ratelimit.Adaptive); ok {
		a.RecordSuccess()
	}
}

func (e *Engine) recordFetchError(stats *Stats) {
	stats.mu.Lock()
	stats.FetchFailures++
	stats.mu.Unlock()
	if a, ok := e.limiter.(*ratelimit.Adaptive); ok {
		a.RecordError()
	}
}
