package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maltedev/catalog-crawler/internal/config"
	"github.com/maltedev/catalog-crawler/internal/crawl"
	"github.com/maltedev/catalog-crawler/internal/database"
	"github.com/maltedev/catalog-crawler/internal/fetch"
	"github.com/maltedev/catalog-crawler/internal/ratelimit"
	"github.com/maltedev/catalog-crawler/internal/site"
	"github.com/maltedev/catalog-crawler/pkg/logger"
)

func main() {
	siteFlag := flag.String("site", "", "site to crawl ("+strings.Join(site.Names(), ", ")+"); empty crawls all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		os.Stderr.WriteString("invalid config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("shutdown requested, stopping crawl")
		cancel()
	}()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	names := site.Names()
	if *siteFlag != "" {
		names = []string{*siteFlag}
	}

	store := database.NewProductStore(db)
	runs := database.NewRunRepository(db)

	for _, name := range names {
		if err := crawlSite(ctx, name, cfg, store, runs, log); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			log.Error("crawl failed", "site", name, "error", err)
			db.Close()
			os.Exit(1)
		}
	}
}

func crawlSite(ctx context.Context, name string, cfg *config.Config, store *database.ProductStore, runs *database.RunRepository, log *slog.Logger) error {
	seed, ok := cfg.Sites.Seed(name)
	if !ok {
		return errors.New("no seed configured for site " + name)
	}

	s, err := site.New(name, site.Seed{
		HomeURL:  seed.HomeURL,
		Country:  seed.Country,
		Language: seed.Language,
		Currency: seed.Currency,
	})
	if err != nil {
		return err
	}

	client := fetch.NewClient(fetch.Options{
		Timeout:    cfg.Crawler.FetchTimeout,
		UserAgents: cfg.Crawler.UserAgents,
	}, log)

	var limiter ratelimit.Limiter
	if cfg.Crawler.Adaptive {
		limiter = ratelimit.NewAdaptive(cfg.Crawler.RateLimitMin, cfg.Crawler.RateLimitMax)
	} else {
		limiter = ratelimit.NewFixed(cfg.Crawler.RateLimitMin, cfg.Crawler.RateLimitMax)
	}

	engine := crawl.New(s, client, store, limiter, log, crawl.Config{
		Workers:  cfg.Crawler.Workers,
		MaxPages: cfg.Crawler.MaxPages,
	})

	runID, err := runs.StartRun(ctx, name)
	if err != nil {
		return err
	}

	log.Info("crawl starting", "site", name, "run_id", runID)
	stats, runErr := engine.Run(ctx)

	status := database.RunStatusCompleted
	if runErr != nil {
		status = database.RunStatusCanceled
	}
	// Bookkeeping uses a fresh context so a canceled crawl still records
	// its partial counters.
	if err := runs.FinishRun(context.Background(), runID, status, stats); err != nil {
		log.Error("failed to record crawl run", "run_id", runID, "error", err)
	}

	log.Info("crawl finished",
		"site", name,
		"run_id", runID,
		"status", status,
		"pages_fetched", stats.PagesFetched,
		"fetch_failures", stats.FetchFailures,
		"parse_failures", stats.ParseFailures,
		"emitted", stats.Emitted,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
		"invalid_records", stats.InvalidRecords)
	for category, count := range stats.ProductsPerCategory {
		log.Info("category product count", "site", name, "category", category,
			"emitted", count, "listed", stats.ListedPerCategory[category])
	}

	return runErr
}
