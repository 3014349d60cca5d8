package app

import (
	"fmt"
	"log/slog"

	"CineScanner/internal/config"
	"CineScanner/internal/infrastructure/browser"
	"CineScanner/internal/infrastructure/imdb"
	"CineScanner/internal/infrastructure/ingest"
	"CineScanner/internal/infrastructure/rotten"
	"CineScanner/internal/infrastructure/storage"
	"CineScanner/internal/logging"
	"CineScanner/internal/scraper"
	"CineScanner/internal/usecase"
)

// Application wires configuration into adapters and use cases, and owns
// the resources that need teardown.
type Application struct {
	cfg        config.Config
	store      *storage.Store
	browser    *browser.Manager
	repository *storage.MovieRepository
	pipeline   *usecase.Pipeline
	loader     *ingest.Loader
}

// New builds a runnable application instance. The browser stays cold
// until a client-rendered source actually needs it.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	repository := storage.NewMovieRepository(store)

	browserMgr := browser.NewManager(browser.Config{
		Headless:        cfg.Browser.Headless,
		RestartAttempts: cfg.Browser.RestartAttempts,
		Logger:          logging.Component(baseLogger, "browser"),
	})

	registry := scraper.NewRegistry()
	registry.Register(imdb.New(imdb.Options{
		BaseURL:         cfg.IMDb.BaseURL,
		RateLimit:       cfg.IMDb.RateLimit(),
		FetchTimeout:    cfg.IMDb.FetchTimeoutDuration(),
		FuzzyThreshold:  cfg.IMDb.FuzzyThreshold,
		RetryAttempts:   cfg.IMDb.RetryAttempts,
		MaxReviews:      cfg.Scrape.MaxReviews,
		MinReviewLength: cfg.Scrape.MinReviewLength,
	}, logging.Component(baseLogger, "scraper.imdb")))
	registry.Register(rotten.New(browserMgr, rotten.Options{
		BaseURL:         cfg.Rotten.BaseURL,
		RateLimit:       cfg.Rotten.RateLimit(),
		ElementTimeout:  cfg.Rotten.ElementTimeoutDuration(),
		FuzzyThreshold:  cfg.Rotten.FuzzyThreshold,
		MaxReviews:      cfg.Scrape.MaxReviews,
		MinReviewLength: cfg.Scrape.MinReviewLength,
	}, logging.Component(baseLogger, "scraper.rotten")))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Repository: repository,
		Scrapers:   registry,
		Logger:     logging.Component(baseLogger, "pipeline"),
		MaxReviews: cfg.Scrape.MaxReviews,
	})

	return &Application{
		cfg:        cfg,
		store:      store,
		browser:    browserMgr,
		repository: repository,
		pipeline:   pipeline,
		loader:     ingest.NewLoader(repository, logging.Component(baseLogger, "ingest")),
	}, nil
}

// Pipeline exposes the collection use case.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// Loader exposes the dataset ingestion use case.
func (a *Application) Loader() *ingest.Loader {
	return a.loader
}

// Repository exposes status queries for the CLI.
func (a *Application) Repository() *storage.MovieRepository {
	return a.repository
}

// Close releases the browser and the database.
func (a *Application) Close() error {
	if err := a.browser.Close(); err != nil {
		return err
	}
	return a.store.Close()
}
