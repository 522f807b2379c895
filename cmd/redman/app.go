package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/redman/internal/config"
	"github.com/amaumene/redman/internal/controllers"
	"github.com/amaumene/redman/internal/models"
	"github.com/amaumene/redman/internal/services/plex"
	"github.com/amaumene/redman/internal/services/tracker"
	"github.com/amaumene/redman/internal/services/transmission"
	"github.com/amaumene/redman/internal/telemetry"
	"github.com/amaumene/redman/internal/utils"
)

// app holds the resources shared by every command
type app struct {
	cfg     *config.Config
	logger  *zerolog.Logger
	logFile io.Closer
	db      *models.Database
	metrics *telemetry.Metrics
	tp      *sdktrace.TracerProvider
	tracer  trace.Tracer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, logFile := utils.NewLogger(utils.LoggerOptions{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Dir:    cfg.LogDir,
	})
	logger.Debug().Str("pool", cfg.PoolFile).Msg("Configuration loaded")

	db, err := models.NewDatabase(cfg.PoolFile, logger.GetLevel() <= zerolog.DebugLevel)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	tp := telemetry.NewTracerProvider()

	return &app{
		cfg:     cfg,
		logger:  logger,
		logFile: logFile,
		db:      db,
		metrics: telemetry.NewMetrics(),
		tp:      tp,
		tracer:  telemetry.Tracer(tp),
	}, nil
}

func (a *app) Close() {
	if err := telemetry.Shutdown(context.Background(), a.tp); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to stop tracer provider")
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to close database")
	}
	a.logFile.Close()
}

func (a *app) trackerClient() (*tracker.Client, error) {
	if err := a.cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return tracker.NewClient(a.cfg, a.logger)
}

// library returns the configured Plex snapshot source, or nil when none is configured
func (a *app) library(cacheTTL time.Duration) plex.Source {
	if a.cfg.PlexDatabase == "" {
		return nil
	}
	lib := plex.NewLibrary(a.cfg.PlexDatabase, a.logger)
	if cacheTTL <= 0 {
		return lib
	}
	return plex.NewCachedLibrary(lib, cacheTTL)
}

// watchController wires tracker, Transmission and dedup inputs into a watch controller
func (a *app) watchController(library plex.Source) (*controllers.WatchController, error) {
	if err := a.cfg.RequireWatch(); err != nil {
		return nil, err
	}

	trk, err := a.trackerClient()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracker client: %w", err)
	}

	submitter, err := transmission.NewClient(a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Transmission client: %w", err)
	}

	blacklist, err := utils.LoadBlacklist(a.cfg.BlacklistFile)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to load blacklist, continuing without it")
		blacklist = utils.NewBlacklist()
	} else if blacklist.Len() > 0 {
		a.logger.Info().Int("terms", blacklist.Len()).Msg("Blacklist loaded")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	selector := controllers.NewPrioritySelector(rng, trk, a.cfg.APIDelay, a.logger, a.metrics)
	downloader := controllers.NewDownloader(trk, submitter, a.cfg.TorrentDir, a.cfg.APIDelay, a.logger, a.metrics, a.tracer)

	return controllers.NewWatchController(a.db, selector, downloader, controllers.WatchConfig{
		TorrentDir:    a.cfg.TorrentDir,
		Library:       library,
		MatchDistance: a.cfg.LibraryMatchDistance,
		Blacklist:     blacklist,
	}, a.logger, a.metrics, a.tracer), nil
}
