package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/redman/internal/models"
	"github.com/amaumene/redman/internal/services/plex"
	"github.com/amaumene/redman/internal/telemetry"
	"github.com/amaumene/redman/internal/utils"
)

// WatchOptions parameterize one watch run
type WatchOptions struct {
	Count        int
	FreeloadOnly bool // only pick releases the tracker reports as freeload
	UseToken     bool // try a freeload token on every download first
}

// WatchResult summarizes one watch run
type WatchResult struct {
	RunID      string
	Pool       int
	Eligible   int
	Selected   int
	Downloaded []DownloadResult
}

// WatchConfig holds the dedup inputs of a watch controller
type WatchConfig struct {
	TorrentDir    string
	Library       plex.Source // nil disables the library check
	MatchDistance int
	Blacklist     *utils.Blacklist
}

// WatchController picks releases from the pool and downloads them
type WatchController struct {
	db         *models.Database
	selector   *PrioritySelector
	downloader *Downloader
	cfg        WatchConfig
	logger     *zerolog.Logger
	metrics    *telemetry.Metrics
	tracer     trace.Tracer
}

// NewWatchController creates a new watch controller
func NewWatchController(db *models.Database, selector *PrioritySelector, downloader *Downloader, cfg WatchConfig, logger *zerolog.Logger, metrics *telemetry.Metrics, tracer trace.Tracer) *WatchController {
	return &WatchController{
		db:         db,
		selector:   selector,
		downloader: downloader,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
	}
}

// Watch runs dedup, prioritization and download strictly in sequence.
// The first failing item stops the run; releases downloaded before it are returned with the error.
func (c *WatchController) Watch(ctx context.Context, opts WatchOptions) (*WatchResult, error) {
	result := &WatchResult{RunID: uuid.NewString()}
	logger := c.logger.With().Str("run_id", result.RunID).Logger()

	ctx, span := c.tracer.Start(ctx, "watch", trace.WithAttributes(
		attribute.String("run.id", result.RunID),
		attribute.Int("run.count", opts.Count),
		attribute.Bool("run.freeload_only", opts.FreeloadOnly),
	))
	defer span.End()

	start := time.Now()
	defer func() { c.metrics.WatchDuration.Observe(time.Since(start).Seconds()) }()

	err := c.watch(ctx, opts, result, &logger)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int("run.downloaded", len(result.Downloaded)))
	return result, err
}

func (c *WatchController) watch(ctx context.Context, opts WatchOptions, result *WatchResult, logger *zerolog.Logger) error {
	pool, err := c.db.AllReleases()
	if err != nil {
		return err
	}
	result.Pool = len(pool)
	c.metrics.PoolSize.Set(float64(len(pool)))

	filter, err := c.buildFilter(ctx, logger)
	if err != nil {
		return err
	}
	eligible := filter.Filter(pool)
	result.Eligible = len(eligible)

	ordered := c.selector.Order(eligible)

	var selected []models.Release
	if opts.FreeloadOnly {
		selected, err = c.selector.SelectFreeload(ctx, ordered, opts.Count)
		if err != nil {
			return err
		}
	} else {
		selected = c.selector.SelectDirect(ordered, opts.Count)
	}
	result.Selected = len(selected)

	logger.Info().
		Int("pool", result.Pool).
		Int("eligible", result.Eligible).
		Int("selected", result.Selected).
		Bool("freeload_only", opts.FreeloadOnly).
		Msg("Watch selection complete")

	for _, r := range selected {
		dl, err := c.downloader.Download(ctx, r, opts.UseToken)
		if err != nil {
			logger.Error().Err(err).Int64("torrent_id", r.ID).Msg("Download failed, stopping run")
			return err
		}
		result.Downloaded = append(result.Downloaded, *dl)
	}

	return nil
}

// buildFilter assembles the dedup stages enabled for this controller
func (c *WatchController) buildFilter(ctx context.Context, logger *zerolog.Logger) (*DedupFilter, error) {
	var stages []Stage

	if c.cfg.Library != nil {
		albums, err := c.cfg.Library.Albums(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load library: %w", err)
		}
		stages = append(stages, NewLibraryStage(albums, c.cfg.MatchDistance))
		logger.Debug().Int("albums", len(albums)).Msg("Library stage enabled")
	}

	disk, err := NewDiskStage(c.cfg.TorrentDir)
	if err != nil {
		return nil, err
	}
	stages = append(stages, disk)
	logger.Debug().Int("on_disk", disk.Len()).Msg("Disk stage enabled")

	if c.cfg.Blacklist != nil && c.cfg.Blacklist.Len() > 0 {
		stages = append(stages, NewBlacklistStage(c.cfg.Blacklist))
	}

	return NewDedupFilter(logger, c.metrics, stages...), nil
}
