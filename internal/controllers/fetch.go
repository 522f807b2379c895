package controllers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/redman/internal/models"
	"github.com/amaumene/redman/internal/services/tracker"
	"github.com/amaumene/redman/internal/telemetry"
	"github.com/amaumene/redman/internal/utils"
)

// CatalogFetcher retrieves one catalog page from the tracker
type CatalogFetcher interface {
	Fetch(ctx context.Context, sourceType models.SourceType, id int64) (tracker.CatalogPayload, error)
}

// FetchResult summarizes one fetch run
type FetchResult struct {
	SourceType models.SourceType
	SourceID   int64
	Name       string
	Category   string // collages only
	Works      int
	Selected   []models.Release
	Stored     int
	NewFetch   bool      // false when the catalog id was fetched before
	FirstSeen  time.Time // when a repeated catalog was first fetched
}

// FetchController pulls catalog pages into the release pool
type FetchController struct {
	fetcher CatalogFetcher
	db      *models.Database
	logger  *zerolog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// NewFetchController creates a new fetch controller
func NewFetchController(fetcher CatalogFetcher, db *models.Database, logger *zerolog.Logger, metrics *telemetry.Metrics, tracer trace.Tracer) *FetchController {
	return &FetchController{
		fetcher: fetcher,
		db:      db,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
	}
}

// Fetch downloads a catalog page, selects one release per work and upserts them.
// A previous fetch of the same id is recorded but does not stop processing.
// On a storage failure the partial result is returned with the error.
func (c *FetchController) Fetch(ctx context.Context, sourceType models.SourceType, id int64, weight int) (*FetchResult, error) {
	ctx, span := c.tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("source.type", string(sourceType)),
		attribute.Int64("source.id", id),
	))
	defer span.End()

	result, err := c.fetch(ctx, sourceType, id, weight)
	if err != nil {
		c.metrics.FetchesTotal.WithLabelValues(string(sourceType), "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return result, err
	}

	c.metrics.FetchesTotal.WithLabelValues(string(sourceType), "ok").Inc()
	span.SetAttributes(attribute.Int("releases.stored", result.Stored))
	return result, nil
}

func (c *FetchController) fetch(ctx context.Context, sourceType models.SourceType, id int64, weight int) (*FetchResult, error) {
	c.logger.Info().
		Str("source_type", string(sourceType)).
		Int64("source_id", id).
		Int("weight", weight).
		Msg("Fetching catalog")

	payload, err := c.fetcher.Fetch(ctx, sourceType, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s %d: %w", sourceType, id, err)
	}

	result := &FetchResult{
		SourceType: sourceType,
		SourceID:   id,
		Name:       payload.DisplayName(),
		Works:      payload.GroupCount(),
	}
	if collage, ok := payload.(*tracker.Collage); ok {
		result.Category = collage.Category
	}

	result.NewFetch, err = c.db.RecordFetch(id, sourceType, result.Name)
	if err != nil {
		return result, err
	}
	if !result.NewFetch {
		record, err := c.db.GetFetchRecord(id, sourceType)
		if err != nil {
			return result, err
		}
		if record != nil {
			result.FirstSeen = record.CreatedAt
		}
		c.logger.Info().
			Str("source_type", string(sourceType)).
			Int64("source_id", id).
			Time("first_fetched_at", result.FirstSeen).
			Msg("Catalog was fetched before, processing again")
	}

	works, err := tracker.Normalize(payload, weight)
	if err != nil {
		return result, fmt.Errorf("failed to normalize %s %d: %w", sourceType, id, err)
	}

	result.Selected = utils.SelectReleases(works)
	c.metrics.ReleasesSelected.Add(float64(len(result.Selected)))

	result.Stored, err = c.db.UpsertReleases(result.Selected)
	c.metrics.ReleasesStored.Add(float64(result.Stored))
	if err != nil {
		return result, err
	}

	c.logger.Info().
		Str("source_type", string(sourceType)).
		Int64("source_id", id).
		Str("name", result.Name).
		Int("works", result.Works).
		Int("selected", len(result.Selected)).
		Int("stored", result.Stored).
		Msg("Catalog fetched")

	return result, nil
}
