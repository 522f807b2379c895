package controllers

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/amaumene/redman/internal/models"
	"github.com/amaumene/redman/internal/services/tracker"
	"github.com/amaumene/redman/internal/telemetry"
)

type fakeCatalog struct {
	payload tracker.CatalogPayload
	err     error
	calls   int
}

func (f *fakeCatalog) Fetch(context.Context, models.SourceType, int64) (tracker.CatalogPayload, error) {
	f.calls++
	return f.payload, f.err
}

func testCollage() *tracker.Collage {
	return &tracker.Collage{
		ID:       42,
		Name:     "Essential &amp; Rare",
		Category: "Theme",
		Groups: []tracker.CollageGroup{
			{
				Name:        "First",
				Year:        "1999",
				ReleaseType: "1",
				Torrents: []tracker.Torrent{
					{ID: 11, Media: "WEB", Format: "MP3", Encoding: "320"},
					{ID: 12, Media: "CD", Format: "MP3", Encoding: "V0 (VBR)"},
					{ID: 13, Media: "CD", Format: "FLAC", Encoding: "Lossless"},
				},
			},
			{
				Name:        "Only Lossless",
				Year:        "2005",
				ReleaseType: "1",
				Torrents:    []tracker.Torrent{{ID: 21, Media: "CD", Format: "FLAC", Encoding: "Lossless"}},
			},
			{
				Name:        "Compilation",
				Year:        "2010",
				ReleaseType: "7",
				Torrents:    []tracker.Torrent{{ID: 31, Media: "CD", Format: "MP3", Encoding: "V0 (VBR)"}},
			},
		},
	}
}

func TestFetchStoresOneReleasePerWork(t *testing.T) {
	db := newTestDB(t)
	metrics := telemetry.NewMetrics()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	c := NewFetchController(&fakeCatalog{payload: testCollage()}, db, nopLogger(), metrics, telemetry.Tracer(tp))

	result, err := c.Fetch(context.Background(), models.SourceTypeCollage, 42, 7)
	require.NoError(t, err)

	assert.Equal(t, "Essential & Rare", result.Name)
	assert.Equal(t, "Theme", result.Category)
	assert.Equal(t, 3, result.Works)
	assert.True(t, result.NewFetch)
	assert.Equal(t, []int64{12}, ids(result.Selected))
	assert.Equal(t, 1, result.Stored)

	stored := storedRelease(t, db, 12)
	assert.Equal(t, 7, stored.Weight)
	assert.Equal(t, "First", stored.AlbumName)

	record, err := db.GetFetchRecord(42, models.SourceTypeCollage)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Essential & Rare", record.Name)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("collage", "ok")))
	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "fetch", recorder.Ended()[0].Name())
}

func TestFetchAgainStillProcesses(t *testing.T) {
	db := newTestDB(t)
	c := NewFetchController(&fakeCatalog{payload: testCollage()}, db, nopLogger(), telemetry.NewMetrics(), telemetry.Tracer(nil))

	_, err := c.Fetch(context.Background(), models.SourceTypeCollage, 42, 1)
	require.NoError(t, err)

	result, err := c.Fetch(context.Background(), models.SourceTypeCollage, 42, 9)
	require.NoError(t, err)
	assert.False(t, result.NewFetch)
	assert.False(t, result.FirstSeen.IsZero())
	assert.Equal(t, 1, result.Stored, "replacing an existing row still counts")

	stored := storedRelease(t, db, 12)
	assert.Equal(t, 9, stored.Weight)
}

func TestFetchTrackerError(t *testing.T) {
	db := newTestDB(t)
	metrics := telemetry.NewMetrics()
	c := NewFetchController(&fakeCatalog{err: &models.APIError{Status: "failure"}}, db, nopLogger(), metrics, telemetry.Tracer(nil))

	result, err := c.Fetch(context.Background(), models.SourceTypeArtist, 1, 1)
	require.Error(t, err)
	assert.Nil(t, result)

	var apiErr *models.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("artist", "error")))

	record, err := db.GetFetchRecord(1, models.SourceTypeArtist)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestFetchParseErrorStoresNothing(t *testing.T) {
	db := newTestDB(t)
	collage := testCollage()
	collage.Groups[1].Year = "unknown"

	c := NewFetchController(&fakeCatalog{payload: collage}, db, nopLogger(), telemetry.NewMetrics(), telemetry.Tracer(nil))

	_, err := c.Fetch(context.Background(), models.SourceTypeCollage, 42, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrParse))

	pool, err := db.AllReleases()
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestFetchPersistenceError(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Close())

	c := NewFetchController(&fakeCatalog{payload: testCollage()}, db, nopLogger(), telemetry.NewMetrics(), telemetry.Tracer(nil))

	_, err := c.Fetch(context.Background(), models.SourceTypeCollage, 42, 1)
	assert.True(t, errors.Is(err, models.ErrPersistence))
}

func storedRelease(t *testing.T, db *models.Database, id int64) models.Release {
	t.Helper()
	all, err := db.AllReleases()
	require.NoError(t, err)
	for _, r := range all {
		if r.ID == id {
			return r
		}
	}
	require.Failf(t, "release not stored", "id %d", id)
	return models.Release{}
}
