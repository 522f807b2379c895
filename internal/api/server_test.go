package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/redman/internal/api/handlers"
	"github.com/amaumene/redman/internal/models"
	"github.com/amaumene/redman/internal/telemetry"
)

type fakeStats struct {
	stats *models.Stats
	err   error
}

func (f fakeStats) Stats() (*models.Stats, error) { return f.stats, f.err }

func newTestServer(source handlers.StatsSource) (*Server, *telemetry.Metrics) {
	logger := zerolog.Nop()
	metrics := telemetry.NewMetrics()
	return NewServer("0", source, metrics, &logger), metrics
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(fakeStats{})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestStats(t *testing.T) {
	s, _ := newTestServer(fakeStats{stats: &models.Stats{
		TotalReleases: 4,
		UniqueArtists: 2,
		UniqueAlbums:  3,
		TotalSize:     3 << 30,
		Formats:       []models.FormatCount{{Format: "MP3", Count: 3}, {Format: "FLAC", Count: 1}},
	}})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/stats", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var body handlers.StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(4), body.TotalReleases)
	assert.Equal(t, "3.0 GiB", body.TotalSizeText)
	require.Len(t, body.Formats, 2)
	assert.Equal(t, "MP3", body.Formats[0].Format)
	assert.InDelta(t, 75.0, body.Formats[0].Percent, 0.001)
}

func TestStatsError(t *testing.T) {
	s, _ := newTestServer(fakeStats{err: errors.New("database is locked")})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/stats", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	s, metrics := newTestServer(fakeStats{})
	metrics.ReleasesStored.Add(5)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "redman_releases_stored_total 5")
}

func TestUnknownRoute(t *testing.T) {
	s, _ := newTestServer(fakeStats{})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/webhook", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
