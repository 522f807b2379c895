package controllers

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/redman/internal/models"
	"github.com/amaumene/redman/internal/services/tracker"
	"github.com/amaumene/redman/internal/telemetry"
)

var errTracker = errors.New("tracker unavailable")

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestDB(t *testing.T) *models.Database {
	t.Helper()
	db, err := models.NewDatabase(filepath.Join(t.TempDir(), "pool.db"), false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func release(id int64, weight int) models.Release {
	return models.Release{
		ID:          id,
		AlbumName:   "Album " + string(rune('A'+id%26)),
		ArtistNames: "Artist",
		Year:        2000,
		ReleaseType: models.ReleaseTypeAlbum,
		Media:       models.MediaCD,
		Format:      models.FormatMP3,
		Encoding:    models.EncodingV0,
		FileCount:   10,
		Size:        1 << 20,
		Weight:      weight,
	}
}

func ids(releases []models.Release) []int64 {
	out := make([]int64, 0, len(releases))
	for _, r := range releases {
		out = append(out, r.ID)
	}
	return out
}

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

// fakeProber answers freeload probes from a fixed table
type fakeProber struct {
	free   map[int64]bool
	fail   map[int64]bool
	probed []int64
	at     []time.Time
}

func (p *fakeProber) IsFreeload(_ context.Context, id int64) (bool, error) {
	p.probed = append(p.probed, id)
	p.at = append(p.at, time.Now())
	if p.fail[id] {
		return false, errTracker
	}
	return p.free[id], nil
}

type downloadCall struct {
	id       int64
	useToken bool
}

// fakeTracker serves torrent downloads; respond decides the reply per call
type fakeTracker struct {
	calls   []downloadCall
	at      []time.Time
	respond func(id int64, useToken bool) (*tracker.TorrentDownload, error)
}

func (f *fakeTracker) DownloadTorrent(_ context.Context, id int64, useToken bool) (*tracker.TorrentDownload, error) {
	f.calls = append(f.calls, downloadCall{id: id, useToken: useToken})
	f.at = append(f.at, time.Now())
	return f.respond(id, useToken)
}

func torrentReply(disposition, body string) *tracker.TorrentDownload {
	return &tracker.TorrentDownload{
		ContentDisposition: disposition,
		Body:               io.NopCloser(strings.NewReader(body)),
	}
}

// fakeSubmitter records submitted paths and fails when err is set
type fakeSubmitter struct {
	paths []string
	err   error
}

func (s *fakeSubmitter) Submit(_ context.Context, path string) error {
	s.paths = append(s.paths, path)
	return s.err
}

func newTestDownloader(dir string, trk TorrentFetcher, sub Submitter) *Downloader {
	return newPacedDownloader(dir, trk, sub, 0)
}

func newPacedDownloader(dir string, trk TorrentFetcher, sub Submitter, delay time.Duration) *Downloader {
	return NewDownloader(trk, sub, dir, delay, nopLogger(), telemetry.NewMetrics(), telemetry.Tracer(nil))
}

// assertSpaced checks that consecutive calls are at least delay apart
func assertSpaced(t *testing.T, at []time.Time, delay time.Duration) {
	t.Helper()
	for i := 1; i < len(at); i++ {
		require.GreaterOrEqual(t, at[i].Sub(at[i-1]), delay, "call %d followed call %d too soon", i, i-1)
	}
}
