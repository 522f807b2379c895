package models

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) (*Database, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pool.db")
	db, err := NewDatabase(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db, path
}

func testRelease(id int64, format string) Release {
	return Release{
		ID:          id,
		AlbumName:   "Abbey Road",
		ArtistNames: "The Beatles",
		Year:        1969,
		ReleaseType: ReleaseTypeAlbum,
		Media:       MediaCD,
		Format:      format,
		Encoding:    EncodingV0,
		FileCount:   17,
		Size:        123456789,
		Weight:      10,
	}
}

func TestNewDatabaseIsIdempotent(t *testing.T) {
	db, path := newTestDatabase(t)

	_, err := db.UpsertReleases([]Release{testRelease(1, FormatMP3)})
	require.NoError(t, err)

	again, err := NewDatabase(path, false)
	require.NoError(t, err)
	defer again.Close()

	releases, err := again.AllReleases()
	require.NoError(t, err)
	assert.Len(t, releases, 1)
}

func TestRecordFetch(t *testing.T) {
	db, _ := newTestDatabase(t)

	isNew, err := db.RecordFetch(42, SourceTypeCollage, "Best of 1969")
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = db.RecordFetch(42, SourceTypeCollage, "Best of 1969")
	require.NoError(t, err)
	assert.False(t, isNew, "second fetch of the same id must not be new")

	// Same id, other catalog type is a distinct record
	isNew, err = db.RecordFetch(42, SourceTypeArtist, "Someone")
	require.NoError(t, err)
	assert.True(t, isNew)

	record, err := db.GetFetchRecord(42, SourceTypeCollage)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "Best of 1969", record.Name)

	missing, err := db.GetFetchRecord(7, SourceTypeArtist)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpsertReleasesIsIdempotent(t *testing.T) {
	db, _ := newTestDatabase(t)
	release := testRelease(12345, FormatMP3)

	count, err := db.UpsertReleases([]Release{release})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	first, err := storedRelease(db, 12345)
	require.NoError(t, err)

	// Replacing with identical content still reports a write
	count, err = db.UpsertReleases([]Release{release})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	second, err := storedRelease(db, 12345)
	require.NoError(t, err)

	first.CreatedAt = second.CreatedAt
	assert.Equal(t, *first, *second)

	all, err := db.AllReleases()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertReleasesReplacesById(t *testing.T) {
	db, _ := newTestDatabase(t)

	_, err := db.UpsertReleases([]Release{testRelease(1, FormatMP3)})
	require.NoError(t, err)

	updated := testRelease(1, FormatMP3)
	updated.Weight = 99
	updated.Encoding = Encoding320
	_, err = db.UpsertReleases([]Release{updated})
	require.NoError(t, err)

	stored, err := storedRelease(db, 1)
	require.NoError(t, err)
	assert.Equal(t, 99, stored.Weight)
	assert.Equal(t, Encoding320, stored.Encoding)
}

func TestUpsertReleasesFailsWithPersistenceError(t *testing.T) {
	db, _ := newTestDatabase(t)
	require.NoError(t, db.Close())

	count, err := db.UpsertReleases([]Release{testRelease(1, FormatMP3), testRelease(2, FormatMP3)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Equal(t, 0, count)
}

func TestStats(t *testing.T) {
	db, _ := newTestDatabase(t)

	releases := []Release{
		testRelease(1, "FLAC"),
		testRelease(2, FormatMP3),
		testRelease(3, FormatMP3),
		testRelease(4, "AAC"),
		testRelease(5, "FLAC"),
		testRelease(6, "FLAC"),
		testRelease(7, "AAC"),
	}
	releases[1].ArtistNames = "Pink Floyd"
	releases[1].AlbumName = "Animals"

	_, err := db.UpsertReleases(releases)
	require.NoError(t, err)

	stats, err := db.Stats()
	require.NoError(t, err)

	assert.Equal(t, int64(7), stats.TotalReleases)
	assert.Equal(t, int64(2), stats.UniqueArtists)
	assert.Equal(t, int64(2), stats.UniqueAlbums)
	assert.Equal(t, uint64(7*123456789), stats.TotalSize)

	// MP3 (first at id 2) beats AAC (first at id 4) on the tie
	assert.Equal(t, []FormatCount{
		{Format: "FLAC", Count: 3},
		{Format: "MP3", Count: 2},
		{Format: "AAC", Count: 2},
	}, stats.Formats)
	assert.InDelta(t, 42.857, stats.Percent(stats.Formats[0]), 0.001)
}

func TestStatsEmptyPool(t *testing.T) {
	db, _ := newTestDatabase(t)

	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalReleases)
	assert.Zero(t, stats.TotalSize)
	assert.Empty(t, stats.Formats)
	assert.Zero(t, stats.Percent(FormatCount{Format: "MP3", Count: 1}))
}

func TestParseSourceType(t *testing.T) {
	st, ok := ParseSourceType("collage")
	assert.True(t, ok)
	assert.Equal(t, SourceTypeCollage, st)

	_, ok = ParseSourceType("label")
	assert.False(t, ok)
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "API returned error status: failure", (&APIError{Status: "failure"}).Error())
	assert.Equal(t, "API request failed with status 502", (&APIError{StatusCode: 502}).Error())
	assert.True(t, errors.Is(ErrProtocol, ErrParse))
}

func storedRelease(d *Database, id int64) (*Release, error) {
	var release Release
	if err := d.db.First(&release, id).Error; err != nil {
		return nil, err
	}
	return &release, nil
}
