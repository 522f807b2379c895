package plex

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/amaumene/redman/internal/models"
)

// Plex metadata_items types
const (
	metadataTypeArtist = 8
	metadataTypeAlbum  = 9
)

// albumsQuery walks track -> album -> artist and keeps every distinct pair
const albumsQuery = `
	SELECT DISTINCT b.title AS album, c.title AS artist
	FROM metadata_items a
	JOIN metadata_items b ON a.parent_id = b.id
	JOIN metadata_items c ON b.parent_id = c.id
	WHERE b.metadata_type = ? AND c.metadata_type = ?`

// Source yields a snapshot of the albums already owned
type Source interface {
	Albums(ctx context.Context) ([]models.LibraryAlbum, error)
}

// Library reads a Plex media server database without ever writing to it
type Library struct {
	path   string
	logger *zerolog.Logger
}

// NewLibrary creates a reader over the Plex database at path
func NewLibrary(path string, logger *zerolog.Logger) *Library {
	return &Library{path: path, logger: logger}
}

// Albums opens the database read-only, reads the current album list and closes it again
func (l *Library) Albums(ctx context.Context) ([]models.LibraryAlbum, error) {
	db, err := gorm.Open(sqlite.Open("file:"+l.path+"?mode=ro"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open library database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var albums []models.LibraryAlbum
	if err := db.WithContext(ctx).Raw(albumsQuery, metadataTypeAlbum, metadataTypeArtist).Scan(&albums).Error; err != nil {
		return nil, fmt.Errorf("failed to read library albums: %w", err)
	}

	l.logger.Debug().
		Str("path", l.path).
		Int("albums", len(albums)).
		Msg("Library snapshot loaded")

	return albums, nil
}

const snapshotKey = "albums"

// CachedLibrary keeps the last snapshot of a Source for a fixed TTL.
// The daemon uses it so consecutive runs do not reread a large library.
type CachedLibrary struct {
	source Source
	cache  *cache.Cache
}

// NewCachedLibrary wraps source with a TTL cache
func NewCachedLibrary(source Source, ttl time.Duration) *CachedLibrary {
	return &CachedLibrary{
		source: source,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// Albums returns the cached snapshot, reloading it once expired
func (c *CachedLibrary) Albums(ctx context.Context) ([]models.LibraryAlbum, error) {
	if cached, ok := c.cache.Get(snapshotKey); ok {
		return cached.([]models.LibraryAlbum), nil
	}

	albums, err := c.source.Albums(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.SetDefault(snapshotKey, albums)
	return albums, nil
}

// Invalidate drops the cached snapshot
func (c *CachedLibrary) Invalidate() {
	c.cache.Delete(snapshotKey)
}
