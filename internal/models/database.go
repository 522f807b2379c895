package models

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Schema is applied on every open; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS torrents (
		id INTEGER PRIMARY KEY,
		album_name TEXT NOT NULL,
		artist_names TEXT NOT NULL,
		year INTEGER NOT NULL,
		release_type INTEGER NOT NULL,
		media TEXT NOT NULL,
		format TEXT NOT NULL,
		encoding TEXT NOT NULL,
		file_count INTEGER NOT NULL,
		size_bytes INTEGER NOT NULL,
		weight INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS fetches (
		source_id INTEGER NOT NULL,
		source_type TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (source_id, source_type)
	)`,
}

// Database wraps the gorm handle on the release pool
type Database struct {
	db *gorm.DB
}

// NewDatabase opens (or creates) the pool file and ensures the schema exists
func NewDatabase(path string, debug bool) (*Database, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Fetch audit operations

// RecordFetch inserts a fetch record if it is not present yet.
// Returns true when this is the first fetch of (sourceID, sourceType).
func (d *Database) RecordFetch(sourceID int64, sourceType SourceType, name string) (bool, error) {
	record := &FetchRecord{
		SourceID:   sourceID,
		SourceType: sourceType,
		Name:       name,
	}

	result := d.db.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if result.Error != nil {
		return false, fmt.Errorf("%w: failed to record fetch %s/%d: %w", ErrPersistence, sourceType, sourceID, result.Error)
	}

	return result.RowsAffected > 0, nil
}

// GetFetchRecord retrieves the audit row for a catalog id, or nil if it was never fetched
func (d *Database) GetFetchRecord(sourceID int64, sourceType SourceType) (*FetchRecord, error) {
	var record FetchRecord
	err := d.db.Where("source_id = ? AND source_type = ?", sourceID, sourceType).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read fetch %s/%d: %w", ErrPersistence, sourceType, sourceID, err)
	}
	return &record, nil
}

// Release operations

// UpsertReleases writes each release with INSERT OR REPLACE keyed by id.
// The returned count is the number of rows the engine reported as affected,
// so replacing an identical row still counts. The call stops at the first
// failing row; rows written before it stay written.
func (d *Database) UpsertReleases(releases []Release) (int, error) {
	stored := 0

	for i := range releases {
		release := releases[i]

		result := d.db.Clauses(clause.Insert{Modifier: "OR REPLACE"}).Create(&release)
		if result.Error != nil {
			return stored, fmt.Errorf("%w: failed to store torrent %d: %w", ErrPersistence, release.ID, result.Error)
		}

		if result.RowsAffected > 0 {
			stored++
		}
	}

	return stored, nil
}

// AllReleases returns a snapshot of the whole pool ordered by id
func (d *Database) AllReleases() ([]Release, error) {
	var releases []Release
	if err := d.db.Order("id").Find(&releases).Error; err != nil {
		return nil, fmt.Errorf("failed to read pool: %w", err)
	}
	return releases, nil
}

// Stats computes aggregate counts over the pool
func (d *Database) Stats() (*Stats, error) {
	stats := &Stats{}

	if err := d.db.Model(&Release{}).Count(&stats.TotalReleases).Error; err != nil {
		return nil, fmt.Errorf("failed to count torrents: %w", err)
	}

	if err := d.db.Model(&Release{}).Distinct("artist_names").Count(&stats.UniqueArtists).Error; err != nil {
		return nil, fmt.Errorf("failed to count artists: %w", err)
	}

	if err := d.db.Model(&Release{}).Distinct("album_name").Count(&stats.UniqueAlbums).Error; err != nil {
		return nil, fmt.Errorf("failed to count albums: %w", err)
	}

	var totalSize int64
	if err := d.db.Model(&Release{}).Select("COALESCE(SUM(size_bytes), 0)").Scan(&totalSize).Error; err != nil {
		return nil, fmt.Errorf("failed to sum sizes: %w", err)
	}
	stats.TotalSize = uint64(totalSize)

	// Ties go to the format whose first release (lowest id) came first
	err := d.db.Model(&Release{}).
		Select("format, COUNT(*) AS count").
		Group("format").
		Order("count DESC, MIN(id) ASC").
		Scan(&stats.Formats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build format histogram: %w", err)
	}

	return stats, nil
}
