package models

import (
	"fmt"
	"time"
)

// Release is one concrete media variant of a work, as stored in the pool
type Release struct {
	ID          int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	AlbumName   string `gorm:"column:album_name"`
	ArtistNames string `gorm:"column:artist_names"`
	Year        int    `gorm:"column:year"`
	ReleaseType int    `gorm:"column:release_type"`
	Media       string `gorm:"column:media"`
	Format      string `gorm:"column:format"`
	Encoding    string `gorm:"column:encoding"`
	FileCount   int    `gorm:"column:file_count"`
	Size        uint64 `gorm:"column:size_bytes"`
	Weight      int    `gorm:"column:weight"`

	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName keeps the pool schema compatible with existing pool files
func (Release) TableName() string {
	return "torrents"
}

func (r Release) String() string {
	return fmt.Sprintf("%d: %s - %s [%s %s %s]", r.ID, r.ArtistNames, r.AlbumName, r.Media, r.Format, r.Encoding)
}

// Work is an album-level group with all of its candidate releases.
// It only exists between normalization and variant selection.
type Work struct {
	Name        string
	Year        int
	ReleaseType int
	ArtistNames string
	Candidates  []Release
}

// FetchRecord marks a catalog id as already fetched
type FetchRecord struct {
	SourceID   int64      `gorm:"column:source_id;primaryKey;autoIncrement:false"`
	SourceType SourceType `gorm:"column:source_type;primaryKey"`
	Name       string     `gorm:"column:name"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

// TableName for fetch audit rows
func (FetchRecord) TableName() string {
	return "fetches"
}

// LibraryAlbum is a row of the external media library snapshot.
// It is only used as a matching target and never written.
type LibraryAlbum struct {
	Name    string `gorm:"column:album"`
	Artists string `gorm:"column:artist"`
}

// FormatCount is one entry of the stats format histogram
type FormatCount struct {
	Format string `gorm:"column:format" json:"format"`
	Count  int64  `gorm:"column:count" json:"count"`
}

// Stats is a read-only aggregate over the release pool
type Stats struct {
	TotalReleases int64         `json:"total_releases"`
	UniqueArtists int64         `json:"unique_artists"`
	UniqueAlbums  int64         `json:"unique_albums"`
	TotalSize     uint64        `json:"total_size_bytes"`
	Formats       []FormatCount `json:"formats"`
}

// Percent returns the share of the pool carrying f, 0 for an empty pool
func (s *Stats) Percent(f FormatCount) float64 {
	if s.TotalReleases == 0 {
		return 0
	}
	return float64(f.Count) / float64(s.TotalReleases) * 100
}
