package controllers

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/amaumene/redman/internal/models"
	"github.com/amaumene/redman/internal/telemetry"
	"github.com/amaumene/redman/internal/utils"
)

// Stage is one dedup predicate; Keep returns false to drop the release
type Stage interface {
	Name() string
	Keep(r models.Release) bool
}

// DedupFilter keeps the releases that every stage keeps
type DedupFilter struct {
	stages  []Stage
	logger  *zerolog.Logger
	metrics *telemetry.Metrics
}

// NewDedupFilter creates a filter running stages in order
func NewDedupFilter(logger *zerolog.Logger, metrics *telemetry.Metrics, stages ...Stage) *DedupFilter {
	return &DedupFilter{
		stages:  stages,
		logger:  logger,
		metrics: metrics,
	}
}

// Filter returns the surviving releases in input order
func (f *DedupFilter) Filter(pool []models.Release) []models.Release {
	kept := make([]models.Release, 0, len(pool))

outer:
	for _, r := range pool {
		for _, stage := range f.stages {
			if !stage.Keep(r) {
				f.metrics.DedupExcludedTotal.WithLabelValues(stage.Name()).Inc()
				f.logger.Debug().
					Int64("torrent_id", r.ID).
					Str("stage", stage.Name()).
					Msg("Release excluded")
				continue outer
			}
		}
		kept = append(kept, r)
	}

	return kept
}

// LibraryStage drops releases whose artist and album both match one owned album
type LibraryStage struct {
	maxDistance int
	exact       map[string]struct{}
	albums      []libraryKey
}

type libraryKey struct {
	artist string
	album  string
}

// NewLibraryStage precomputes match keys for albums.
// maxDistance 0 requires identical keys; higher values allow that many edits per field.
func NewLibraryStage(albums []models.LibraryAlbum, maxDistance int) *LibraryStage {
	if maxDistance < 0 {
		maxDistance = 0
	}

	s := &LibraryStage{
		maxDistance: maxDistance,
		exact:       make(map[string]struct{}, len(albums)),
		albums:      make([]libraryKey, 0, len(albums)),
	}
	for _, a := range albums {
		k := libraryKey{artist: utils.MatchKey(a.Artists), album: utils.MatchKey(a.Name)}
		s.exact[k.artist+"\x00"+k.album] = struct{}{}
		s.albums = append(s.albums, k)
	}
	return s
}

func (s *LibraryStage) Name() string { return "library" }

func (s *LibraryStage) Keep(r models.Release) bool {
	artist := utils.MatchKey(r.ArtistNames)
	album := utils.MatchKey(r.AlbumName)

	if _, owned := s.exact[artist+"\x00"+album]; owned {
		return false
	}
	if s.maxDistance == 0 {
		return true
	}

	for _, k := range s.albums {
		if utils.KeysMatch(artist, k.artist, s.maxDistance) && utils.KeysMatch(album, k.album, s.maxDistance) {
			return false
		}
	}
	return true
}

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// DiskStage drops releases already downloaded into a directory.
// A file counts when its name without extension ends in the release id.
type DiskStage struct {
	ids map[int64]struct{}
}

// NewDiskStage scans dir once. A missing directory is an error.
func NewDiskStage(dir string) (*DiskStage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan torrent directory: %w", err)
	}

	s := &DiskStage{ids: make(map[int64]struct{}, len(entries))}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := TrailingID(e.Name()); ok {
			s.ids[id] = struct{}{}
		}
	}
	return s, nil
}

// TrailingID extracts the digit run ending a file name's stem
func TrailingID(name string) (int64, bool) {
	stem := name[:len(name)-len(filepath.Ext(name))]
	m := trailingDigits.FindString(stem)
	if m == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Len returns how many ids were found on disk
func (s *DiskStage) Len() int { return len(s.ids) }

func (s *DiskStage) Name() string { return "disk" }

func (s *DiskStage) Keep(r models.Release) bool {
	_, found := s.ids[r.ID]
	return !found
}

// BlacklistStage drops releases matching a blacklist term
type BlacklistStage struct {
	blacklist *utils.Blacklist
}

func NewBlacklistStage(b *utils.Blacklist) *BlacklistStage {
	return &BlacklistStage{blacklist: b}
}

func (s *BlacklistStage) Name() string { return "blacklist" }

func (s *BlacklistStage) Keep(r models.Release) bool {
	blocked, _ := s.blacklist.IsBlacklisted(r)
	return !blocked
}
