package handlers

import (
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/amaumene/redman/internal/models"
)

// StatsSource computes pool statistics
type StatsSource interface {
	Stats() (*models.Stats, error)
}

// StatsHandler handles pool statistics requests
type StatsHandler struct {
	source StatsSource
	logger *zerolog.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(source StatsSource, logger *zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		source: source,
		logger: logger,
	}
}

// FormatShare is one histogram entry with its share of the pool
type FormatShare struct {
	Format  string  `json:"format"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percent"`
}

// StatsResponse represents the stats response
type StatsResponse struct {
	TotalReleases int64         `json:"total_releases"`
	UniqueArtists int64         `json:"unique_artists"`
	UniqueAlbums  int64         `json:"unique_albums"`
	TotalSize     uint64        `json:"total_size_bytes"`
	TotalSizeText string        `json:"total_size"`
	Formats       []FormatShare `json:"formats"`
}

// Handle serves the stats endpoint
func (h *StatsHandler) Handle(c *fiber.Ctx) error {
	stats, err := h.source.Stats()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute stats")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}

	response := StatsResponse{
		TotalReleases: stats.TotalReleases,
		UniqueArtists: stats.UniqueArtists,
		UniqueAlbums:  stats.UniqueAlbums,
		TotalSize:     stats.TotalSize,
		TotalSizeText: humanize.IBytes(stats.TotalSize),
		Formats:       make([]FormatShare, 0, len(stats.Formats)),
	}
	for _, f := range stats.Formats {
		response.Formats = append(response.Formats, FormatShare{
			Format:  f.Format,
			Count:   f.Count,
			Percent: stats.Percent(f),
		})
	}

	return c.JSON(response)
}
