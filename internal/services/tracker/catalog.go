package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/amaumene/redman/internal/models"
)

// CatalogPayload is a fetched catalog page: either *Collage or *Artist
type CatalogPayload interface {
	SourceID() int64
	SourceType() models.SourceType
	DisplayName() string
	GroupCount() int

	catalogPayload()
}

// Torrent is one release as listed inside a group.
// Collages key it as "torrentid", artist pages as "id".
type Torrent struct {
	ID        int64
	Media     string
	Format    string
	Encoding  string
	FileCount int
	Size      uint64
}

// UnmarshalJSON accepts both id spellings
func (t *Torrent) UnmarshalJSON(data []byte) error {
	var raw struct {
		TorrentID int64  `json:"torrentid"`
		ID        int64  `json:"id"`
		Media     string `json:"media"`
		Format    string `json:"format"`
		Encoding  string `json:"encoding"`
		FileCount int    `json:"fileCount"`
		Size      uint64 `json:"size"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.ID = raw.TorrentID
	if t.ID == 0 {
		t.ID = raw.ID
	}
	t.Media = raw.Media
	t.Format = raw.Format
	t.Encoding = raw.Encoding
	t.FileCount = raw.FileCount
	t.Size = raw.Size
	return nil
}

// Collage is the response of action=collage
type Collage struct {
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Category string         `json:"collageCategoryName"`
	Groups   []CollageGroup `json:"torrentgroups"`
}

// CollageGroup is a work inside a collage; year and release type arrive as strings
type CollageGroup struct {
	Name        string    `json:"name"`
	Year        string    `json:"year"`
	ReleaseType string    `json:"releaseType"`
	MusicInfo   MusicInfo `json:"musicInfo"`
	Torrents    []Torrent `json:"torrents"`
}

// MusicInfo lists the credited artists of a collage group
type MusicInfo struct {
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

// Artist is the response of action=artist
type Artist struct {
	ID     int64         `json:"id"`
	Name   string        `json:"name"`
	Groups []ArtistGroup `json:"torrentgroup"`
}

// ArtistGroup is a work on an artist page
type ArtistGroup struct {
	Name        string    `json:"groupName"`
	Year        int       `json:"groupYear"`
	ReleaseType int       `json:"releaseType"`
	Torrents    []Torrent `json:"torrent"`
}

func (c *Collage) SourceID() int64               { return c.ID }
func (c *Collage) SourceType() models.SourceType { return models.SourceTypeCollage }
func (c *Collage) DisplayName() string           { return decodeEntities(c.Name) }
func (c *Collage) GroupCount() int               { return len(c.Groups) }
func (c *Collage) catalogPayload()               {}

func (a *Artist) SourceID() int64               { return a.ID }
func (a *Artist) SourceType() models.SourceType { return models.SourceTypeArtist }
func (a *Artist) DisplayName() string           { return decodeEntities(a.Name) }
func (a *Artist) GroupCount() int               { return len(a.Groups) }
func (a *Artist) catalogPayload()               {}

// FetchCollage retrieves a collage with all of its groups
func (c *Client) FetchCollage(ctx context.Context, id int64) (*Collage, error) {
	var collage Collage
	if err := c.getJSON(ctx, "collage", id, nil, &collage); err != nil {
		return nil, fmt.Errorf("collage fetch failed: %w", err)
	}
	if collage.ID == 0 {
		collage.ID = id
	}

	c.logger.Debug().
		Int64("collage_id", id).
		Int("groups", len(collage.Groups)).
		Msg("Collage fetched")

	return &collage, nil
}

// FetchArtist retrieves an artist page including its releases
func (c *Client) FetchArtist(ctx context.Context, id int64) (*Artist, error) {
	extra := url.Values{}
	extra.Set("artistreleases", "1")

	var artist Artist
	if err := c.getJSON(ctx, "artist", id, extra, &artist); err != nil {
		return nil, fmt.Errorf("artist fetch failed: %w", err)
	}
	if artist.ID == 0 {
		artist.ID = id
	}

	c.logger.Debug().
		Int64("artist_id", id).
		Int("groups", len(artist.Groups)).
		Msg("Artist fetched")

	return &artist, nil
}

// Fetch retrieves the catalog page of the given type
func (c *Client) Fetch(ctx context.Context, sourceType models.SourceType, id int64) (CatalogPayload, error) {
	switch sourceType {
	case models.SourceTypeCollage:
		return c.FetchCollage(ctx, id)
	case models.SourceTypeArtist:
		return c.FetchArtist(ctx, id)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
