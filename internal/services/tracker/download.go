package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/amaumene/redman/internal/models"
)

// torrentInfo is the subset of action=torrent the freeload probe reads
type torrentInfo struct {
	Torrent struct {
		IsFreeload bool `json:"isFreeload"`
	} `json:"torrent"`
}

// IsFreeload asks the tracker whether downloading a torrent is exempt from quota accounting
func (c *Client) IsFreeload(ctx context.Context, torrentID int64) (bool, error) {
	var info torrentInfo
	if err := c.getJSON(ctx, "torrent", torrentID, nil, &info); err != nil {
		return false, fmt.Errorf("freeload probe failed: %w", err)
	}

	c.logger.Debug().
		Int64("torrent_id", torrentID).
		Bool("freeload", info.Torrent.IsFreeload).
		Msg("Freeload probe completed")

	return info.Torrent.IsFreeload, nil
}

// TorrentDownload is a successful download response.
// Body must be closed by the caller.
type TorrentDownload struct {
	ContentDisposition string
	Body               io.ReadCloser
}

// DownloadTorrent requests the .torrent file of a release.
// With useToken the tracker is asked to spend a freeload token on it.
// Any non-2xx reply or transport failure is returned as *models.APIError.
func (c *Client) DownloadTorrent(ctx context.Context, torrentID int64, useToken bool) (*TorrentDownload, error) {
	var extra url.Values
	if useToken {
		extra = url.Values{}
		extra.Set("usetoken", "1")
	}

	resp, err := c.do(ctx, "download", torrentID, extra)
	if err != nil {
		return nil, fmt.Errorf("torrent download failed: %w", err)
	}

	// Refusals (no tokens left, bad id) come back as a JSON envelope with a 2xx status
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		defer resp.Body.Close()
		var env envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return nil, fmt.Errorf("torrent download failed: %w", &models.APIError{Err: err})
		}
		apiErr := &models.APIError{Status: env.Status}
		if env.Error != "" {
			apiErr.Err = fmt.Errorf("%s", env.Error)
		}
		return nil, fmt.Errorf("torrent download failed: %w", apiErr)
	}

	return &TorrentDownload{
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		Body:               resp.Body,
	}, nil
}
