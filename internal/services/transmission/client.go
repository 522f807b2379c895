package transmission

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/amaumene/redman/internal/config"
	"github.com/amaumene/redman/internal/models"
)

// Client hands torrent files to a Transmission daemon through transmission-remote
type Client struct {
	bin         string
	host        string
	auth        string
	downloadDir string
	logger      *zerolog.Logger
}

// NewClient creates a new Transmission client
func NewClient(cfg *config.Config, logger *zerolog.Logger) (*Client, error) {
	if cfg.DownloadDir == "" {
		return nil, fmt.Errorf("download directory is required")
	}

	bin := cfg.TransmissionRemote
	if bin == "" {
		bin = "transmission-remote"
	}

	return &Client{
		bin:         bin,
		host:        cfg.TransmissionHost,
		auth:        cfg.TransmissionAuth,
		downloadDir: cfg.DownloadDir,
		logger:      logger,
	}, nil
}

// args builds the transmission-remote command line for one file
func (c *Client) args(path string) []string {
	var args []string
	if c.host != "" {
		args = append(args, c.host)
	}
	if c.auth != "" {
		args = append(args, "--auth", c.auth)
	}
	return append(args, "--add", path, "--download-dir", c.downloadDir)
}

// Submit adds a torrent file to the daemon.
// A non-zero exit or a reply without "success" is a models.ErrSubmission.
func (c *Client) Submit(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, c.bin, c.args(path)...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	c.logger.Debug().
		Str("bin", c.bin).
		Str("path", path).
		Str("download_dir", c.downloadDir).
		Msg("Submitting torrent to Transmission")

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %w: %s", models.ErrSubmission, c.bin, err, strings.TrimSpace(out.String()))
	}

	reply := strings.TrimSpace(out.String())
	if !strings.Contains(reply, "success") {
		return fmt.Errorf("%w: %s rejected %s: %s", models.ErrSubmission, c.bin, path, reply)
	}

	c.logger.Info().
		Str("path", path).
		Str("reply", reply).
		Msg("Torrent submitted to Transmission")

	return nil
}
