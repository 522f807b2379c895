package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amaumene/redman/internal/models"
	"github.com/amaumene/redman/internal/services/tracker"
	"github.com/amaumene/redman/internal/telemetry"
)

// State is a step of the per-release download machine
type State int

const (
	StateRequestFreeload State = iota
	StateRequestPlain
	StateWrite
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequestFreeload:
		return "request_freeload"
	case StateRequestPlain:
		return "request_plain"
	case StateWrite:
		return "write"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TorrentFetcher downloads .torrent files from the tracker
type TorrentFetcher interface {
	DownloadTorrent(ctx context.Context, torrentID int64, useToken bool) (*tracker.TorrentDownload, error)
}

// Submitter hands a written torrent file to the download client
type Submitter interface {
	Submit(ctx context.Context, path string) error
}

var filenamePattern = regexp.MustCompile(`filename="([^"]+)"`)

// partPattern names in-flight downloads. The stem must not end in digits,
// otherwise a leftover part file would look like a downloaded release id.
const partPattern = ".redman-*-part.tmp"

// DownloadResult describes one completed download
type DownloadResult struct {
	Release   models.Release
	Path      string
	UsedToken bool
}

// Downloader retrieves releases one at a time, materializes their
// torrent files in targetDir and submits them
type Downloader struct {
	fetcher   TorrentFetcher
	submitter Submitter
	targetDir string
	delay     time.Duration
	logger    *zerolog.Logger
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
}

// NewDownloader creates a new downloader. delay is waited after every tracker request.
func NewDownloader(fetcher TorrentFetcher, submitter Submitter, targetDir string, delay time.Duration, logger *zerolog.Logger, metrics *telemetry.Metrics, tracer trace.Tracer) *Downloader {
	return &Downloader{
		fetcher:   fetcher,
		submitter: submitter,
		targetDir: targetDir,
		delay:     delay,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
	}
}

// Download runs the state machine for one release. With useToken the
// freeload request is tried first and a failure falls back to a plain request.
func (d *Downloader) Download(ctx context.Context, release models.Release, useToken bool) (*DownloadResult, error) {
	ctx, span := d.tracer.Start(ctx, "download", trace.WithAttributes(telemetry.ReleaseAttrs(release.ID, release.Weight)...))
	defer span.End()

	state := StateRequestPlain
	if useToken {
		state = StateRequestFreeload
	}

	var (
		dl          *tracker.TorrentDownload
		result      = &DownloadResult{Release: release}
		freeloadErr error
		plainErr    error
	)

	for {
		span.AddEvent(state.String())

		switch state {
		case StateRequestFreeload:
			var err error
			dl, err = d.request(ctx, release.ID, true)
			if err != nil {
				d.metrics.DownloadsTotal.WithLabelValues("freeload", "error").Inc()
				if ctx.Err() != nil {
					plainErr = err
					state = StateFailed
					continue
				}
				freeloadErr = err
				d.logger.Warn().
					Err(err).
					Int64("torrent_id", release.ID).
					Msg("Freeload request failed, falling back to plain download")
				state = StateRequestPlain
				continue
			}
			result.UsedToken = true
			state = StateWrite

		case StateRequestPlain:
			var err error
			dl, err = d.request(ctx, release.ID, false)
			if err != nil {
				plainErr = err
				d.metrics.DownloadsTotal.WithLabelValues("plain", "error").Inc()
				state = StateFailed
				continue
			}
			state = StateWrite

		case StateWrite:
			path, err := d.write(dl)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("failed to write torrent %d: %w", release.ID, err)
			}

			if err := d.submit(ctx, path); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return nil, fmt.Errorf("failed to submit torrent %d: %w", release.ID, err)
			}

			result.Path = path
			state = StateDone

		case StateDone:
			mode := "plain"
			if result.UsedToken {
				mode = "freeload"
			}
			d.metrics.DownloadsTotal.WithLabelValues(mode, "ok").Inc()
			span.SetAttributes(attribute.String("torrent.path", result.Path), attribute.Bool("torrent.used_token", result.UsedToken))

			d.logger.Info().
				Int64("torrent_id", release.ID).
				Str("path", result.Path).
				Bool("used_token", result.UsedToken).
				Msg("Torrent downloaded")
			return result, nil

		case StateFailed:
			var err error
			if freeloadErr != nil {
				err = fmt.Errorf("failed to download torrent %d: freeload: %w; plain: %w", release.ID, freeloadErr, plainErr)
			} else {
				err = fmt.Errorf("failed to download torrent %d: %w", release.ID, plainErr)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
}

// request performs one tracker download call followed by the mandatory pause
func (d *Downloader) request(ctx context.Context, id int64, useToken bool) (*tracker.TorrentDownload, error) {
	dl, err := d.fetcher.DownloadTorrent(ctx, id, useToken)
	if perr := pause(ctx, d.delay); perr != nil {
		if dl != nil {
			dl.Body.Close()
		}
		return nil, perr
	}
	return dl, err
}

// write streams the response body to a temp file next to its final name and renames it.
// The final name comes from Content-Disposition; anything unusable is a models.ErrProtocol.
func (d *Downloader) write(dl *tracker.TorrentDownload) (string, error) {
	defer dl.Body.Close()

	name, err := attachmentName(dl.ContentDisposition)
	if err != nil {
		return "", err
	}
	path := filepath.Join(d.targetDir, name)

	tmp, err := os.CreateTemp(d.targetDir, partPattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, dl.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename temp file: %w", err)
	}

	return path, nil
}

// submit hands path to the download client and removes it if that fails
func (d *Downloader) submit(ctx context.Context, path string) error {
	err := d.submitter.Submit(ctx, path)
	if err == nil {
		return nil
	}

	if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		d.logger.Error().Err(rmErr).Str("path", path).Msg("Failed to remove unsubmitted torrent")
	}
	d.metrics.DownloadsTotal.WithLabelValues("submit", "error").Inc()

	if !errors.Is(err, models.ErrSubmission) {
		err = fmt.Errorf("%w: %w", models.ErrSubmission, err)
	}
	return err
}

// attachmentName extracts the quoted file name of a Content-Disposition header
func attachmentName(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: missing Content-Disposition header", models.ErrProtocol)
	}

	m := filenamePattern.FindStringSubmatch(header)
	if m == nil {
		return "", fmt.Errorf("%w: no filename in Content-Disposition %q", models.ErrProtocol, header)
	}

	// Never let the tracker pick a path outside the target directory
	name := filepath.Base(m[1])
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: unusable filename %q", models.ErrProtocol, m[1])
	}
	return name, nil
}
