package downloader

import (
	"context"
	"fmt"
	"io"
	"time"

	"instanon/pkg/logger"
	"instanon/pkg/mirror"
)

// Fetcher opens a media URL for reading
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// FileStore checks for and writes downloaded files
type FileStore interface {
	Exists(scope, filename string) (bool, error)
	Save(r io.Reader, dir, filename string) (int64, error)
}

// Progress receives one Add per processed link
type Progress interface {
	Add(n int)
	Finish()
}

// ProgressFactory creates the progress display for one batch
type ProgressFactory func(label string, total int) Progress

// Batch is one list of links downloaded into one directory
type Batch struct {
	Links     []mirror.MediaLink
	TargetDir string
	// ScopeDir is searched recursively for existing files; defaults to TargetDir
	ScopeDir string
	Label    string
}

// Summary counts what happened to the links of a batch
type Summary struct {
	Total      int
	Downloaded int
	Skipped    int
	Invalid    int
	Bytes      int64
	Duration   time.Duration
}

// Downloader saves media links one at a time
type Downloader struct {
	fetcher     Fetcher
	store       FileStore
	newProgress ProgressFactory
	logger      logger.Logger
}

// New creates a downloader. A nil progress factory disables progress output.
func New(fetcher Fetcher, store FileStore, progress ProgressFactory, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	if progress == nil {
		progress = func(string, int) Progress { return nopProgress{} }
	}
	return &Downloader{
		fetcher:     fetcher,
		store:       store,
		newProgress: progress,
		logger:      log,
	}
}

// DownloadAll downloads every link in order, skipping names already present
// under the batch scope. The first fetch or save error ends the batch. When
// ctx is cancelled no further link is started and the error wraps ctx.Err().
func (d *Downloader) DownloadAll(ctx context.Context, batch Batch) (Summary, error) {
	start := time.Now()
	summary := Summary{Total: len(batch.Links)}
	scope := batch.ScopeDir
	if scope == "" {
		scope = batch.TargetDir
	}

	bar := d.newProgress(batch.Label, len(batch.Links))
	for _, link := range batch.Links {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("download interrupted: %w", err)
		}

		filename := link.Filename()
		if filename == "" {
			d.logger.WarnWithFields("link has no file name", map[string]interface{}{
				"url": link.URL,
			})
			summary.Invalid++
			bar.Add(1)
			continue
		}

		exists, err := d.store.Exists(scope, filename)
		if err != nil {
			bar.Finish()
			return summary, err
		}
		if exists {
			logger.LogDownload(d.logger, filename, batch.TargetDir, true, nil)
			summary.Skipped++
			bar.Add(1)
			continue
		}

		n, err := d.download(ctx, link.URL, batch.TargetDir, filename)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, fmt.Errorf("download interrupted: %w", ctxErr)
			}
			logger.LogDownload(d.logger, filename, batch.TargetDir, false, err)
			bar.Finish()
			return summary, fmt.Errorf("download %s: %w", filename, err)
		}

		logger.LogDownload(d.logger, filename, batch.TargetDir, false, nil)
		summary.Downloaded++
		summary.Bytes += n
		bar.Add(1)
	}
	bar.Finish()

	summary.Duration = time.Since(start)
	d.logger.InfoWithFields("batch finished", map[string]interface{}{
		"target":     batch.TargetDir,
		"downloaded": summary.Downloaded,
		"skipped":    summary.Skipped,
		"invalid":    summary.Invalid,
		"bytes":      summary.Bytes,
		"duration":   summary.Duration,
	})
	return summary, nil
}

func (d *Downloader) download(ctx context.Context, url, dir, filename string) (int64, error) {
	body, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	return d.store.Save(body, dir, filename)
}

type nopProgress struct{}

func (nopProgress) Add(int) {}
func (nopProgress) Finish() {}
