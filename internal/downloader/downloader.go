// Package downloader copies files out of a remote.Client into a single local
// directory: one file, a list of files (sequentially or on a bounded worker
// pool), a list split into session-refreshed batches, or every file found by a
// breadth-first walk of a folder tree.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"drivemanager/internal/models"
	"drivemanager/internal/remote"
	"drivemanager/pkg/utils"
)

const (
	DefaultProcesses = 4
	DefaultBatchSize = 4
)

// Options configures the downloader.
type Options struct {
	// Delete removes the remote object after it was downloaded or skipped.
	Delete bool

	// Overwrite replaces local files that already exist.
	Overwrite bool

	// Retry is applied to every remote call. Default: single attempt.
	Retry RetryPolicy

	// CallTimeout bounds each remote call. Zero means no timeout.
	CallTimeout time.Duration

	// Logger receives per-file and per-batch progress. Default: slog.Default().
	Logger *slog.Logger

	// Backend is recorded in results.
	Backend string
}

type Downloader struct {
	client remote.Client
	opts   Options
	logger *slog.Logger
}

func New(client remote.Client, opts Options) *Downloader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		client: client,
		opts:   opts,
		logger: logger,
	}
}

// Download fetches objectID to destinationPath. An existing file is left alone
// unless Overwrite is set. With Delete set the remote object is removed after
// the download or skip, but not after a failed fetch.
func (d *Downloader) Download(ctx context.Context, objectID, destinationPath string) (models.DownloadItem, error) {
	return d.run(ctx, models.DownloadJob{ObjectID: objectID, DestinationPath: destinationPath})
}

func (d *Downloader) run(ctx context.Context, job models.DownloadJob) (models.DownloadItem, error) {
	item := models.DownloadItem{ID: job.ObjectID, LocalPath: job.DestinationPath}

	exists, err := fileExists(job.DestinationPath)
	if err != nil {
		item.Status = models.StatusFailed
		item.Error = err.Error()
		return item, err
	}

	if exists && !d.opts.Overwrite {
		d.logger.Info("file exists, skip it", "path", job.DestinationPath)
		item.Status = models.StatusSkipped
	} else {
		err := d.call(ctx, func(ctx context.Context) error {
			return d.client.FetchContent(ctx, job.ObjectID, job.DestinationPath)
		})
		if err != nil {
			item.Status = models.StatusFailed
			item.Error = err.Error()
			d.logger.Error("download failed", "path", job.DestinationPath, "error", err)
			return item, fmt.Errorf("failed to download %s: %w", job.ObjectID, err)
		}
		item.Status = models.StatusDownloaded
		if info, err := os.Stat(job.DestinationPath); err == nil {
			item.Size = info.Size()
		}
		d.logger.Info("download finished", "path", job.DestinationPath)
	}

	if d.opts.Delete {
		err := d.call(ctx, func(ctx context.Context) error {
			return d.client.DeleteObject(ctx, job.ObjectID)
		})
		if err != nil {
			item.Error = err.Error()
			return item, fmt.Errorf("failed to delete %s: %w", job.ObjectID, err)
		}
		item.Deleted = true
	}

	return item, nil
}

// DownloadMany downloads objects one after another in input order. A failed
// object does not stop the ones after it; all failures are joined.
func (d *Downloader) DownloadMany(ctx context.Context, objects []models.Object, dir string) ([]models.DownloadItem, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	items := make([]models.DownloadItem, 0, len(objects))
	var errs []error
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		item, err := d.downloadObject(ctx, obj, dir)
		items = append(items, item)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return items, errors.Join(errs...)
}

// DownloadManyParallel downloads objects on at most concurrency workers.
// Items come back in input order; completion order is unspecified. Each task
// records its own error, so one failure never cancels its siblings.
func (d *Downloader) DownloadManyParallel(ctx context.Context, objects []models.Object, dir string, concurrency int) ([]models.DownloadItem, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = DefaultProcesses
	}

	items := make([]models.DownloadItem, len(objects))
	errs := make([]error, len(objects))
	started := make([]bool, len(objects))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, obj := range objects {
		if ctx.Err() != nil {
			break
		}
		started[i] = true
		g.Go(func() error {
			items[i], errs[i] = d.downloadObject(ctx, obj, dir)
			return nil
		})
	}
	_ = g.Wait()

	done := make([]models.DownloadItem, 0, len(objects))
	for i := range objects {
		if started[i] {
			done = append(done, items[i])
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return done, errors.Join(errs...)
}

// DownloadFile resolves a file by name substring and downloads it into dir.
func (d *Downloader) DownloadFile(ctx context.Context, name, mimeType, dir string) (*models.DownloadResult, error) {
	result := d.newResult(name, dir)
	start := time.Now()

	var obj models.Object
	err := d.call(ctx, func(ctx context.Context) error {
		var err error
		obj, err = d.client.SearchFile(ctx, name, mimeType)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find file %q: %w", name, err)
	}
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	item, err := d.downloadObject(ctx, obj, dir)
	result.Add(item)
	d.finish(result, start)
	return result, err
}

// DownloadFolder downloads the direct files of a folder found by name. With
// Delete set the folder itself is removed afterwards, provided every file
// succeeded.
func (d *Downloader) DownloadFolder(ctx context.Context, folderName, dir string, parallel bool, processes int) (*models.DownloadResult, error) {
	result := d.newResult(folderName, dir)
	start := time.Now()

	folder, files, err := d.folderFiles(ctx, folderName)
	if err != nil {
		return nil, err
	}

	var items []models.DownloadItem
	if parallel {
		items, err = d.DownloadManyParallel(ctx, files, dir, processes)
	} else {
		items, err = d.DownloadMany(ctx, files, dir)
	}
	result.Add(items...)
	d.finish(result, start)
	if err != nil {
		return result, err
	}

	if d.opts.Delete {
		err := d.call(ctx, func(ctx context.Context) error {
			return d.client.DeleteObject(ctx, folder.ID)
		})
		if err != nil {
			return result, fmt.Errorf("failed to delete folder %s: %w", folder.ID, err)
		}
	}
	return result, nil
}

func (d *Downloader) folderFiles(ctx context.Context, folderName string) (models.Object, []models.Object, error) {
	var folder models.Object
	err := d.call(ctx, func(ctx context.Context) error {
		var err error
		folder, err = d.client.SearchFolder(ctx, folderName)
		return err
	})
	if err != nil {
		return folder, nil, fmt.Errorf("failed to find folder %q: %w", folderName, err)
	}

	files, err := d.list(ctx, folder.ID, remote.KindFile)
	if err != nil {
		return folder, nil, err
	}
	return folder, files, nil
}

func (d *Downloader) list(ctx context.Context, folderID string, kind remote.Kind) ([]models.Object, error) {
	var objects []models.Object
	err := d.call(ctx, func(ctx context.Context) error {
		var err error
		objects, err = d.client.ListChildren(ctx, folderID, kind)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %ss in %s: %w", kind, folderID, err)
	}
	return objects, nil
}

func (d *Downloader) downloadObject(ctx context.Context, obj models.Object, dir string) (models.DownloadItem, error) {
	item, err := d.run(ctx, newJob(obj, dir))
	item.Title = obj.Title
	return item, err
}

// newJob places obj in the flat destination directory dir.
func newJob(obj models.Object, dir string) models.DownloadJob {
	return models.DownloadJob{ObjectID: obj.ID, DestinationPath: filepath.Join(dir, localName(obj))}
}

// call runs op under the per-call timeout and retry policy.
func (d *Downloader) call(ctx context.Context, op func(context.Context) error) error {
	return d.opts.Retry.do(ctx, func() error {
		if d.opts.CallTimeout <= 0 {
			return op(ctx)
		}
		callCtx, cancel := context.WithTimeout(ctx, d.opts.CallTimeout)
		defer cancel()
		return op(callCtx)
	})
}

func (d *Downloader) newResult(source, dir string) *models.DownloadResult {
	return &models.DownloadResult{
		RunID:       uuid.NewString(),
		Backend:     d.opts.Backend,
		SourcePath:  source,
		Destination: dir,
		Items:       []models.DownloadItem{},
	}
}

func (d *Downloader) finish(result *models.DownloadResult, start time.Time) {
	result.TotalSizeHuman = utils.FormatBytes(result.TotalSizeBytes)
	result.OperationTime = utils.FormatTime(start)
	result.DownloadDuration = utils.FormatDuration(time.Since(start))
}

// localName maps a title to a file name inside the flat destination directory.
func localName(obj models.Object) string {
	name := strings.ReplaceAll(obj.Title, "/", "_")
	if filepath.Separator != '/' {
		name = strings.ReplaceAll(name, string(filepath.Separator), "_")
	}
	if name == "" || name == "." || name == ".." {
		return obj.ID
	}
	return name
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, &remote.LocalIOError{Path: path, Err: err}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &remote.LocalIOError{Path: dir, Err: err}
	}
	return nil
}
