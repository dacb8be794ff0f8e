package downloader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drivemanager/internal/models"
)

// DownloadInBatches splits objects into consecutive batches of batchSize and
// processes them in order. The session is refreshed before every batch, the
// first included, so long jobs never outlive a token. Within a batch files are
// downloaded on batchSize workers when parallel is set.
//
// A failed refresh aborts the run; failed files are reported and the next
// batch still runs.
func (d *Downloader) DownloadInBatches(ctx context.Context, objects []models.Object, dir string, batchSize int, parallel bool) (*models.DownloadResult, error) {
	result := d.newResult("", dir)
	err := d.downloadInBatches(ctx, result, objects, dir, batchSize, parallel)
	return result, err
}

// DownloadFolderInBatches lists the direct files of a folder found by name and
// downloads them with DownloadInBatches.
func (d *Downloader) DownloadFolderInBatches(ctx context.Context, folderName, dir string, batchSize int, parallel bool) (*models.DownloadResult, error) {
	_, files, err := d.folderFiles(ctx, folderName)
	if err != nil {
		return nil, err
	}

	result := d.newResult(folderName, dir)
	err = d.downloadInBatches(ctx, result, files, dir, batchSize, parallel)
	return result, err
}

func (d *Downloader) downloadInBatches(ctx context.Context, result *models.DownloadResult, objects []models.Object, dir string, batchSize int, parallel bool) error {
	start := time.Now()
	defer d.finish(result, start)

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var errs []error
	for i, batch := range batches(objects, batchSize) {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}

		d.logger.Info("start to download", "batch", i, "titles", titles(batch))

		if err := d.client.RefreshSession(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to refresh session before batch %d: %w", i, err))
			return errors.Join(errs...)
		}

		var (
			items []models.DownloadItem
			err   error
		)
		if parallel {
			items, err = d.DownloadManyParallel(ctx, batch, dir, batchSize)
		} else {
			items, err = d.DownloadMany(ctx, batch, dir)
		}
		result.Add(items...)
		result.Batches++
		if err != nil {
			errs = append(errs, err)
		}

		d.logger.Info("batch finished", "batch", i, "offset", i*batchSize)
	}

	d.logger.Info("task finished", "files", result.TotalFiles, "batches", result.Batches)
	return errors.Join(errs...)
}

// batches returns consecutive sub-slices of at most size elements.
func batches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		out = append(out, items[i:end])
	}
	return out
}

func titles(objects []models.Object) []string {
	out := make([]string, len(objects))
	for i, obj := range objects {
		out[i] = obj.Title
	}
	return out
}
