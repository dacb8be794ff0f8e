package downloader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"drivemanager/internal/models"
	"drivemanager/internal/remote"
)

// WalkOptions configures WalkAndDownload.
type WalkOptions struct {
	// Concurrency is the worker count used for each folder's files. Default: 4
	Concurrency int

	// IncludeRootFiles also downloads the files directly inside the root
	// folder. By default only files of descendant folders are downloaded.
	IncludeRootFiles bool
}

// WalkAndDownload walks the folder tree under the folder found by rootName
// breadth first and downloads the files of every descendant folder into dir.
// The local layout is flat: files from any depth land in dir itself, and
// titles that repeat across folders resolve by the Overwrite option.
//
// The hierarchy must be a finite tree; cycles are not detected. Listing errors
// stop the walk, failed files are reported and the walk continues.
func (d *Downloader) WalkAndDownload(ctx context.Context, rootName, dir string, opts WalkOptions) (*models.WalkResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultProcesses
	}

	var root models.Object
	err := d.call(ctx, func(ctx context.Context) error {
		var err error
		root, err = d.client.SearchFolder(ctx, rootName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find folder %q: %w", rootName, err)
	}
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	result := &models.WalkResult{
		DownloadResult: *d.newResult(rootName, dir),
		Folders:        []models.VisitedFolder{},
	}
	start := time.Now()
	defer d.finish(&result.DownloadResult, start)

	var errs []error
	if opts.IncludeRootFiles {
		if err := d.downloadFolderFiles(ctx, result, root.ID, dir, opts.Concurrency); err != nil {
			if isFatal(err) {
				return result, err
			}
			errs = append(errs, err)
		}
	}

	// folderQueue and labelQueue always have the same length.
	folderQueue := []string{root.ID}
	labelQueue := []string{rootName}
	for len(folderQueue) > 0 {
		if err := ctx.Err(); err != nil {
			return result, errors.Join(append(errs, err)...)
		}

		currentID := folderQueue[0]
		folderQueue = folderQueue[1:]
		currentLabel := labelQueue[0]
		labelQueue = labelQueue[1:]
		result.Folders = append(result.Folders, models.VisitedFolder{ID: currentID, Label: currentLabel})

		children, err := d.list(ctx, currentID, remote.KindFolder)
		if err != nil {
			return result, errors.Join(append(errs, err)...)
		}

		parent := currentLabel
		if !strings.HasSuffix(parent, "/") {
			parent += "/"
		}
		for _, child := range children {
			label := parent + child.Title
			folderQueue = append(folderQueue, child.ID)
			labelQueue = append(labelQueue, label)
			d.logger.Info("folder discovered", "label", label)

			if err := d.downloadFolderFiles(ctx, result, child.ID, dir, opts.Concurrency); err != nil {
				if isFatal(err) {
					return result, errors.Join(append(errs, err)...)
				}
				errs = append(errs, err)
			}
		}
	}

	d.logger.Info("task finished", "folders", len(result.Folders), "files", result.TotalFiles)
	return result, errors.Join(errs...)
}

// downloadFolderFiles lists the direct files of folderID and downloads them.
// Listing errors are wrapped in a walkError so the caller can stop.
func (d *Downloader) downloadFolderFiles(ctx context.Context, result *models.WalkResult, folderID, dir string, concurrency int) error {
	files, err := d.list(ctx, folderID, remote.KindFile)
	if err != nil {
		return &walkError{err: err}
	}
	if len(files) == 0 {
		return nil
	}

	items, err := d.DownloadManyParallel(ctx, files, dir, concurrency)
	result.Add(items...)
	return err
}

type walkError struct {
	err error
}

func (e *walkError) Error() string { return e.err.Error() }
func (e *walkError) Unwrap() error { return e.err }

func isFatal(err error) bool {
	var we *walkError
	return errors.As(err, &we)
}
