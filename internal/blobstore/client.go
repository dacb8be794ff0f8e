// Package blobstore serves any gocloud.dev bucket (file://, mem://, s3://,
// gs://) as a folder tree, with "/"-separated key prefixes as folders.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	"drivemanager/internal/models"
	"drivemanager/internal/remote"
	"drivemanager/pkg/utils"
)

type Client struct {
	mu     sync.RWMutex
	bucket *blob.Bucket
	reopen func(ctx context.Context) (*blob.Bucket, error)
}

// Open opens the bucket at url. RefreshSession reopens it, except for mem://
// buckets, which would come back empty.
func Open(ctx context.Context, url string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("BLOB_URL is required for the blob backend")
	}
	reopen := func(ctx context.Context) (*blob.Bucket, error) {
		return blob.OpenBucket(ctx, url)
	}
	bucket, err := reopen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", url, err)
	}
	if strings.HasPrefix(url, memblob.Scheme+"://") {
		reopen = nil
	}
	return &Client{bucket: bucket, reopen: reopen}, nil
}

// New wraps an already open bucket. RefreshSession is a no-op for it.
func New(bucket *blob.Bucket) *Client {
	return &Client{bucket: bucket}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bucket.Close()
}

func (c *Client) current() *blob.Bucket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bucket
}

func (c *Client) RefreshSession(ctx context.Context) error {
	if c.reopen == nil {
		return nil
	}
	bucket, err := c.reopen(ctx)
	if err != nil {
		return &remote.RemoteError{Op: "refresh", Err: err}
	}

	c.mu.Lock()
	old := c.bucket
	c.bucket = bucket
	c.mu.Unlock()

	return old.Close()
}

func (c *Client) SearchFolder(ctx context.Context, name string) (models.Object, error) {
	keys, err := c.keys(ctx, "")
	if err != nil {
		return models.Object{}, err
	}

	var matches []models.Object
	for _, prefix := range utils.FolderPrefixes(keys) {
		folder := utils.FolderFromPrefix(prefix)
		if utils.TitleMatches(folder, name, "") {
			matches = append(matches, folder)
		}
	}
	return remote.First(matches, "folder", name, "")
}

func (c *Client) SearchFile(ctx context.Context, name, mimeType string) (models.Object, error) {
	keys, err := c.keys(ctx, "")
	if err != nil {
		return models.Object{}, err
	}

	var matches []models.Object
	for _, obj := range utils.SearchCandidates(keys) {
		if utils.TitleMatches(obj, name, mimeType) {
			matches = append(matches, obj)
		}
	}
	return remote.First(matches, "file", name, mimeType)
}

func (c *Client) ListChildren(ctx context.Context, folderID string, kind remote.Kind) ([]models.Object, error) {
	prefix := folderID
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	iter := c.current().List(&blob.ListOptions{Prefix: prefix, Delimiter: "/"})
	var objects []models.Object
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapErr("list", folderID, err)
		}

		switch {
		case obj.IsDir && kind == remote.KindFolder:
			objects = append(objects, utils.FolderFromPrefix(obj.Key))
		case !obj.IsDir && kind == remote.KindFile:
			if obj.Key == prefix || utils.IsFolderKey(obj.Key) {
				continue
			}
			objects = append(objects, utils.ObjectFromKey(obj.Key))
		}
	}
	return objects, nil
}

func (c *Client) FetchContent(ctx context.Context, id, localPath string) error {
	r, err := c.current().NewReader(ctx, id, nil)
	if err != nil {
		return &remote.TransferError{ID: id, Err: codeErr(err)}
	}
	defer r.Close()

	return remote.WriteFile(id, localPath, r)
}

// DeleteObject deletes a file, or every object under a folder prefix.
func (c *Client) DeleteObject(ctx context.Context, id string) error {
	if !utils.IsFolderKey(id) {
		if err := c.current().Delete(ctx, id); err != nil {
			return wrapErr("delete", id, err)
		}
		return nil
	}

	keys, err := c.keys(ctx, id)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.current().Delete(ctx, key); err != nil {
			return wrapErr("delete", key, err)
		}
	}
	return nil
}

func (c *Client) keys(ctx context.Context, prefix string) ([]string, error) {
	iter := c.current().List(&blob.ListOptions{Prefix: prefix})
	var keys []string
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			return keys, nil
		}
		if err != nil {
			return nil, wrapErr("search", prefix, err)
		}
		keys = append(keys, obj.Key)
	}
}

func codeErr(err error) error {
	if code := gcerrors.Code(err); code != gcerrors.Unknown {
		return fmt.Errorf("%s: %w", code, err)
	}
	return err
}

func wrapErr(op, id string, err error) error {
	return &remote.RemoteError{Op: op, ID: id, Err: codeErr(err)}
}
