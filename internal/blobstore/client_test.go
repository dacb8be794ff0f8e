package blobstore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"drivemanager/internal/downloader"
	"drivemanager/internal/models"
	"drivemanager/internal/remote"
)

func newBucket(t *testing.T, files map[string]string) *blob.Bucket {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })

	ctx := context.Background()
	for key, content := range files {
		require.NoError(t, bucket.WriteAll(ctx, key, []byte(content), nil))
	}
	return bucket
}

func reportsBucket(t *testing.T) *blob.Bucket {
	return newBucket(t, map[string]string{
		"Reports/summary.txt":   "S",
		"Reports/2023/a.pdf":    "A",
		"Reports/2023/b.pdf":    "B",
		"Reports/2022/q1/c.pdf": "C",
		"Other/readme.txt":      "R",
	})
}

func TestSearchFolder(t *testing.T) {
	client := New(reportsBucket(t))
	ctx := context.Background()

	folder, err := client.SearchFolder(ctx, "Rep")
	require.NoError(t, err)
	assert.Equal(t, models.Object{ID: "Reports/", Title: "Reports", MimeType: models.FolderMimeType}, folder)

	folder, err = client.SearchFolder(ctx, "q1")
	require.NoError(t, err)
	assert.Equal(t, "Reports/2022/q1/", folder.ID)

	_, err = client.SearchFolder(ctx, "missing")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestSearchFile(t *testing.T) {
	client := New(reportsBucket(t))
	ctx := context.Background()

	file, err := client.SearchFile(ctx, "b.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, "Reports/2023/b.pdf", file.ID)
	assert.Equal(t, "application/pdf", file.MimeType)

	file, err = client.SearchFile(ctx, "re", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "Other/readme.txt", file.ID)

	_, err = client.SearchFile(ctx, "a.pdf", "text/plain")
	var nf *remote.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "text/plain", nf.MimeType)
}

func TestListChildren(t *testing.T) {
	client := New(reportsBucket(t))
	ctx := context.Background()

	folders, err := client.ListChildren(ctx, "Reports/", remote.KindFolder)
	require.NoError(t, err)
	assert.Equal(t, []string{"Reports/2022/", "Reports/2023/"}, objectIDs(folders))

	files, err := client.ListChildren(ctx, "Reports/", remote.KindFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"Reports/summary.txt"}, objectIDs(files))

	roots, err := client.ListChildren(ctx, "", remote.KindFolder)
	require.NoError(t, err)
	assert.Equal(t, []string{"Other/", "Reports/"}, objectIDs(roots))
}

func TestFetchContentAndDelete(t *testing.T) {
	bucket := reportsBucket(t)
	client := New(bucket)
	ctx := context.Background()
	dst := filepath.Join(t.TempDir(), "a.pdf")

	require.NoError(t, client.FetchContent(ctx, "Reports/2023/a.pdf", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "A", string(data))

	err = client.FetchContent(ctx, "Reports/none.pdf", filepath.Join(t.TempDir(), "none.pdf"))
	assert.ErrorIs(t, err, remote.ErrTransfer)

	require.NoError(t, client.DeleteObject(ctx, "Reports/2023/a.pdf"))
	exists, err := bucket.Exists(ctx, "Reports/2023/a.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.DeleteObject(ctx, "Reports/2022/"))
	exists, err = bucket.Exists(ctx, "Reports/2022/q1/c.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRefreshSessionWithoutReopen(t *testing.T) {
	client := New(reportsBucket(t))
	assert.NoError(t, client.RefreshSession(context.Background()))
}

func TestOpenFileBucket(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Docs", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Docs", "sub", "x.txt"), []byte("X"), 0o644))

	ctx := context.Background()
	client, err := Open(ctx, "file://"+filepath.ToSlash(root))
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.RefreshSession(ctx))

	folder, err := client.SearchFolder(ctx, "sub")
	require.NoError(t, err)
	assert.Equal(t, "Docs/sub/", folder.ID)
}

func TestOpenRequiresURL(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.Error(t, err)
}

func TestWalkAndDownloadOverBlob(t *testing.T) {
	client := New(reportsBucket(t))
	dir := t.TempDir()

	d := downloader.New(client, downloader.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	result, err := d.WalkAndDownload(context.Background(), "Reports", dir, downloader.WalkOptions{})
	require.NoError(t, err)

	assert.Len(t, result.Folders, 4)
	assert.Equal(t, 3, result.DownloadedFiles)
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, "summary.txt"))
}

func TestDownloadFolderInBatchesOverBlob(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"1.txt", "2.txt", "3.txt", "4.txt", "5.txt"} {
		files["Inbox/"+name] = name
	}
	bucket := newBucket(t, files)
	client := New(bucket)
	dir := t.TempDir()

	d := downloader.New(client, downloader.Options{
		Delete: true,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	result, err := d.DownloadFolderInBatches(context.Background(), "Inbox", dir, 2, true)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Batches)
	assert.Equal(t, 5, result.DownloadedFiles)

	remaining, err := client.ListChildren(context.Background(), "Inbox/", remote.KindFile)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func objectIDs(objects []models.Object) []string {
	out := make([]string, len(objects))
	for i, o := range objects {
		out[i] = o.ID
	}
	return out
}

func TestSearchFileWithoutMimeTypeMatchesFolders(t *testing.T) {
	var client remote.Client = New(reportsBucket(t))
	ctx := context.Background()

	obj, err := client.SearchFile(ctx, "2023", "")
	require.NoError(t, err)
	assert.Equal(t, models.Object{ID: "Reports/2023/", Title: "2023", MimeType: models.FolderMimeType}, obj)

	obj, err = client.SearchFile(ctx, "a", "")
	require.NoError(t, err)
	assert.False(t, obj.IsFolder(), "files come before folders")

	_, err = client.SearchFile(ctx, "2023", "application/pdf")
	assert.ErrorIs(t, err, remote.ErrNotFound)
}

func TestOpenMemKeepsObjectsAcrossRefresh(t *testing.T) {
	ctx := context.Background()
	client, err := Open(ctx, "mem://")
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.current().WriteAll(ctx, "Reports/2023/a.pdf", []byte("A"), nil))
	require.NoError(t, client.RefreshSession(ctx))

	folder, err := client.SearchFolder(ctx, "2023")
	require.NoError(t, err)
	assert.Equal(t, "Reports/2023/", folder.ID)
}
