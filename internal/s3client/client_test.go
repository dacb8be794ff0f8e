package s3client

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/smithy-go"

	"drivemanager/config"
	"drivemanager/internal/remote"
)

// Integration tests for S3 client
// These tests require a real S3 connection and are skipped by default
// To run these tests, set the environment variable S3_INTEGRATION_TEST=true
// The bucket must contain at least one folder prefix with a file in it.

func integrationConfig(t *testing.T) *config.Config {
	t.Helper()
	if os.Getenv("S3_INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test; set S3_INTEGRATION_TEST=true to run")
	}
	return &config.Config{
		Backend:    config.BackendS3,
		BucketName: os.Getenv("TEST_BUCKET_NAME"),
		Region:     os.Getenv("TEST_REGION"),
		ApiURL:     os.Getenv("TEST_API_URL"),
		AccessKey:  os.Getenv("TEST_ACCESS_KEY"),
		SecretKey:  os.Getenv("TEST_SECRET_KEY"),
	}
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(&config.Config{Region: "us-east-1"})
	if err == nil {
		t.Fatalf("New() without bucket returned nil error")
	}
	if !strings.Contains(err.Error(), "BUCKET_NAME") {
		t.Errorf("New() error = %v, want mention of BUCKET_NAME", err)
	}
}

func TestNewInvalidProxy(t *testing.T) {
	_, err := New(&config.Config{BucketName: "b", Region: "us-east-1", ProxyURL: "://bad"})
	if err == nil {
		t.Fatalf("New() with invalid proxy returned nil error")
	}
}

func TestWrapErr(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}

	err := wrapErr("delete", "Reports/a.pdf", apiErr)

	if !errors.Is(err, remote.ErrRemote) {
		t.Errorf("wrapErr() = %v, want remote.ErrRemote", err)
	}
	if !errors.Is(err, apiErr) {
		t.Errorf("wrapErr() does not unwrap to the API error")
	}
	if !strings.Contains(err.Error(), "AccessDenied") {
		t.Errorf("wrapErr() = %v, want error code in message", err)
	}
}

func TestSearchFolderNotFound(t *testing.T) {
	cfg := integrationConfig(t)

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	_, err = client.SearchFolder(context.Background(), "no-such-folder-7f3a9c")
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("SearchFolder() error = %v, want remote.ErrNotFound", err)
	}
}

func TestListAndFetch(t *testing.T) {
	cfg := integrationConfig(t)

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	ctx := context.Background()

	if err := client.RefreshSession(ctx); err != nil {
		t.Fatalf("RefreshSession() error = %v", err)
	}

	folders, err := client.ListChildren(ctx, "", remote.KindFolder)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(folders) == 0 {
		t.Skip("bucket has no folders")
	}

	files, err := client.ListChildren(ctx, folders[0].ID, remote.KindFile)
	if err != nil {
		t.Fatalf("ListChildren() error = %v", err)
	}
	if len(files) == 0 {
		t.Skip("first folder has no files")
	}

	dst := filepath.Join(t.TempDir(), files[0].Title)
	if err := client.FetchContent(ctx, files[0].ID, dst); err != nil {
		t.Fatalf("FetchContent() error = %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("downloaded file missing: %v", err)
	}
}
