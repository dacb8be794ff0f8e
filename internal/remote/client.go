// Package remote defines the storage client the downloader drives and the
// errors every backend reports through it.
package remote

import (
	"context"

	"drivemanager/internal/models"
)

// Kind selects which children ListChildren returns.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// Client is a remote storage service holding a folder hierarchy.
//
// Implementations must be safe for concurrent use. RefreshSession may replace
// the underlying session; callers never run it while other calls are in flight.
type Client interface {
	// SearchFolder returns the first non-trashed folder whose title contains name.
	SearchFolder(ctx context.Context, name string) (models.Object, error)

	// SearchFile returns the first non-trashed object whose title contains name,
	// restricted to mimeType unless it is empty. With no mimeType folders match
	// too.
	SearchFile(ctx context.Context, name, mimeType string) (models.Object, error)

	// ListChildren lists the immediate non-trashed children of a folder.
	ListChildren(ctx context.Context, folderID string, kind Kind) ([]models.Object, error)

	// FetchContent writes the object's bytes to localPath.
	FetchContent(ctx context.Context, id, localPath string) error

	DeleteObject(ctx context.Context, id string) error

	RefreshSession(ctx context.Context) error
}
