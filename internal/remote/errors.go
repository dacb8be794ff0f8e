package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is.
var (
	ErrNotFound = errors.New("remote: not found")
	ErrTransfer = errors.New("remote: transfer failed")
	ErrRemote   = errors.New("remote: request rejected")
	ErrLocalIO  = errors.New("remote: local io failed")
)

// NotFoundError is returned when a search by name substring matches nothing.
type NotFoundError struct {
	Kind     string // "folder" or "file"
	Name     string
	MimeType string
}

func (e *NotFoundError) Error() string {
	if e.MimeType != "" {
		return fmt.Sprintf("no %s matching %q with mime type %q", e.Kind, e.Name, e.MimeType)
	}
	return fmt.Sprintf("no %s matching %q", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// TransferError is returned when fetching object content fails.
type TransferError struct {
	ID  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s failed: %v", e.ID, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransfer, e.Err}
}

// RemoteError is returned when the service rejects a list, delete or session call.
type RemoteError struct {
	Op  string // e.g. "list", "delete", "search", "refresh"
	ID  string
	Err error
}

func (e *RemoteError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("remote %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() []error {
	return []error{ErrRemote, e.Err}
}

// LocalIOError is returned when the destination path cannot be written.
type LocalIOError struct {
	Path string
	Err  error
}

func (e *LocalIOError) Error() string {
	return fmt.Sprintf("local write %s: %v", e.Path, e.Err)
}

func (e *LocalIOError) Unwrap() []error {
	return []error{ErrLocalIO, e.Err}
}

// First returns objects[0] or a NotFoundError describing the empty search.
func First[T any](items []T, kind, name, mimeType string) (T, error) {
	if len(items) == 0 {
		var zero T
		return zero, &NotFoundError{Kind: kind, Name: name, MimeType: mimeType}
	}
	return items[0], nil
}
