package remote

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteFile copies body into localPath. See WriteFileFunc.
func WriteFile(id, localPath string, body io.Reader) error {
	return WriteFileFunc(id, localPath, func(f *os.File) error {
		_, err := io.Copy(f, body)
		return err
	})
}

// WriteFileFunc lets fill write into a temporary file in localPath's directory
// and renames it into place once fill succeeds, so an interrupted transfer
// never leaves a file at localPath. Filesystem failures are reported as
// LocalIOError, anything else fill returns as TransferError for id.
func WriteFileFunc(id, localPath string, fill func(f *os.File) error) error {
	dir := filepath.Dir(localPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(localPath)+".part-*")
	if err != nil {
		return &LocalIOError{Path: localPath, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := fill(tmp); err != nil {
		tmp.Close()
		if errors.Is(err, ErrTransfer) || errors.Is(err, ErrLocalIO) {
			return err
		}
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return &LocalIOError{Path: localPath, Err: err}
		}
		return &TransferError{ID: id, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &LocalIOError{Path: localPath, Err: fmt.Errorf("failed to close temp file: %w", err)}
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		return &LocalIOError{Path: localPath, Err: err}
	}
	return nil
}
