// Package archive persists pipeline run artifacts (snapshots and reports)
// to object storage so runs can be audited or restored later.
package archive

import (
	"context"
	"errors"
)

// Common errors for archive operations.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
)

// ObjectStore abstracts object storage for run artifacts.
// Implementations include S3 and the local filesystem.
type ObjectStore interface {
	// Upload copies a local file to objectPath in the store.
	Upload(ctx context.Context, localPath, objectPath string) error

	// Download copies the object at objectPath to localPath.
	// Returns ErrObjectNotFound when the object does not exist.
	Download(ctx context.Context, objectPath, localPath string) error

	// Exists reports whether an object exists at objectPath.
	Exists(ctx context.Context, objectPath string) (bool, error)

	// List returns all object paths under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
