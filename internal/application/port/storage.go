package port

import (
	"context"
	"io"
)

// UploadStorage holds uploaded import files until the import pipeline is done with them
type UploadStorage interface {
	// Save stores content under a fresh name keeping originalName's extension and returns the full path
	Save(ctx context.Context, originalName string, content io.Reader) (string, error)

	// Remove deletes a stored upload; removing a missing file is not an error
	Remove(ctx context.Context, fullPath string) error
}
