// Package storage persists uploaded file content in an S3-compatible object
// store. Metadata lives in the database; only the bytes go here.
package storage

import (
	"context"
	"io"
)

// BlobStore writes and removes binary objects by key.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}
