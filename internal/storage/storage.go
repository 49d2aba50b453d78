// Package storage defines where locally handled attachments are kept.
// Keys are slash-separated paths relative to the upload root, e.g.
// "usr/uploads/2024/05/123.pdf". The filesystem backend is the default; the
// MinIO backend works with any S3-compatible provider.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Delete when no object exists under the key.
var ErrNotFound = errors.New("object not found")

// Storage is the interface for writing and removing attachment objects.
type Storage interface {
	// Upload streams data to the store under the given key, replacing any existing object.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}
