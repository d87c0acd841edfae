// Package storage abstracts where uploaded documents live. Handlers
// validate content before calling Store, so backends only move bytes.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a storage key resolves to nothing.
var ErrNotFound = errors.New("storage: object not found")

// Backend stores and retrieves uploaded files by opaque key.
type Backend interface {
	// Store saves a file under a freshly generated key and returns it.
	// The key embeds the kind and owner so objects can be swept per user.
	Store(ctx context.Context, userID uint64, kind, filename string, content io.Reader, contentType string) (string, error)

	// Retrieve opens the object behind a key.
	Retrieve(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object behind a key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// URL returns an address a client can fetch the object from: a
	// presigned URL on S3, a file-server path locally.
	URL(ctx context.Context, key string, expiry time.Duration) (string, error)

	// Metadata reports size, content type and modification time.
	Metadata(ctx context.Context, key string) (ObjectInfo, error)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
	ETag         string    `json:"etag"`
}
