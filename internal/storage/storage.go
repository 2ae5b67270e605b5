// Package storage is the blob store behind case documents.
package storage

import (
	"context"
	"io"
)

// BlobStore stores document bodies under a caller-chosen key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// URL returns the link persisted with the document row.
	URL(ctx context.Context, key string) (string, error)
	// BulkDelete removes the blobs of a deleted case. A failed row insert
	// leaves its blob in place; nothing deletes single objects.
	BulkDelete(ctx context.Context, keys []string) error
}

var (
	_ BlobStore = (*Supabase)(nil)
	_ BlobStore = (*MinioStore)(nil)
)
