// Package blobstore abstracts the byte-blob storage used to persist
// coordinate and annotation files, together with the process-wide
// read-through cache layered on top of it.
//
// The package provides:
//
// - A Storage interface for streaming reads and writes of named blobs
// - A Local backend backed by a plain directory of files
// - A GCS backend backed by a Google Cloud Storage bucket
// - A Badger backend backed by an embedded key-value database
// - A TTL-bounded Cache used to avoid repeat reads within one process
//
// Callers construct cache keys explicitly with Key, so the read-through /
// write-through / invalidate contract is visible at every call site rather
// than hidden behind argument reflection.
//
// Within a single document-processing job the process is expected to be the
// sole writer of a given blob name, so the cache performs no invalidation on
// external mutation of the backing storage.
package blobstore

import (
	"context"
	"io"
	"strings"
)

// Storage is the minimal blob-storage contract the annotation and
// coordinate serializers depend on: streaming read and write of named
// byte blobs. Implementations must be safe for sequential use from a
// single goroutine; none of the callers in this module write a blob
// concurrently.
type Storage interface {
	// GetContentStream opens the named blob for streaming reads.
	// The caller owns the returned reader and must close it.
	GetContentStream(ctx context.Context, key string) (io.ReadCloser, error)

	// GetObjectContent reads the entire named blob into memory.
	GetObjectContent(ctx context.Context, key string) ([]byte, error)

	// WriteFileObj streams the reader's content into the named blob,
	// replacing any previous content.
	WriteFileObj(ctx context.Context, r io.Reader, key string) error

	// WriteBytes writes the byte slice as the named blob.
	WriteBytes(ctx context.Context, data []byte, key string) error

	// Delete removes the named blob.
	Delete(ctx context.Context, key string) error
}

// Key builds a cache key from its parts. Callers pass a type tag plus
// the blob names the cached object was loaded from, so distinct loads
// never collide.
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}
