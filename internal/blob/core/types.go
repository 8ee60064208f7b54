// Package core defines the blob storage contract backing catalog export
// artifacts.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem represents the local filesystem implementation.
	DriverFilesystem Driver = "fs" // local filesystem (default, dev)
	// DriverS3 represents an S3 / MinIO compatible implementation.
	DriverS3 Driver = "s3"
	// DriverMemory represents an in-memory implementation used in tests.
	DriverMemory Driver = "memory"
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// SignedURLOptions controls SignedURL. Expiry defaults to 15 minutes.
type SignedURLOptions struct {
	Expiry time.Duration
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store is a minimal create-only object store.
type Store interface {
	// Put stores a new blob at key and fails with ErrExists when the key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	// Get returns metadata and contents; missing keys yield ErrNotFound.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	// Delete reports whether a blob was removed.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Info, error)
	// SignedURL returns a time-limited download URL or ErrUnsupported.
	SignedURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

var (
	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("blob: unsupported operation")
	// ErrNotFound is returned for missing keys.
	ErrNotFound = errors.New("blob: not found")
	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("blob: already exists")
)

// CleanKey normalises a key and rejects empty, absolute or escaping keys.
func CleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("blob: empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("blob: invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("blob: key %q escapes root", key)
		}
	}
	return path.Clean(key), nil
}

// CloneMetadata copies a metadata map; nil stays nil.
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
