// Package blob is the entry point for export artifact storage. It re-exports
// the core contract and opens a backend from configuration; callers outside
// this package never import the infra implementations directly.
package blob

import (
	"context"
	"fmt"

	"cheeseshop/internal/blob/core"
	"cheeseshop/internal/infra/blob/fs"
	"cheeseshop/internal/infra/blob/memory"
	"cheeseshop/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// S3Config describes an S3 or MinIO bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool
}

// Config selects a backend. An empty driver means fs.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the configured Store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
