// Package blob selects a concrete artifact store implementation by driver name.
package blob

import (
	"context"
	"fmt"

	"surveyscope/internal/blob/core"
	"surveyscope/internal/infra/blob/fs"
	"surveyscope/internal/infra/blob/memory"
	"surveyscope/internal/infra/blob/s3"
)

// Options carries the driver selection and per-driver settings.
type Options struct {
	Driver string // "fs" (default), "s3", "memory"
	Root   string // fs: root directory

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// Open constructs the blob store named by opts.Driver.
func Open(ctx context.Context, opts Options) (core.Store, error) {
	switch core.Driver(opts.Driver) {
	case core.DriverFilesystem, "":
		return fs.New(opts.Root)
	case core.DriverMemory:
		return memory.New(), nil
	case core.DriverS3:
		return s3.New(ctx, s3.Config{
			Bucket:    opts.S3Bucket,
			Region:    opts.S3Region,
			Endpoint:  opts.S3Endpoint,
			PathStyle: opts.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", opts.Driver)
	}
}
