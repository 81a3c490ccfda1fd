package blobsvc

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tributes/core"
)

// New returns the blob store selected by conf.Storage.Backend.
func New(ctx context.Context, conf *core.Config, logger core.Logger) (core.BlobStore, error) {
	switch conf.Storage.Backend {
	case "", "local":
		return NewLocalStore(conf.Storage.LocalPath)
	case "s3":
		return NewS3Store(ctx, conf, logger)
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, errors.Errorf("unknown storage backend %q", conf.Storage.Backend)
}
