//go:build gcp

package storage

import "context"

func newGCSStore(ctx context.Context, cfg GCSConfig) (Store, error) {
	return NewGCSStore(ctx, cfg)
}
