package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// GCSConfig holds configuration for the GCS store
type GCSConfig struct {
	Bucket string
	Prefix string
}

// Config selects and configures a store backend
type Config struct {
	Type    Type
	BaseDir string
	S3      S3Config
	GCS     GCSConfig
}

// NewStore creates the store the configuration asks for
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Type {
	case TypeFS, "":
		store, err = NewLocalStore(cfg.BaseDir)
	case TypeS3:
		store, err = NewS3Store(ctx, cfg.S3)
	case TypeGCS:
		store, err = newGCSStore(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s store: %w", cfg.Type, err)
	}

	log.Info().Str("type", string(store.Type())).Msg("Report file store initialized")
	return store, nil
}
