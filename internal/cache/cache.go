package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Cache defines the cache interface
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context, pattern string) error
	Close() error
}

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// SessionKey builds the key session state is stored under
func SessionKey(sessionID string) string {
	return Key("session", sessionID)
}

// FileExistsKey builds the key a file existence result is stored under
func FileExistsKey(storeType, fileKey string) string {
	return Key("file-exists", storeType, fileKey)
}

// Key joins key parts with ':'
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
