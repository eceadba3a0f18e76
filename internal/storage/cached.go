package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/otcheredev/lab-report-portal/internal/cache"
	"github.com/otcheredev/lab-report-portal/internal/metrics"
	"github.com/rs/zerolog/log"
)

var (
	present = []byte("1")
	absent  = []byte("0")
)

// CachedStore remembers existence checks of the wrapped store for a while.
// Open always goes to the wrapped store.
type CachedStore struct {
	Store
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewCachedStore wraps store. A zero ttl disables caching.
func NewCachedStore(store Store, c cache.Cache, ttl time.Duration, m *metrics.Metrics) *CachedStore {
	return &CachedStore{Store: store, cache: c, ttl: ttl, metrics: m}
}

// Exists answers from cache when possible
func (s *CachedStore) Exists(ctx context.Context, key string) (bool, error) {
	if s.ttl <= 0 || s.cache == nil {
		return s.lookup(ctx, key)
	}

	cacheKey := cache.FileExistsKey(string(s.Store.Type()), key)
	if value, err := s.cache.Get(ctx, cacheKey); err == nil {
		s.count("hit")
		return string(value) == string(present), nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("File existence cache read failed")
	}
	s.count("miss")

	exists, err := s.lookup(ctx, key)
	if err != nil {
		return false, err
	}

	value := absent
	if exists {
		value = present
	}
	if err := s.cache.Set(ctx, cacheKey, value, s.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("File existence cache write failed")
	}
	return exists, nil
}

// Open reads through to the wrapped store
func (s *CachedStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.Store.Open(ctx, key)
}

func (s *CachedStore) lookup(ctx context.Context, key string) (bool, error) {
	exists, err := s.Store.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		s.count("present")
	} else {
		s.count("absent")
	}
	return exists, nil
}

func (s *CachedStore) count(result string) {
	if s.metrics != nil {
		s.metrics.FileLookups.WithLabelValues(result).Inc()
	}
}
