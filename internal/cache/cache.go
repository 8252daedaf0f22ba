// Package cache stores processed responses keyed by their source and query.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// Entry is a cached response.
type Entry struct {
	Data      []byte
	Extension string
}

type Cache interface {
	// Get returns the entry stored under key, nil when absent or expired.
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, key string, entry *Entry) error
	Close() error
}

// NewCache creates the cache named by cacheType. Entries expire after ttl,
// never when ttl is 0.
func NewCache(cacheType, connectionString string, ttl time.Duration) (cache Cache, err error) {
	switch cacheType {
	case "", "none":
		return noopCache{}, nil
	case "sqlite":
		cache, err = NewSQLiteCache(connectionString, ttl)
	case "redis":
		cache, err = NewRedisCache(connectionString, ttl)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s cache: %w", cacheType, err)
	}

	slog.Info("cache initialized", "type", cacheType, "ttl", ttl.String())
	return cache, nil
}

// Key derives a cache key from the parts identifying a response.
func Key(parts ...[]byte) string {
	h := sha256.New()
	for _, part := range parts {
		// length prefix keeps ("ab","c") apart from ("a","bc")
		_, _ = fmt.Fprintf(h, "%d:", len(part))
		_, _ = h.Write(part)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*Entry, error) { return nil, nil }
func (noopCache) Set(context.Context, string, *Entry) error   { return nil }
func (noopCache) Close() error                                { return nil }
