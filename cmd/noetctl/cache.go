package main

import (
	"fmt"

	"github.com/ali01/noetgraph/internal/cache"
	"github.com/ali01/noetgraph/internal/cache/boltcache"
	"github.com/ali01/noetgraph/internal/cache/memcache"
	"github.com/ali01/noetgraph/internal/cache/pgcache"
	"github.com/ali01/noetgraph/internal/cache/sqlitecache"
	"github.com/ali01/noetgraph/internal/config"
)

// openCache opens the backend named by cfg.Cache.Backend and returns it
// alongside a close func (a no-op for the in-memory backend).
func openCache(cc config.CacheConfig) (cache.BeliefSource, func() error, error) {
	switch cc.Backend {
	case "memory":
		return memcache.New(), func() error { return nil }, nil
	case "sqlite":
		store, err := sqlitecache.Open(cc.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		return store, store.Close, nil
	case "bolt":
		store, err := boltcache.Open(cc.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open bolt cache: %w", err)
		}
		return store, store.Close, nil
	case "postgres":
		store, err := pgcache.Open(cc.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres cache: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cc.Backend)
	}
}
