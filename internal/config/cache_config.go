package config

import "time"

type CacheConfig interface {
	GetKeepUnusedFor() time.Duration
	GetPortfolioTTL() time.Duration
}

type Cache struct{}

var _ CacheConfig = Cache{}

// GetKeepUnusedFor returns how long a cache entry with no subscribers is
// kept before it is reclaimed. Long enough to survive a view re-render,
// short enough to bound memory.
func (Cache) GetKeepUnusedFor() time.Duration {
	return durationEnv("CACHE_KEEP_UNUSED_FOR", 60*time.Second)
}

// GetPortfolioTTL returns the staleness window for the portfolio balance
// query. No mutation ever invalidates it, so its freshness is purely
// time-based.
func (Cache) GetPortfolioTTL() time.Duration {
	return durationEnv("PORTFOLIO_TTL", 30*time.Second)
}
