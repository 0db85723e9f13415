package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching will be disabled.
// Methods lists the HTTP methods to cache (e.g. GET, HEAD).  TTL defines the
// lifetime of cache entries.  API writes and reaper sweeps clear the cache,
// but a hold that lapses between sweeps stays visible in a cached response
// for up to TTL, so TTL must be shorter than yard.hold_ttl (Validate
// enforces it).  KeyStrategy determines which parts of the request
// contribute to the cache key.
type CacheConfig struct {
	Enabled      bool            `mapstructure:"enabled"`
	MethodList   string          `mapstructure:"methods"`
	Methods      map[string]bool `mapstructure:"-"`
	TTL          time.Duration   `mapstructure:"ttl"`
	KeyStrategy  string          `mapstructure:"key_strategy"`
	Prefix       string          `mapstructure:"prefix"`
	MaxBodyBytes int             `mapstructure:"max_body_bytes"`
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
