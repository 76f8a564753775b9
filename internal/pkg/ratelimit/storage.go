package ratelimit

import (
	"net"
	"strconv"

	"github.com/gofiber/storage/redis"

	"github.com/shopfox/shopfox/internal/pkg/cache"
	"github.com/shopfox/shopfox/internal/pkg/env"
)

var storage *redis.Storage

// NewStorage creates the Redis-backed storage used by the API rate limiter.
// Connection settings are derived from the existing cache client so both
// share one Redis instance; the limiter uses database 1 (cache uses DB 0).
func NewStorage() *redis.Storage {
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		// Prefer password from the underlying client if present
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	storage = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	return storage
}

func GetStorage() *redis.Storage {
	if storage == nil {
		return NewStorage()
	}
	return storage
}
