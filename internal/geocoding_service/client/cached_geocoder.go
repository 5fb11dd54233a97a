package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/casafacile/golang_services/internal/core_domain"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*core_domain.Coordinates, error)
}

// geocodeCacheTTL is long because street addresses do not move. The cache is
// keyed by normalized address, so a corrected address is a new key.
const geocodeCacheTTL = 30 * 24 * time.Hour

// CachedGeocoder wraps a Geocoder with a Redis read-through cache. Cache
// failures are soft: a Redis outage degrades to direct geocoder calls.
type CachedGeocoder struct {
	next   Geocoder
	redis  *redis.Client
	logger *slog.Logger
}

// NewCachedGeocoder creates a caching wrapper around next.
func NewCachedGeocoder(next Geocoder, redisClient *redis.Client, logger *slog.Logger) *CachedGeocoder {
	return &CachedGeocoder{
		next:   next,
		redis:  redisClient,
		logger: logger.With("component", "geocoder_cache"),
	}
}

func cacheKey(address string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(address), " "))
	sum := sha256.Sum256([]byte(normalized))
	return "geocode:" + hex.EncodeToString(sum[:])
}

func (c *CachedGeocoder) Geocode(ctx context.Context, address string) (*core_domain.Coordinates, error) {
	key := cacheKey(address)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var coords core_domain.Coordinates
		if err := json.Unmarshal([]byte(cached), &coords); err == nil {
			return &coords, nil
		}
		c.logger.WarnContext(ctx, "Corrupt geocode cache entry, refetching", "key", key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "Geocode cache read failed, falling through", "error", err)
	}

	coords, err := c.next.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(coords)
	if err == nil {
		if err := c.redis.Set(ctx, key, payload, geocodeCacheTTL).Err(); err != nil {
			c.logger.WarnContext(ctx, "Geocode cache write failed", "error", err)
		}
	}
	return coords, nil
}
