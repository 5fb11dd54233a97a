package client

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// KeyFetcher retrieves the current geocoder API key from its source, e.g.
// configuration or a secret store.
type KeyFetcher func(ctx context.Context) (string, error)

// StaticKey returns a fetcher that always yields the given key.
func StaticKey(key string) KeyFetcher {
	return func(context.Context) (string, error) {
		return key, nil
	}
}

// Credential holds the geocoder API key, fetched lazily on first use and
// re-fetched after refreshAfter elapses or after Invalidate. This keeps key
// rotation out of request paths: callers just ask for the current key.
type Credential struct {
	mu           sync.Mutex
	fetch        KeyFetcher
	refreshAfter time.Duration
	key          string
	loadedAt     time.Time
}

// NewCredential creates a credential backed by fetch. A refreshAfter of zero
// disables time-based refresh; Invalidate still forces a re-fetch.
func NewCredential(fetch KeyFetcher, refreshAfter time.Duration) *Credential {
	return &Credential{fetch: fetch, refreshAfter: refreshAfter}
}

// Get returns the current key, fetching it if not yet loaded or expired.
func (c *Credential) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != "" && (c.refreshAfter <= 0 || time.Since(c.loadedAt) < c.refreshAfter) {
		return c.key, nil
	}

	key, err := c.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch geocoder credential: %w", err)
	}
	c.key = key
	c.loadedAt = time.Now()
	return c.key, nil
}

// Invalidate discards the cached key so the next Get re-fetches it. Called
// when the geocoder rejects the key (401/403).
func (c *Credential) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = ""
}
