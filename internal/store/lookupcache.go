// internal/store/lookupcache.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"

	"github.com/redis/go-redis/v9"
)

// LookupCache keeps the decision-maker and signer lists fetched from the
// case system in Redis so the review workflow does not hit the upstream
// API on every page load. Entries carry a fetch timestamp and expire after
// the configured TTL; the daily scheduler job refreshes them proactively.
type LookupCache struct {
	rdb *redis.Client
	ttl time.Duration
}

const (
	LookupDecisionMakers = "decision_makers"
	LookupSigners        = "signers"
)

func NewLookupCache(rdb *redis.Client, ttl time.Duration) *LookupCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LookupCache{rdb: rdb, ttl: ttl}
}

func lookupKey(name string) string {
	return "lookup:" + name
}

// Put stores the entries under the named lookup, stamping the fetch time.
func (c *LookupCache) Put(ctx context.Context, name string, entries []models.LookupEntry) error {
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal lookup %s: %w", name, err)
	}
	cached := models.CachedLookup{
		Name:      name,
		Payload:   payload,
		FetchedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal lookup %s: %w", name, err)
	}
	if err := c.rdb.Set(ctx, lookupKey(name), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache lookup %s: %w", name, err)
	}
	return nil
}

// Get returns the cached entries, or ErrNotFound when the lookup is absent
// or expired.
func (c *LookupCache) Get(ctx context.Context, name string) ([]models.LookupEntry, error) {
	raw, err := c.rdb.Get(ctx, lookupKey(name)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: lookup %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read lookup %s: %w", name, err)
	}

	var cached models.CachedLookup
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode lookup %s: %w", name, err)
	}
	var entries []models.LookupEntry
	if err := json.Unmarshal(cached.Payload, &entries); err != nil {
		return nil, fmt.Errorf("decode lookup %s entries: %w", name, err)
	}
	return entries, nil
}

// FetchedAt reports when the named lookup was last refreshed.
func (c *LookupCache) FetchedAt(ctx context.Context, name string) (time.Time, error) {
	raw, err := c.rdb.Get(ctx, lookupKey(name)).Bytes()
	if err == redis.Nil {
		return time.Time{}, fmt.Errorf("%w: lookup %s", ErrNotFound, name)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read lookup %s: %w", name, err)
	}
	var cached models.CachedLookup
	if err := json.Unmarshal(raw, &cached); err != nil {
		return time.Time{}, fmt.Errorf("decode lookup %s: %w", name, err)
	}
	return cached.FetchedAt, nil
}
