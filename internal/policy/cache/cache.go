// Package cache is a Redis read-through cache for policy lookups. The
// service treats a nil *Cache as disabled, so deployments without Redis run
// straight against the store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"policygate/internal/policy/models"
	id "policygate/pkg/domain"
)

const (
	policyKeyPrefix = "policy:id:"
	defaultTTL      = 5 * time.Minute
)

// Cache holds cached policy records keyed by id. Entries expire on TTL and
// are invalidated eagerly on every mutation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// New constructs a policy cache over an existing Redis client. Returns nil
// when the client is nil so callers can wire it unconditionally.
func New(client *redis.Client, opts ...Option) *Cache {
	if client == nil {
		return nil
	}
	c := &Cache{client: client, ttl: defaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get returns the cached policy, or (nil, nil) on a miss. Cache errors are
// returned so the caller can log them; a failed read never blocks the
// store lookup.
func (c *Cache) Get(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	if c == nil {
		return nil, nil
	}
	raw, err := c.client.Get(ctx, policyKeyPrefix+policyID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p models.Policy
	if err := json.Unmarshal(raw, &p); err != nil {
		// Poisoned entry; drop it and treat as a miss.
		c.client.Del(ctx, policyKeyPrefix+policyID.String())
		return nil, nil
	}
	return &p, nil
}

// Set stores the policy with the configured TTL.
func (c *Cache) Set(ctx context.Context, p *models.Policy) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, policyKeyPrefix+p.ID.String(), raw, c.ttl).Err()
}

// Invalidate drops the cached entry for the policy.
func (c *Cache) Invalidate(ctx context.Context, policyID id.PolicyID) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, policyKeyPrefix+policyID.String()).Err()
}
