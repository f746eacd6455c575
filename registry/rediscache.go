package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taipm/argoproxy/ir"
)

// RedisCache is the optional SnapshotCache of spec.md §4.D's refresh
// supplement: multiple proxy processes behind the same Argo deployment
// share one freshly-fetched catalogue under a single key instead of each
// independently hammering the upstream catalogue endpoint. Grounded on the
// teacher's agent.RedisBackend — same client type, same TTL-on-write shape,
// narrowed to a single snapshot key instead of one key per memory id.
type RedisCache struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisCache wraps an existing client. Absence of a reachable Redis
// instance is never fatal to Registry — Load/Store just report failure and
// the caller falls back to fetching directly.
func NewRedisCache(client redis.UniversalClient, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = "argoproxy:registry:snapshot"
	}
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

func (c *RedisCache) Load(ctx context.Context) ([]ir.ModelEntry, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key).Result()
	if err != nil {
		return nil, false
	}
	var entries []ir.ModelEntry
	if err := json.Unmarshal([]byte(data), &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *RedisCache) Store(ctx context.Context, entries []ir.ModelEntry) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key, data, c.ttl)
}
