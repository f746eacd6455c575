package attacklog

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTally increments a per-category-per-day counter in Redis so a fleet
// of proxy replicas can report aggregate attack counts without reading each
// other's gzipped log files (spec.md §4.K supplement). Grounded on the
// teacher's agent.RedisBackend client/prefix shape.
type RedisTally struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisTally(client redis.UniversalClient, prefix string) *RedisTally {
	if prefix == "" {
		prefix = "argoproxy:attacklog:"
	}
	return &RedisTally{client: client, prefix: prefix}
}

// Increment is fire-and-forget: a Redis outage never blocks or fails the
// log write it's attached to.
func (t *RedisTally) Increment(category Category, day string) {
	if t == nil || t.client == nil {
		return
	}
	key := fmt.Sprintf("%s%s:%s", t.prefix, day, category)
	t.client.Incr(context.Background(), key)
}
