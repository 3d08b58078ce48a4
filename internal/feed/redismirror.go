package feed

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Devadharshan16/OmniQuant/internal/persistence"
)

// RedisMirror is the optional persistence.Mirror implementation that
// fans opportunity observations out to a Redis stream, adapted from
// the arb-bot reference code's internal/connectors/redisfeed.Publisher (HSet +
// stream-append pattern) for the persistence tracker's observation
// events instead of pair metadata. Persistence tracking never depends
// on this being wired: a nil Mirror is a fully supported configuration.
type RedisMirror struct {
	rdb    *redis.Client
	stream string
}

// NewRedisMirror constructs a RedisMirror against addr, appending
// observations to stream.
func NewRedisMirror(addr, stream string) *RedisMirror {
	if stream == "" {
		stream = "omniquant:opportunities"
	}
	return &RedisMirror{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		stream: stream,
	}
}

var _ persistence.Mirror = (*RedisMirror)(nil)

// Observe appends one observation to the mirror's stream. Errors are
// swallowed: the mirror is a best-effort side channel, never a
// dependency the persistence tracker's correctness relies on.
func (m *RedisMirror) Observe(fingerprint string, ret float64, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	m.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: m.stream,
		Values: map[string]interface{}{
			"fingerprint": fingerprint,
			"return":      ret,
			"ts_ms":       now.UnixMilli(),
		},
	})
}

// Close releases the underlying Redis client.
func (m *RedisMirror) Close() error {
	return m.rdb.Close()
}
