// Package redisout mirrors published entries onto a Redis list so
// external consumers can tail the stream without speaking our API.
// Delivery is best effort: a failed push is counted and dropped.
package redisout

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/evlog/evlog/internal/enrich"
)

const pushTimeout = 2 * time.Second

// Sink pushes JSON-encoded entries with RPUSH onto a single key.
type Sink struct {
	client   *redis.Client
	key      string
	failures atomic.Int64
}

// New connects to addr and verifies it with a ping so a misconfigured
// mirror fails at startup, not at first message.
func New(addr, key string) (*Sink, error) {
	if key == "" {
		return nil, fmt.Errorf("redis mirror: key is required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis mirror: ping %s: %w", addr, err)
	}
	log.Printf("[redisout] mirroring entries to %s key %q", addr, key)
	return &Sink{client: client, key: key}, nil
}

// Publish pushes e onto the list. Never blocks the caller beyond the
// push timeout and never returns an error; failures are counted.
func (s *Sink) Publish(e enrich.Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[redisout] marshal entry %d: %v", e.ID, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		if n := s.failures.Add(1); n == 1 || n%1000 == 0 {
			log.Printf("[redisout] push failed (%d so far): %v", n, err)
		}
	}
}

// Failures reports how many pushes have been dropped.
func (s *Sink) Failures() int64 {
	return s.failures.Load()
}

func (s *Sink) Close() error {
	return s.client.Close()
}
