package store

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the client shared by the guard, the report cache and the
// event queue.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects with short timeouts. addr is host:port or a redis:// URL.
func NewRedis(addr string) *Redis {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			log.Printf("invalid redis url, using it as an address: %v", err)
		} else {
			opts = parsed
		}
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = time.Second
	opts.WriteTimeout = time.Second
	return &Redis{Client: redis.NewClient(opts)}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close closes the client.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
