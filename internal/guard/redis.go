package guard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a guard shared by every API replica. Locks expire after ttl so a
// request that dies mid-flight cannot hold a key forever.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedis builds a guard storing keys under prefix.
func NewRedis(client redis.Cmdable, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "mess:guard"
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) lockKey(key string) string { return r.prefix + ":lock:" + key }
func (r *Redis) seqKey(key string) string  { return r.prefix + ":seq:" + key }

func (r *Redis) Acquire(ctx context.Context, key string) (Ticket, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.lockKey(key), token, r.ttl).Result()
	if err != nil {
		return Ticket{}, errors.Wrapf(err, "acquiring %s", key)
	}
	if !ok {
		return Ticket{}, ErrBusy
	}
	seq, err := r.client.Incr(ctx, r.seqKey(key)).Result()
	if err != nil {
		_ = releaseScript.Run(ctx, r.client, []string{r.lockKey(key)}, token).Err()
		return Ticket{}, errors.Wrapf(err, "sequencing %s", key)
	}
	return Ticket{Key: key, Seq: uint64(seq), Token: token}, nil
}

func (r *Redis) Release(ctx context.Context, t Ticket) error {
	err := releaseScript.Run(ctx, r.client, []string{r.lockKey(t.Key)}, t.Token).Err()
	if err != nil && err != redis.Nil {
		return errors.Wrapf(err, "releasing %s", t.Key)
	}
	return nil
}

func (r *Redis) Latest(ctx context.Context, t Ticket) (bool, error) {
	seq, err := r.client.Get(ctx, r.seqKey(t.Key)).Uint64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "reading sequence of %s", t.Key)
	}
	return seq == t.Seq, nil
}
