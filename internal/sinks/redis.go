package sinks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CurrentKey holds the latest snapshot for consumers that only want the current state.
const CurrentKey = "ticker:games:current"

// redisClient is the subset of *redis.Client the sink uses.
type redisClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisOptions configures the Redis sink.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// Redis appends every broadcast to a capped stream and overwrites the current-state key.
type Redis struct {
	client redisClient
	stream string
	maxLen int64
}

// NewRedis connects a Redis sink. The connection is lazy; the first publish surfaces errors.
func NewRedis(opts RedisOptions) (*Redis, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis sink requires an address")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return newRedisWithClient(client, opts.Stream, opts.MaxLen), nil
}

func newRedisWithClient(client redisClient, stream string, maxLen int64) *Redis {
	return &Redis{client: client, stream: stream, maxLen: maxLen}
}

func (r *Redis) Name() string { return "redis" }

// Publish writes the message to the stream and the current key.
func (r *Redis) Publish(ctx context.Context, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			"event": msg.Event,
			"data":  string(data),
			"games": len(msg.Data),
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if err := r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	if err := r.client.Set(ctx, CurrentKey, string(data), 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", CurrentKey, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
