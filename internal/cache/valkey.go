package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
}

// ValkeyClient backs fixed-window rate limits with INCR and EXPIRE NX.
type ValkeyClient struct {
	client *redis.Client
	prefix string
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return NewValkeyClientFromRedis(rdb), nil
}

// NewValkeyClientFromRedis wraps an existing client.
func NewValkeyClientFromRedis(rdb *redis.Client) *ValkeyClient {
	return &ValkeyClient{client: rdb, prefix: "ratelimit:"}
}

// Allow counts one hit for key in the current window and reports whether the
// count is still within limit.
func (v *ValkeyClient) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	k := v.prefix + key

	// EXPIRE NX в той же транзакции: ключ без TTL получит его на следующем хите
	var incr *redis.IntCmd
	_, err := v.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit update failed: %w", err)
	}

	return incr.Val() <= int64(limit), nil
}

func (v *ValkeyClient) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
