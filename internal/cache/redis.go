package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/varunSalat/Blog-backed/config"
	"github.com/varunSalat/Blog-backed/types"
)

const (
	mostViewedPrefix = "blog:most_viewed:"
	generationKey    = "blog:most_viewed:gen"
	defaultTTL       = 5 * time.Minute
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// PostCache stores rendered post listings in Redis.
type PostCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPostCache(client *redis.Client, ttl time.Duration) *PostCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &PostCache{client: client, ttl: ttl}
}

// MostViewed returns the cached most-viewed listing together with the
// generation it was looked up under. The generation is valid on ErrMiss too
// and must be handed back to SetMostViewed.
func (c *PostCache) MostViewed(ctx context.Context) ([]types.Post, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}

	raw, err := c.client.Get(ctx, mostViewedKey(gen)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, ErrMiss
		}
		return nil, gen, err
	}

	var posts []types.Post
	if err := json.Unmarshal(raw, &posts); err != nil {
		return nil, gen, err
	}
	return posts, gen, nil
}

// SetMostViewed stores posts under generation gen. A listing loaded before
// an Invalidate lands under a generation nobody reads anymore.
func (c *PostCache) SetMostViewed(ctx context.Context, gen int64, posts []types.Post) error {
	raw, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, mostViewedKey(gen), raw, c.ttl).Err()
}

// Invalidate moves readers to a fresh generation. Called after any post
// mutation.
func (c *PostCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func (c *PostCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func mostViewedKey(gen int64) string {
	return mostViewedPrefix + strconv.FormatInt(gen, 10)
}
