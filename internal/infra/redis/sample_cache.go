package redis

import (
	"context"
	"fmt"
	"strconv"

	"quitz-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SampleCache keeps the shared sample slot in Redis so every replica serves
// the same cached response. The slot is stored as:
// HSET quitz:sample size {n} body {json}
type SampleCache struct {
	client *redis.Client
	key    string
}

func NewSampleCache(client *redis.Client) *SampleCache {
	return &SampleCache{client: client, key: "quitz:sample"}
}

func (c *SampleCache) Load(ctx context.Context) (app.CachedSample, bool, error) {
	fields, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return app.CachedSample{}, false, fmt.Errorf("load sample slot: %w", err)
	}
	body, ok := fields["body"]
	if !ok {
		return app.CachedSample{}, false, nil
	}
	size, err := strconv.Atoi(fields["size"])
	if err != nil {
		return app.CachedSample{}, false, nil
	}
	return app.CachedSample{Size: size, Body: []byte(body)}, true, nil
}

func (c *SampleCache) Store(ctx context.Context, sample app.CachedSample) error {
	// one HSET so readers never see a size from one write and a body from another
	if err := c.client.HSet(ctx, c.key, "size", sample.Size, "body", sample.Body).Err(); err != nil {
		return fmt.Errorf("store sample slot: %w", err)
	}
	return nil
}
