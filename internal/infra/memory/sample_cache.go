package memory

import (
	"context"
	"sync"

	"quitz-service/internal/app"
)

// SampleCache is the in-process app.SampleCache: one mutex-guarded slot.
type SampleCache struct {
	mu     sync.Mutex
	sample app.CachedSample
	filled bool
}

func NewSampleCache() *SampleCache {
	return &SampleCache{}
}

func (c *SampleCache) Load(_ context.Context) (app.CachedSample, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sample, c.filled, nil
}

func (c *SampleCache) Store(_ context.Context, sample app.CachedSample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sample = sample
	c.filled = true
	return nil
}
