package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"

	"quitz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultHitRatio is the probability of answering a sample request from the cache slot.
const DefaultHitRatio = 1.5 / 2.0

// CachedSample is the content of the single shared sample slot.
type CachedSample struct {
	Size int
	Body []byte
}

// SampleCache holds the last serialized random sample (in-memory, Redis, etc).
type SampleCache interface {
	Load(ctx context.Context) (CachedSample, bool, error)
	Store(ctx context.Context, sample CachedSample) error
}

// Sampler serves random question samples, reusing the cached response with
// probability hitRatio. The cache is approximate: no TTL, no invalidation.
//
// The slot only answers requests for the size it was filled with, so callers
// alternating between sizes overwrite it in turn and see a hit rate well
// below hitRatio.
type Sampler struct {
	store    QuestionStore
	cache    SampleCache
	maxLen   int
	hitRatio float64
	roll     func() float64
	sf       singleflight.Group
}

// NewSampler builds a sampler; cache may be nil to always query the store.
func NewSampler(store QuestionStore, cache SampleCache, maxLen int, hitRatio float64) *Sampler {
	if maxLen <= 0 {
		maxLen = domain.MaxSampleLen
	}
	return &Sampler{
		store:    store,
		cache:    cache,
		maxLen:   maxLen,
		hitRatio: hitRatio,
		roll:     rand.Float64,
	}
}

// Clamp bounds a requested sample length to [0, maxLen].
func (s *Sampler) Clamp(n int) int {
	if n < 0 {
		return 0
	}
	if n > s.maxLen {
		return s.maxLen
	}
	return n
}

// Sample returns a JSON array of at most maxLen random questions.
func (s *Sampler) Sample(ctx context.Context, n int) ([]byte, error) {
	size := s.Clamp(n)
	if size == 0 {
		return []byte("[]"), nil
	}

	if s.cache != nil && s.roll() < s.hitRatio {
		cached, ok, err := s.cache.Load(ctx)
		if err != nil {
			slog.Warn("sample cache load failed", "error", err)
		} else if ok && cached.Size == size {
			return cached.Body, nil
		}
	}

	// one query serves every caller of this size; it outlives the caller that started it
	shared := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(strconv.Itoa(size), func() (interface{}, error) {
		return s.fetch(shared, size)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Sampler) fetch(ctx context.Context, size int) ([]byte, error) {
	questions, err := s.store.Sample(ctx, size)
	if err != nil {
		return nil, err
	}
	if questions == nil {
		questions = []domain.Question{}
	}
	body, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("encode sample: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Store(ctx, CachedSample{Size: size, Body: body}); err != nil {
			slog.Warn("sample cache store failed", "error", err)
		}
	}
	return body, nil
}
