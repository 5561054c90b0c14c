package app

// NewSamplerWithRoll replaces the random roll for deterministic cache hits.
func NewSamplerWithRoll(store QuestionStore, cache SampleCache, maxLen int, hitRatio float64, roll func() float64) *Sampler {
	s := NewSampler(store, cache, maxLen, hitRatio)
	s.roll = roll
	return s
}

// Watchers reports how many subscribers a question has.
func (f *Feed) Watchers(questionID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers[questionID])
}
