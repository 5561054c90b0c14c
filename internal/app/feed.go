package app

import (
	"sync"

	"quitz-service/internal/domain"
)

// Feed fans applied tallies out to watchers of a question. It is in-process
// only; each instance sees the answers it handled itself.
type Feed struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.Tally]struct{}
	buffer      int
}

func NewFeed() *Feed {
	return &Feed{
		subscribers: make(map[string]map[chan domain.Tally]struct{}),
		buffer:      8,
	}
}

// Subscribe registers a watcher for questionID.
func (f *Feed) Subscribe(questionID string) (<-chan domain.Tally, func()) {
	ch := make(chan domain.Tally, f.buffer)

	f.mu.Lock()
	subs, ok := f.subscribers[questionID]
	if !ok {
		subs = make(map[chan domain.Tally]struct{})
		f.subscribers[questionID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		subs, ok := f.subscribers[questionID]
		if !ok {
			return
		}
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.subscribers, questionID)
		}
	}
	return ch, cancel
}

// Publish delivers tally to every watcher of its question without blocking.
func (f *Feed) Publish(tally domain.Tally) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers[tally.QuestionID] {
		select {
		case ch <- tally:
		default:
			// slow watcher: drop its oldest event to make room
			select {
			case <-ch:
			default:
			}
			ch <- tally
		}
	}
}
