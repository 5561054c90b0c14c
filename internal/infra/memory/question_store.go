package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quitz-service/internal/domain"
	"github.com/google/uuid"
)

// QuestionStore is an in-memory implementation of app.QuestionStore.
// A single mutex makes every increment and append atomic.
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	rnd       *rand.Rand
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{
		questions: make(map[string]domain.Question),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *QuestionStore) Insert(_ context.Context, question domain.Question) (string, error) {
	question.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[question.ID] = clone(question)
	return question.ID, nil
}

func (s *QuestionStore) FindOne(_ context.Context, id string) (domain.Question, error) {
	if id == "" {
		return domain.Question{}, domain.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return clone(question), nil
}

func (s *QuestionStore) FindMany(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make([]domain.Question, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if question, ok := s.questions[id]; ok {
			found = append(found, clone(question))
		}
	}
	return found, nil
}

func (s *QuestionStore) Sample(_ context.Context, size int) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.questions))
	for id := range s.questions {
		ids = append(ids, id)
	}
	s.rnd.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if size < len(ids) {
		ids = ids[:size]
	}
	sample := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		sample = append(sample, clone(s.questions[id]))
	}
	return sample, nil
}

func (s *QuestionStore) IncrementTallies(_ context.Context, id string, slots []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	for _, slot := range slots {
		if slot < 0 || slot >= len(question.Tallies) {
			return fmt.Errorf("increment slot %d of %d", slot, len(question.Tallies))
		}
	}
	for _, slot := range slots {
		question.Tallies[slot]++
	}
	s.questions[id] = question
	return nil
}

func (s *QuestionStore) AppendAnswer(_ context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	question, ok := s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	question.Answers = append(question.Answers, text)
	s.questions[id] = question
	return nil
}

func clone(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	if q.Tallies != nil {
		q.Tallies = append([]int64{}, q.Tallies...)
	}
	if q.Answers != nil {
		q.Answers = append([]string{}, q.Answers...)
	}
	return q
}
