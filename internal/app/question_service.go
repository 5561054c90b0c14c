package app

import (
	"context"
	"encoding/json"
	"fmt"

	"quitz-service/internal/domain"
)

// QuestionStore abstracts the document store holding questions (MongoDB, Postgres, in-memory).
// IncrementTallies and AppendAnswer must be atomic per question.
type QuestionStore interface {
	Insert(ctx context.Context, question domain.Question) (string, error)
	FindOne(ctx context.Context, id string) (domain.Question, error)
	FindMany(ctx context.Context, ids []string) ([]domain.Question, error)
	Sample(ctx context.Context, size int) ([]domain.Question, error)
	IncrementTallies(ctx context.Context, id string, slots []int) error
	AppendAnswer(ctx context.Context, id, text string) error
}

// QuestionService contains the question and answer use cases.
type QuestionService struct {
	store  QuestionStore
	feed   *Feed
	maxLen int
}

func NewQuestionService(store QuestionStore, feed *Feed, maxLen int) *QuestionService {
	if maxLen <= 0 {
		maxLen = domain.MaxSampleLen
	}
	return &QuestionService{store: store, feed: feed, maxLen: maxLen}
}

// CreateChoice validates a creation payload and persists a choice or multi question.
func (s *QuestionService) CreateChoice(ctx context.Context, payload []byte) (string, error) {
	question, err := ParseChoicePayload(payload)
	if err != nil {
		return "", err
	}
	return s.store.Insert(ctx, question)
}

// CreateText persists a free-text question with an empty answer list.
func (s *QuestionService) CreateText(ctx context.Context, text string) (string, error) {
	if domain.TextLen(text) > domain.MaxTextLen {
		return "", fmt.Errorf("%w: question exceeds %d characters", domain.ErrTextTooLong, domain.MaxTextLen)
	}
	return s.store.Insert(ctx, domain.NewTextQuestion(text))
}

// SubmitAnswer tabulates token against the question and applies the result
// with a single atomic store call.
func (s *QuestionService) SubmitAnswer(ctx context.Context, token, id string) (domain.Tally, error) {
	question, err := s.store.FindOne(ctx, id)
	if err != nil {
		return domain.Tally{}, err
	}

	tally, err := Tabulate(question, token)
	if err != nil {
		return domain.Tally{}, err
	}

	if tally.Append {
		err = s.store.AppendAnswer(ctx, question.ID, tally.Text)
	} else {
		err = s.store.IncrementTallies(ctx, question.ID, tally.Slots)
	}
	if err != nil {
		return domain.Tally{}, err
	}

	if s.feed != nil {
		s.feed.Publish(tally)
	}
	return tally, nil
}

// Lookup returns the questions found for ids; unknown or malformed ids are skipped.
func (s *QuestionService) Lookup(ctx context.Context, ids []string) ([]domain.Question, error) {
	if len(ids) > s.maxLen {
		ids = ids[:s.maxLen]
	}
	if len(ids) == 0 {
		return []domain.Question{}, nil
	}
	return s.store.FindMany(ctx, ids)
}

// Watch subscribes to tallies applied to a question. The caller must invoke
// the returned cancel function.
func (s *QuestionService) Watch(ctx context.Context, id string) (domain.Question, <-chan domain.Tally, func(), error) {
	if s.feed == nil {
		return domain.Question{}, nil, nil, fmt.Errorf("tally feed not configured")
	}
	question, err := s.store.FindOne(ctx, id)
	if err != nil {
		return domain.Question{}, nil, nil, err
	}
	ch, cancel := s.feed.Subscribe(question.ID)
	return question, ch, cancel, nil
}

// ParseChoicePayload validates a creation payload: q (optional) first, then
// c before mc. Exactly the first option list found is kept.
func ParseChoicePayload(payload []byte) (domain.Question, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", domain.ErrInvalidQuestion, err)
	}

	var text string
	if raw, ok := fields["q"]; ok {
		if err := json.Unmarshal(raw, &text); err != nil {
			return domain.Question{}, fmt.Errorf("%w: q must be a string", domain.ErrInvalidQuestion)
		}
		if domain.TextLen(text) > domain.MaxTextLen {
			return domain.Question{}, fmt.Errorf("%w: question exceeds %d characters", domain.ErrTextTooLong, domain.MaxTextLen)
		}
	}

	for _, kind := range []domain.Kind{domain.KindChoice, domain.KindMulti} {
		raw, ok := fields[kind.OptionsKey()]
		if !ok {
			continue
		}
		var options []string
		if err := json.Unmarshal(raw, &options); err != nil || options == nil {
			return domain.Question{}, fmt.Errorf("%w: %s must be an array of strings", domain.ErrInvalidQuestion, kind.OptionsKey())
		}
		if len(options) > domain.MaxOptions {
			return domain.Question{}, fmt.Errorf("%w: %d options, at most %d allowed", domain.ErrTooManyOptions, len(options), domain.MaxOptions)
		}
		return domain.NewChoiceQuestion(kind, text, options), nil
	}
	return domain.Question{}, fmt.Errorf("%w: payload needs a c or mc array", domain.ErrInvalidQuestion)
}
