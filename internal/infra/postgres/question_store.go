package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quitz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const questionColumns = `id::text, kind, q, options, tallies, answers`

// incrementSQL bumps every tally whose bit is set in $2 in a single UPDATE,
// so concurrent answers serialize on the row lock and none are lost.
const incrementSQL = `
UPDATE questions
SET tallies = ARRAY(
    SELECT t + CASE WHEN (($2::bigint >> (i - 1)::int) & 1) = 1 THEN 1 ELSE 0 END
    FROM unnest(tallies) WITH ORDINALITY AS u(t, i)
    ORDER BY i
)
WHERE id = $1 AND kind IN ('choice', 'multi')`

// QuestionStore keeps questions in the questions table created by the migrations package.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) Insert(ctx context.Context, question domain.Question) (string, error) {
	options, tallies, answers := columns(question)
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO questions (kind, q, options, tallies, answers) VALUES ($1, $2, $3, $4, $5) RETURNING id::text`,
		string(question.Kind), question.Text, options, tallies, answers,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert question: %w", err)
	}
	return id, nil
}

func (s *QuestionStore) FindOne(ctx context.Context, id string) (domain.Question, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Question{}, fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	question, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Question{}, fmt.Errorf("find question %s: %w", id, err)
	}
	return question, nil
}

func (s *QuestionStore) FindMany(ctx context.Context, ids []string) ([]domain.Question, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []domain.Question{}, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ANY($1::text[]::uuid[])`, valid)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	return drain(rows), nil
}

func (s *QuestionStore) Sample(ctx context.Context, size int) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY random() LIMIT $1`, size)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	return drain(rows), nil
}

func (s *QuestionStore) IncrementTallies(ctx context.Context, id string, slots []int) error {
	return s.exec(ctx, id, incrementSQL, domain.Tally{Slots: slots}.Mask())
}

func (s *QuestionStore) AppendAnswer(ctx context.Context, id, text string) error {
	return s.exec(ctx, id, `UPDATE questions SET answers = array_append(answers, $2) WHERE id = $1 AND kind = 'text'`, text)
}

func (s *QuestionStore) exec(ctx context.Context, id, sql string, arg any) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidID, id)
	}
	tag, err := s.pool.Exec(ctx, sql, id, arg)
	if err != nil {
		return fmt.Errorf("update question %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func columns(q domain.Question) ([]string, []int64, []string) {
	options := q.Options
	if options == nil {
		options = []string{}
	}
	tallies := q.Tallies
	if tallies == nil {
		tallies = []int64{}
	}
	answers := q.Answers
	if answers == nil {
		answers = []string{}
	}
	return options, tallies, answers
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q    domain.Question
		kind string
	)
	if err := row.Scan(&q.ID, &kind, &q.Text, &q.Options, &q.Tallies, &q.Answers); err != nil {
		return domain.Question{}, err
	}
	q.Kind = domain.Kind(kind)
	if !q.Kind.Valid() {
		return domain.Question{}, fmt.Errorf("question %s has unknown kind %q", q.ID, kind)
	}
	if q.Kind == domain.KindText {
		q.Options, q.Tallies = nil, nil
	} else {
		q.Answers = nil
	}
	return q, nil
}

// drain collects rows until the result ends or a row fails to scan; the
// questions read so far are returned either way.
func drain(rows pgx.Rows) []domain.Question {
	defer rows.Close()
	questions := []domain.Question{}
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			slog.Warn("stopping at unreadable question", "error", err)
			break
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		slog.Warn("question rows ended early", "error", err)
	}
	return questions
}
