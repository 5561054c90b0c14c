package app

import (
	"fmt"
	"strconv"

	"quitz-service/internal/domain"
)

// Tabulate interprets an answer token against the question's declared shape
// and returns the mutation to apply. It never touches the store.
func Tabulate(question domain.Question, token string) (domain.Tally, error) {
	tally := domain.Tally{QuestionID: question.ID}
	switch question.Kind {
	case domain.KindChoice:
		index, err := strconv.Atoi(token)
		if err != nil || index < 0 {
			return domain.Tally{}, fmt.Errorf("%w: %q is not an option index", domain.ErrInvalidAnswer, token)
		}
		if index >= len(question.Options) {
			return domain.Tally{}, fmt.Errorf("%w: index %d with %d options", domain.ErrAnswerOutOfRange, index, len(question.Options))
		}
		tally.Slots = []int{index}
	case domain.KindMulti:
		mask, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return domain.Tally{}, fmt.Errorf("%w: %q is not an option mask", domain.ErrInvalidAnswer, token)
		}
		n := len(question.Options)
		maxMask := int64(1)<<n - 1
		if mask <= 0 || mask > maxMask {
			return domain.Tally{}, fmt.Errorf("%w: mask %d with %d options", domain.ErrAnswerOutOfRange, mask, n)
		}
		for i := 0; i < n; i++ {
			bit := int64(1) << i
			if mask&bit == bit {
				tally.Slots = append(tally.Slots, i)
			}
		}
	case domain.KindText:
		if domain.TextLen(token) > domain.MaxTextLen {
			return domain.Tally{}, fmt.Errorf("%w: answer exceeds %d characters", domain.ErrTextTooLong, domain.MaxTextLen)
		}
		tally.Text = token
		tally.Append = true
	default:
		return domain.Tally{}, fmt.Errorf("unknown question kind %q", question.Kind)
	}
	return tally, nil
}
