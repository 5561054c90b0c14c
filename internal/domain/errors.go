package domain

import "errors"

var (
	// ErrInvalidID is returned when an identifier is malformed for the backing store.
	ErrInvalidID = errors.New("invalid question id")
	// ErrQuestionNotFound indicates no question exists for a well-formed id.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuestion indicates a malformed creation payload.
	ErrInvalidQuestion = errors.New("invalid question payload")
	// ErrTooManyOptions indicates a choice list longer than MaxOptions.
	ErrTooManyOptions = errors.New("too many options")
	// ErrTextTooLong indicates question or answer text longer than MaxTextLen.
	ErrTextTooLong = errors.New("text too long")
	// ErrInvalidAnswer indicates an answer token that does not parse for the question kind.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrAnswerOutOfRange indicates a choice index or mask outside the option set.
	ErrAnswerOutOfRange = errors.New("answer out of range")
	// ErrInvalidLength indicates a malformed sample length.
	ErrInvalidLength = errors.New("invalid sample length")
)

var clientErrors = []error{
	ErrInvalidID,
	ErrQuestionNotFound,
	ErrInvalidQuestion,
	ErrTooManyOptions,
	ErrTextTooLong,
	ErrInvalidAnswer,
	ErrAnswerOutOfRange,
	ErrInvalidLength,
}

// IsClientError reports whether err was caused by the caller's input.
// Anything else is a server error.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
