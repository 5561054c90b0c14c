package domain

import (
	"encoding/json"
	"unicode/utf8"
)

const (
	// MaxTextLen bounds question text and free-text answers, in characters.
	MaxTextLen = 300
	// MaxOptions bounds the option list of choice questions.
	MaxOptions = 8
	// MaxSampleLen is the default upper bound on questions returned per read.
	MaxSampleLen = 20
)

// Kind is the declared shape of a question.
type Kind string

const (
	KindChoice Kind = "choice"
	KindMulti  Kind = "multi"
	KindText   Kind = "text"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindChoice, KindMulti, KindText:
		return true
	}
	return false
}

// Question is a stored question. Tallies is set for choice and multi
// questions and always has len(Options) entries; Answers is set for text
// questions.
type Question struct {
	ID      string
	Text    string
	Kind    Kind
	Options []string
	Tallies []int64
	Answers []string
}

// NewChoiceQuestion builds a choice or multi question with zeroed tallies.
func NewChoiceQuestion(kind Kind, text string, options []string) Question {
	return Question{
		Text:    text,
		Kind:    kind,
		Options: options,
		Tallies: make([]int64, len(options)),
	}
}

// NewTextQuestion builds a free-text question with no answers.
func NewTextQuestion(text string) Question {
	return Question{
		Text:    text,
		Kind:    KindText,
		Answers: []string{},
	}
}

// OptionsKey is the wire key holding the option labels, empty for text questions.
func (k Kind) OptionsKey() string {
	switch k {
	case KindChoice:
		return "c"
	case KindMulti:
		return "mc"
	}
	return ""
}

// wireQuestion keeps the historical document keys on the wire.
type wireQuestion struct {
	ID      string   `json:"_id"`
	Text    string   `json:"q,omitempty"`
	Choice  []string `json:"c,omitempty"`
	Multi   []string `json:"mc,omitempty"`
	Answers any      `json:"a"`
}

// MarshalJSON renders the question as {"_id","q","c"|"mc","a"}.
func (q Question) MarshalJSON() ([]byte, error) {
	w := wireQuestion{ID: q.ID, Text: q.Text}
	switch q.Kind {
	case KindChoice:
		w.Choice = nonNil(q.Options)
		w.Answers = nonNilTallies(q.Tallies)
	case KindMulti:
		w.Multi = nonNil(q.Options)
		w.Answers = nonNilTallies(q.Tallies)
	default:
		w.Answers = nonNil(q.Answers)
	}
	if len(w.Choice) == 0 && q.Kind == KindChoice {
		// omitempty would otherwise turn an empty choice list into a text question.
		return json.Marshal(struct {
			wireQuestion
			Choice []string `json:"c"`
		}{w, []string{}})
	}
	if len(w.Multi) == 0 && q.Kind == KindMulti {
		return json.Marshal(struct {
			wireQuestion
			Multi []string `json:"mc"`
		}{w, []string{}})
	}
	return json.Marshal(w)
}

// TextLen counts characters the way the length bounds are defined.
func TextLen(s string) int {
	return utf8.RuneCountInString(s)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilTallies(t []int64) []int64 {
	if t == nil {
		return []int64{}
	}
	return t
}
