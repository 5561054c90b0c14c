package app_test

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"quitz-service/internal/app"
	"quitz-service/internal/domain"
)

func TestTabulate(t *testing.T) {
	choice := domain.NewChoiceQuestion(domain.KindChoice, "pick one", []string{"a", "b"})
	multi := domain.NewChoiceQuestion(domain.KindMulti, "pick any", []string{"a", "b", "c"})
	full := domain.NewChoiceQuestion(domain.KindMulti, "", []string{"1", "2", "3", "4", "5", "6", "7", "8"})
	text := domain.NewTextQuestion("why?")

	cases := []struct {
		name     string
		question domain.Question
		token    string
		slots    []int
		appended string
		err      error
	}{
		{name: "choice first", question: choice, token: "0", slots: []int{0}},
		{name: "choice last", question: choice, token: "1", slots: []int{1}},
		{name: "choice out of range", question: choice, token: "2", err: domain.ErrAnswerOutOfRange},
		{name: "choice negative", question: choice, token: "-1", err: domain.ErrInvalidAnswer},
		{name: "choice not a number", question: choice, token: "b", err: domain.ErrInvalidAnswer},
		{name: "multi single bit", question: multi, token: "2", slots: []int{1}},
		{name: "multi several bits", question: multi, token: "5", slots: []int{0, 2}},
		{name: "multi all bits", question: multi, token: "7", slots: []int{0, 1, 2}},
		{name: "multi zero", question: multi, token: "0", err: domain.ErrAnswerOutOfRange},
		{name: "multi negative", question: multi, token: "-3", err: domain.ErrAnswerOutOfRange},
		{name: "multi above max", question: multi, token: "8", err: domain.ErrAnswerOutOfRange},
		{name: "multi not a number", question: multi, token: "1,2", err: domain.ErrInvalidAnswer},
		{name: "multi eight options", question: full, token: "255", slots: []int{0, 1, 2, 3, 4, 5, 6, 7}},
		{name: "multi eight options above max", question: full, token: "256", err: domain.ErrAnswerOutOfRange},
		{name: "text", question: text, token: "because", appended: "because"},
		{name: "text at limit", question: text, token: strings.Repeat("x", domain.MaxTextLen), appended: strings.Repeat("x", domain.MaxTextLen)},
		{name: "text too long", question: text, token: strings.Repeat("x", domain.MaxTextLen+1), err: domain.ErrTextTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tally, err := app.Tabulate(tc.question, tc.token)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				if !domain.IsClientError(err) {
					t.Fatalf("expected a client error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(tally.Slots, tc.slots) {
				t.Fatalf("expected slots %v, got %v", tc.slots, tally.Slots)
			}
			if tally.Append != (tc.appended != "") || tally.Text != tc.appended {
				t.Fatalf("expected append %q, got %+v", tc.appended, tally)
			}
		})
	}
}

func TestTabulateMaskMatchesSlots(t *testing.T) {
	multi := domain.NewChoiceQuestion(domain.KindMulti, "", []string{"a", "b", "c", "d"})
	for mask := int64(1); mask < 16; mask++ {
		tally, err := app.Tabulate(multi, strconv.FormatInt(mask, 10))
		if err != nil {
			t.Fatalf("mask %d: %v", mask, err)
		}
		if tally.Mask() != mask {
			t.Fatalf("mask %d folded back to %d", mask, tally.Mask())
		}
	}
}
