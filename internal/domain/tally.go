package domain

// Tally is the mutation an answer applies to a question: either one
// increment per slot in Slots, or an append of Text.
type Tally struct {
	QuestionID string `json:"questionId"`
	Slots      []int  `json:"slots,omitempty"`
	Text       string `json:"text,omitempty"`
	Append     bool   `json:"append,omitempty"`
}

// Mask folds the slot list back into the bitmask form of a multi-choice answer.
func (t Tally) Mask() int64 {
	var mask int64
	for _, slot := range t.Slots {
		mask |= 1 << slot
	}
	return mask
}
