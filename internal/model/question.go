package model

import (
	"github.com/google/uuid"
)

// OptionLetters are the valid answer choices for every question.
var OptionLetters = []string{"A", "B", "C", "D"}

// IsValidOption reports whether s is one of the four option letters.
func IsValidOption(s string) bool {
	switch s {
	case "A", "B", "C", "D":
		return true
	}
	return false
}

// Question is a single exam item. Immutable once its set is published.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ExamSetID     uuid.UUID `json:"exam_set_id"`
	QuestionText  string    `json:"question_text"`
	OptionA       string    `json:"option_a"`
	OptionB       string    `json:"option_b"`
	OptionC       string    `json:"option_c"`
	OptionD       string    `json:"option_d"`
	CorrectOption string    `json:"-"`
	OrderNum      int       `json:"order_num"`
}

// Option returns the option text for a letter, or "" for an unknown letter.
func (q *Question) Option(letter string) string {
	switch letter {
	case "A":
		return q.OptionA
	case "B":
		return q.OptionB
	case "C":
		return q.OptionC
	case "D":
		return q.OptionD
	}
	return ""
}
