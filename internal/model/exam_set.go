package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamSet is a published mock exam paper a user can attempt.
type ExamSet struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	DurationMinutes  int       `json:"duration_minutes"`
	MarksPerQuestion float64   `json:"marks_per_question"`
	NegativeMarking  float64   `json:"negative_marking"`
	QuestionCount    int       `json:"question_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// ExamSetMeta is the subset of set metadata embedded in an attempt snapshot.
type ExamSetMeta struct {
	Name             string  `json:"name"`
	DurationMinutes  int     `json:"duration_minutes"`
	MarksPerQuestion float64 `json:"marks_per_question"`
	NegativeMarking  float64 `json:"negative_marking"`
}

// Meta projects the snapshot metadata from a full set.
func (s *ExamSet) Meta() ExamSetMeta {
	return ExamSetMeta{
		Name:             s.Name,
		DurationMinutes:  s.DurationMinutes,
		MarksPerQuestion: s.MarksPerQuestion,
		NegativeMarking:  s.NegativeMarking,
	}
}
