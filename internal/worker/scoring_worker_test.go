package worker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pyqprep/mocktest-backend/internal/model"
)

func TestComputeScore(t *testing.T) {
	q1, q2, q3, q4 := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	set := &model.ExamSet{MarksPerQuestion: 2, NegativeMarking: 0.5}
	answerKey := map[uuid.UUID]string{q1: "A", q2: "B", q3: "C", q4: "D"}

	tests := []struct {
		name        string
		answers     map[uuid.UUID]string
		wantScore   float64
		wantCorrect int
	}{
		{
			name:        "all correct",
			answers:     map[uuid.UUID]string{q1: "A", q2: "B", q3: "C", q4: "D"},
			wantScore:   8,
			wantCorrect: 4,
		},
		{
			name:        "unanswered questions cost nothing",
			answers:     map[uuid.UUID]string{q1: "A"},
			wantScore:   2,
			wantCorrect: 1,
		},
		{
			name:        "wrong answers attract the penalty",
			answers:     map[uuid.UUID]string{q1: "A", q2: "C", q3: "D"},
			wantScore:   1,
			wantCorrect: 1,
		},
		{
			name:        "score can go negative",
			answers:     map[uuid.UUID]string{q1: "B", q2: "C"},
			wantScore:   -1,
			wantCorrect: 0,
		},
		{
			name:        "empty attempt scores zero",
			answers:     map[uuid.UUID]string{},
			wantScore:   0,
			wantCorrect: 0,
		},
		{
			name:        "answers outside the key are ignored",
			answers:     map[uuid.UUID]string{uuid.New(): "A", q1: "A"},
			wantScore:   2,
			wantCorrect: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, correct := computeScore(set, answerKey, tt.answers)
			if score != tt.wantScore {
				t.Errorf("score = %v, want %v", score, tt.wantScore)
			}
			if correct != tt.wantCorrect {
				t.Errorf("correct = %d, want %d", correct, tt.wantCorrect)
			}
		})
	}
}

func TestComputeScoreNoNegativeMarking(t *testing.T) {
	q1, q2 := uuid.New(), uuid.New()
	set := &model.ExamSet{MarksPerQuestion: 1, NegativeMarking: 0}
	answerKey := map[uuid.UUID]string{q1: "A", q2: "B"}

	score, correct := computeScore(set, answerKey, map[uuid.UUID]string{q1: "A", q2: "D"})
	if score != 1 {
		t.Errorf("score = %v, want 1", score)
	}
	if correct != 1 {
		t.Errorf("correct = %d, want 1", correct)
	}
}
