package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
)

// Attempt is one user's instance of taking an exam set.
type Attempt struct {
	ID         uuid.UUID     `json:"id"`
	ExamSetID  uuid.UUID     `json:"exam_set_id"`
	UserID     int           `json:"user_id"`
	Status     AttemptStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Score      *float64      `json:"score,omitempty"`
}

// PriorResponse seeds the client's initial state for one question.
// A nil SelectedOption means the question is unanswered.
type PriorResponse struct {
	SelectedOption    *string `json:"selected_option"`
	IsMarkedForReview bool    `json:"is_marked_for_review"`
}

// AttemptQuestion is a question as delivered inside an attempt snapshot:
// no correct answer, with the user's prior response if any.
type AttemptQuestion struct {
	ID           uuid.UUID      `json:"id"`
	QuestionText string         `json:"question_text"`
	OptionA      string         `json:"option_a"`
	OptionB      string         `json:"option_b"`
	OptionC      string         `json:"option_c"`
	OptionD      string         `json:"option_d"`
	Response     *PriorResponse `json:"response,omitempty"`
}

// AttemptSnapshot is the payload of GET /exam/attempt/{attempt_id}: everything
// the exam interface needs, fetched once per session.
type AttemptSnapshot struct {
	ID               uuid.UUID         `json:"id"`
	Status           AttemptStatus     `json:"status"`
	ExamSet          ExamSetMeta       `json:"exam_set"`
	Questions        []AttemptQuestion `json:"questions"`
	TimeSpentSeconds int               `json:"time_spent_seconds"`
}

// SaveAnswerRequest is the body of POST /exam/attempt/{attempt_id}/answer.
// A null selected_option clears the response while keeping the mark flag.
type SaveAnswerRequest struct {
	QuestionID        uuid.UUID `json:"question_id" binding:"required"`
	SelectedOption    *string   `json:"selected_option" binding:"omitempty,oneof=A B C D"`
	IsMarkedForReview bool      `json:"is_marked_for_review"`
}

// MarkReviewQuery carries the query params of
// POST /exam/attempt/{attempt_id}/mark-review.
type MarkReviewQuery struct {
	QuestionID uuid.UUID `form:"question_id" binding:"required"`
	IsMarked   bool      `form:"is_marked"`
}

// AttemptResult is the payload of GET /exam/attempt/{attempt_id}/results.
// Score is nil until the scoring worker has graded the attempt.
type AttemptResult struct {
	AttemptID      uuid.UUID     `json:"attempt_id"`
	Status         AttemptStatus `json:"status"`
	ExamSet        ExamSetMeta   `json:"exam_set"`
	Score          *float64      `json:"score"`
	MaxScore       float64       `json:"max_score"`
	TotalQuestions int           `json:"total_questions"`
	AnsweredCount  int           `json:"answered_count"`
	CorrectCount   *int          `json:"correct_count,omitempty"`
	FinishedAt     *time.Time    `json:"finished_at,omitempty"`
}

// AttemptResponse is one persisted answer/mark row, the durable form of the
// client's ResponseState keyed by (attempt, question).
type AttemptResponse struct {
	AttemptID         uuid.UUID `json:"attempt_id"`
	QuestionID        uuid.UUID `json:"question_id"`
	SelectedOption    *string   `json:"selected_option"`
	IsMarkedForReview bool      `json:"is_marked_for_review"`
	UpdatedAt         time.Time `json:"updated_at"`
}
