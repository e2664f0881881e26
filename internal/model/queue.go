package model

// ResponseQueueItem is the persist-responses queue payload: one answer/mark
// mutation to be upserted into Postgres by the response worker.
type ResponseQueueItem struct {
	AttemptID  string  `json:"attempt_id"`
	QuestionID string  `json:"question_id"`
	Selected   *string `json:"selected"`
	Marked     bool    `json:"marked"`
	// MarkOnly limits the upsert to the mark flag so a mark toggle cannot
	// clobber an answer racing through the queue.
	MarkOnly bool `json:"mark_only"`
}

// ScoreQueueItem is the persist-scores queue payload: a submitted attempt
// waiting to be graded.
type ScoreQueueItem struct {
	AttemptID string `json:"attempt_id"`
	ExamSetID string `json:"exam_set_id"`
}
