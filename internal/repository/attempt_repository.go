package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pyqprep/mocktest-backend/internal/model"
)

// AttemptRepository handles exam attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new in-progress attempt. The partial unique index on
// (user_id, exam_set_id) keeps one live attempt per user per set; a conflict
// returns pgx.ErrNoRows, which callers resolve by fetching the existing row.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (exam_set_id, user_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, exam_set_id) WHERE status = 'in_progress' DO NOTHING
		 RETURNING id, started_at`,
		a.ExamSetID, a.UserID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.StartedAt)
}

// GetByID retrieves one attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_set_id, user_id, status, started_at, finished_at, score
		 FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.ExamSetID, &a.UserID, &a.Status, &a.StartedAt, &a.FinishedAt, &a.Score)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetInProgress retrieves a user's live attempt on a set, if any.
func (r *AttemptRepository) GetInProgress(ctx context.Context, userID int, setID uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_set_id, user_id, status, started_at, finished_at, score
		 FROM attempts
		 WHERE user_id = $1 AND exam_set_id = $2 AND status = 'in_progress'`,
		userID, setID,
	).Scan(&a.ID, &a.ExamSetID, &a.UserID, &a.Status, &a.StartedAt, &a.FinishedAt, &a.Score)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// SubmitIfInProgress atomically flips an attempt to submitted. Returns false
// when the attempt was already terminal, which makes submission idempotent
// under a manual click racing the deadline sweeper.
func (r *AttemptRepository) SubmitIfInProgress(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, finished_at = NOW()
		 WHERE id = $2 AND status = $3`,
		model.AttemptStatusSubmitted, id, model.AttemptStatusInProgress)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SetScore records the scoring worker's output for a submitted attempt.
func (r *AttemptRepository) SetScore(ctx context.Context, id uuid.UUID, score float64, correct int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts SET score = $1, correct_count = $2 WHERE id = $3`,
		score, correct, id)
	return err
}

// CorrectCount returns the graded correct-answer count, nil when ungraded.
func (r *AttemptRepository) CorrectCount(ctx context.Context, id uuid.UUID) (*int, error) {
	var n *int
	err := r.pool.QueryRow(ctx,
		`SELECT correct_count FROM attempts WHERE id = $1`, id).Scan(&n)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// ListExpired returns in-progress attempts whose deadline has passed.
func (r *AttemptRepository) ListExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id
		 FROM attempts a
		 JOIN exam_sets s ON a.exam_set_id = s.id
		 WHERE a.status = 'in_progress'
		   AND a.started_at + make_interval(mins => s.duration_minutes) < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpsertResponse persists one answer/mark row, last write wins per
// (attempt, question).
func (r *AttemptRepository) UpsertResponse(ctx context.Context, resp *model.AttemptResponse) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_responses (attempt_id, question_id, selected_option, is_marked_for_review)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET selected_option = EXCLUDED.selected_option,
		     is_marked_for_review = EXCLUDED.is_marked_for_review,
		     updated_at = NOW()`,
		resp.AttemptID, resp.QuestionID, resp.SelectedOption, resp.IsMarkedForReview)
	return err
}

// UpsertMark persists only the marked-for-review flag, preserving any
// previously stored answer.
func (r *AttemptRepository) UpsertMark(ctx context.Context, attemptID, questionID uuid.UUID, marked bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_responses (attempt_id, question_id, is_marked_for_review)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET is_marked_for_review = EXCLUDED.is_marked_for_review,
		     updated_at = NOW()`,
		attemptID, questionID, marked)
	return err
}

// ListResponses returns an attempt's persisted responses.
func (r *AttemptRepository) ListResponses(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptResponse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, selected_option, is_marked_for_review, updated_at
		 FROM attempt_responses WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.AttemptResponse
	for rows.Next() {
		var resp model.AttemptResponse
		if err := rows.Scan(&resp.AttemptID, &resp.QuestionID, &resp.SelectedOption,
			&resp.IsMarkedForReview, &resp.UpdatedAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// SetResult is one row of a set's results export.
type SetResult struct {
	UserName   string
	UserEmail  string
	Status     model.AttemptStatus
	Score      *float64
	StartedAt  time.Time
	FinishedAt *time.Time
}

// ListBySet returns all attempts on a set with their users, for export.
func (r *AttemptRepository) ListBySet(ctx context.Context, setID uuid.UUID) ([]SetResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT u.name, u.email, a.status, a.score, a.started_at, a.finished_at
		 FROM attempts a
		 JOIN users u ON a.user_id = u.id
		 WHERE a.exam_set_id = $1
		 ORDER BY a.started_at ASC`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SetResult
	for rows.Next() {
		var res SetResult
		if err := rows.Scan(&res.UserName, &res.UserEmail, &res.Status,
			&res.Score, &res.StartedAt, &res.FinishedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
