package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pyqprep/mocktest-backend/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListBySet returns a set's questions in display order.
func (r *QuestionRepository) ListBySet(ctx context.Context, setID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_set_id, question_text, option_a, option_b, option_c, option_d,
		        correct_option, order_num
		 FROM questions
		 WHERE exam_set_id = $1
		 ORDER BY order_num ASC`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamSetID, &q.QuestionText,
			&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
			&q.CorrectOption, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// BulkInsert inserts a set's questions in one batch. Used by the seed tool.
func (r *QuestionRepository) BulkInsert(ctx context.Context, questions []model.Question) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		batch.Queue(
			`INSERT INTO questions (exam_set_id, question_text, option_a, option_b, option_c, option_d, correct_option, order_num)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			q.ExamSetID, q.QuestionText, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
			q.CorrectOption, q.OrderNum)
	}
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range questions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
