package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pyqprep/mocktest-backend/internal/model"
)

// ExamSetRepository handles exam set data access.
type ExamSetRepository struct {
	pool *pgxpool.Pool
}

// NewExamSetRepository creates a new ExamSetRepository.
func NewExamSetRepository(pool *pgxpool.Pool) *ExamSetRepository {
	return &ExamSetRepository{pool: pool}
}

// List returns all exam sets with their question counts, newest first.
func (r *ExamSetRepository) List(ctx context.Context) ([]model.ExamSet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.name, s.duration_minutes, s.marks_per_question, s.negative_marking,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_set_id = s.id), s.created_at
		 FROM exam_sets s
		 ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []model.ExamSet
	for rows.Next() {
		var s model.ExamSet
		if err := rows.Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.MarksPerQuestion,
			&s.NegativeMarking, &s.QuestionCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// GetByID retrieves one exam set.
func (r *ExamSetRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSet, error) {
	s := &model.ExamSet{}
	err := r.pool.QueryRow(ctx,
		`SELECT s.id, s.name, s.duration_minutes, s.marks_per_question, s.negative_marking,
		        (SELECT COUNT(*) FROM questions q WHERE q.exam_set_id = s.id), s.created_at
		 FROM exam_sets s WHERE s.id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.DurationMinutes, &s.MarksPerQuestion,
		&s.NegativeMarking, &s.QuestionCount, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new exam set and fills in the generated ID.
func (r *ExamSetRepository) Create(ctx context.Context, s *model.ExamSet) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sets (name, duration_minutes, marks_per_question, negative_marking)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		s.Name, s.DurationMinutes, s.MarksPerQuestion, s.NegativeMarking,
	).Scan(&s.ID, &s.CreatedAt)
}

// AnswerKey returns the question -> correct option map for a set.
func (r *ExamSetRepository) AnswerKey(ctx context.Context, setID uuid.UUID) (map[uuid.UUID]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, correct_option FROM questions WHERE exam_set_id = $1`, setID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	key := make(map[uuid.UUID]string)
	for rows.Next() {
		var id uuid.UUID
		var opt string
		if err := rows.Scan(&id, &opt); err != nil {
			return nil, err
		}
		key[id] = opt
	}
	return key, rows.Err()
}
