package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pyqprep/mocktest-backend/internal/config"
	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/pyqprep/mocktest-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const ScorePollTimeout = 1 * time.Second

// ScoringWorker consumes persist_scores_queue, grades submitted attempts
// against the set's answer key and writes the final score. Grading runs
// here rather than in the submit path so submission stays fast and
// idempotent.
type ScoringWorker struct {
	attemptRepo *repository.AttemptRepository
	setRepo     *repository.ExamSetRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewScoringWorker creates a new ScoringWorker.
func NewScoringWorker(attemptRepo *repository.AttemptRepository, setRepo *repository.ExamSetRepository, rdb *redis.Client, log zerolog.Logger) *ScoringWorker {
	return &ScoringWorker{
		attemptRepo: attemptRepo,
		setRepo:     setRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "scoring_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ScoringWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.PersistScoresQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var item model.ScoreQueueItem
	if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.grade(ctx, &item); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", item.AttemptID).
			Msg("Grade error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ScoringWorker) grade(ctx context.Context, item *model.ScoreQueueItem) error {
	attemptID, err := uuid.Parse(item.AttemptID)
	if err != nil {
		return err
	}
	setID, err := uuid.Parse(item.ExamSetID)
	if err != nil {
		return err
	}

	set, err := w.setRepo.GetByID(ctx, setID)
	if err != nil {
		return err
	}
	answerKey, err := w.setRepo.AnswerKey(ctx, setID)
	if err != nil {
		return err
	}

	// The durable rows may trail the live hash by a few queue items, so
	// grade against Postgres overlaid with the Redis answers hash.
	answers := make(map[uuid.UUID]string)
	rows, err := w.attemptRepo.ListResponses(ctx, attemptID)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.SelectedOption != nil {
			answers[row.QuestionID] = *row.SelectedOption
		}
	}
	live, err := w.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(item.AttemptID)).Result()
	if err != nil {
		return err
	}
	for field, value := range live {
		qid, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		if value == "" {
			delete(answers, qid)
		} else {
			answers[qid] = value
		}
	}

	score, correct := computeScore(set, answerKey, answers)
	if err := w.attemptRepo.SetScore(ctx, attemptID, score, correct); err != nil {
		return err
	}

	// The attempt is terminal and graded; its live buffers can go.
	w.rdb.Del(ctx,
		config.CacheKey.AttemptAnswersKey(item.AttemptID),
		config.CacheKey.AttemptMarksKey(item.AttemptID),
		config.CacheKey.AttemptDeadlineKey(item.AttemptID),
	)

	w.log.Info().
		Str("attempt_id", item.AttemptID).
		Float64("score", score).
		Int("correct", correct).
		Msg("Attempt graded")
	return nil
}

// computeScore applies the set's marking scheme: full marks per correct
// answer, the negative penalty per wrong one, unanswered untouched.
func computeScore(set *model.ExamSet, answerKey map[uuid.UUID]string, answers map[uuid.UUID]string) (float64, int) {
	correct := 0
	wrong := 0
	for qid, selected := range answers {
		expected, ok := answerKey[qid]
		if !ok {
			continue
		}
		if selected == expected {
			correct++
		} else {
			wrong++
		}
	}

	score := float64(correct)*set.MarksPerQuestion - float64(wrong)*set.NegativeMarking
	return score, correct
}

func (w *ScoringWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistScoresQueue).Result()
		if err != nil {
			break
		}

		var item model.ScoreQueueItem
		if err := json.Unmarshal([]byte(result), &item); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.grade(ctx, &item); err != nil {
			w.log.Error().Err(err).Msg("Drain grade error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained queue")
	}
}
