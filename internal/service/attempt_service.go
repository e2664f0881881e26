package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pyqprep/mocktest-backend/internal/config"
	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/pyqprep/mocktest-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Attempt lifecycle errors.
var (
	ErrNotOwner        = errors.New("attempt belongs to another user")
	ErrNotInProgress   = errors.New("attempt is not in progress")
	ErrAttemptExpired  = errors.New("attempt time has expired")
	ErrUnknownQuestion = errors.New("question does not belong to this attempt")
	ErrInvalidOption   = errors.New("selected option must be one of A, B, C, D")
)

// clearedMarker is stored in the live answers hash when a response is
// cleared, so the cleared state shadows any stale Postgres row until the
// response worker catches up.
const clearedMarker = ""

// AttemptService orchestrates the attempt lifecycle: start/resume, the live
// Redis answer buffer, fire-and-forget queueing to Postgres, idempotent
// submission, and results.
type AttemptService struct {
	attemptRepo  *repository.AttemptRepository
	setRepo      *repository.ExamSetRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	setRepo *repository.ExamSetRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo:  attemptRepo,
		setRepo:      setRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "attempt_service").Logger(),
	}
}

// Start creates an in-progress attempt on a set, or resumes the user's
// existing one. Safe under concurrent starts from multiple tabs.
func (s *AttemptService) Start(ctx context.Context, userID int, setID uuid.UUID) (*model.Attempt, error) {
	set, err := s.setRepo.GetByID(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("get exam set: %w", err)
	}

	existing, err := s.attemptRepo.GetInProgress(ctx, userID, setID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		s.cacheDeadline(ctx, existing, set)
		return existing, nil
	}

	attempt := &model.Attempt{
		ExamSetID: setID,
		UserID:    userID,
		Status:    model.AttemptStatusInProgress,
	}
	if err := s.attemptRepo.Create(ctx, attempt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent start won the race; resume its attempt.
			existing, fetchErr := s.attemptRepo.GetInProgress(ctx, userID, setID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			s.cacheDeadline(ctx, existing, set)
			return existing, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.cacheDeadline(ctx, attempt, set)
	return attempt, nil
}

// Snapshot assembles the single fetch the exam interface boots from:
// questions in order, prior responses (live Redis state shadowing Postgres),
// set metadata and elapsed seconds.
func (s *AttemptService) Snapshot(ctx context.Context, attemptID uuid.UUID, userID int) (*model.AttemptSnapshot, error) {
	attempt, set, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.questionRepo.ListBySet(ctx, set.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	responses, err := s.mergedResponses(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	snap := &model.AttemptSnapshot{
		ID:               attempt.ID,
		Status:           attempt.Status,
		ExamSet:          set.Meta(),
		Questions:        make([]model.AttemptQuestion, 0, len(questions)),
		TimeSpentSeconds: s.timeSpentSeconds(attempt, set),
	}

	for _, q := range questions {
		aq := model.AttemptQuestion{
			ID:           q.ID,
			QuestionText: q.QuestionText,
			OptionA:      q.OptionA,
			OptionB:      q.OptionB,
			OptionC:      q.OptionC,
			OptionD:      q.OptionD,
		}
		if resp, ok := responses[q.ID]; ok {
			aq.Response = resp
		}
		snap.Questions = append(snap.Questions, aq)
	}

	return snap, nil
}

// SaveAnswer records one answer mutation: live Redis hash first (immediately
// visible to reloads), then a fire-and-forget push onto the persist queue.
// A nil selected option clears the response.
func (s *AttemptService) SaveAnswer(ctx context.Context, attemptID uuid.UUID, userID int, req *model.SaveAnswerRequest) error {
	attempt, set, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return err
	}
	if err := s.writable(attempt, set); err != nil {
		return err
	}
	if req.SelectedOption != nil && !model.IsValidOption(*req.SelectedOption) {
		return ErrInvalidOption
	}
	if err := s.verifyQuestion(ctx, set.ID, req.QuestionID); err != nil {
		return err
	}

	value := clearedMarker
	if req.SelectedOption != nil {
		value = *req.SelectedOption
	}
	markValue := "0"
	if req.IsMarkedForReview {
		markValue = "1"
	}

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String()), req.QuestionID.String(), value)
	pipe.HSet(ctx, config.CacheKey.AttemptMarksKey(attemptID.String()), req.QuestionID.String(), markValue)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("buffer answer: %w", err)
	}

	s.enqueueResponse(ctx, &model.ResponseQueueItem{
		AttemptID:  attemptID.String(),
		QuestionID: req.QuestionID.String(),
		Selected:   req.SelectedOption,
		Marked:     req.IsMarkedForReview,
	})
	return nil
}

// MarkReview records only the marked-for-review flag.
func (s *AttemptService) MarkReview(ctx context.Context, attemptID uuid.UUID, userID int, questionID uuid.UUID, marked bool) error {
	attempt, set, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return err
	}
	if err := s.writable(attempt, set); err != nil {
		return err
	}
	if err := s.verifyQuestion(ctx, set.ID, questionID); err != nil {
		return err
	}

	markValue := "0"
	if marked {
		markValue = "1"
	}
	if err := s.rdb.HSet(ctx, config.CacheKey.AttemptMarksKey(attemptID.String()), questionID.String(), markValue).Err(); err != nil {
		return fmt.Errorf("buffer mark: %w", err)
	}

	s.enqueueResponse(ctx, &model.ResponseQueueItem{
		AttemptID:  attemptID.String(),
		QuestionID: questionID.String(),
		Marked:     marked,
		MarkOnly:   true,
	})
	return nil
}

// Submit finalizes an attempt. Idempotent: re-submitting a submitted attempt
// succeeds without effect, and a manual submit racing the deadline sweeper
// resolves to a single transition.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, userID int) (*model.Attempt, error) {
	attempt, _, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	return s.finalize(ctx, attempt)
}

// ForceSubmit finalizes an expired attempt on behalf of the deadline
// sweeper. No ownership check: the caller is the system.
func (s *AttemptService) ForceSubmit(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return s.finalize(ctx, attempt)
}

// Results returns the result summary for a submitted (or still live)
// attempt. Score stays nil until the scoring worker has graded it.
func (s *AttemptService) Results(ctx context.Context, attemptID uuid.UUID, userID int) (*model.AttemptResult, error) {
	attempt, set, err := s.ownedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	responses, err := s.mergedResponses(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}
	answered := 0
	for _, resp := range responses {
		if resp.SelectedOption != nil {
			answered++
		}
	}

	correct, err := s.attemptRepo.CorrectCount(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get correct count: %w", err)
	}

	return &model.AttemptResult{
		AttemptID:      attempt.ID,
		Status:         attempt.Status,
		ExamSet:        set.Meta(),
		Score:          attempt.Score,
		MaxScore:       float64(set.QuestionCount) * set.MarksPerQuestion,
		TotalQuestions: set.QuestionCount,
		AnsweredCount:  answered,
		CorrectCount:   correct,
		FinishedAt:     attempt.FinishedAt,
	}, nil
}

// RemainingSeconds returns the authoritative countdown for an attempt,
// served from the cached deadline with a Postgres fallback that self-heals
// the cache.
func (s *AttemptService) RemainingSeconds(ctx context.Context, attemptID uuid.UUID) (int, error) {
	var deadlineUnix int64

	val, err := s.rdb.Get(ctx, config.CacheKey.AttemptDeadlineKey(attemptID.String())).Result()
	switch {
	case errors.Is(err, redis.Nil):
		attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
		if err != nil {
			return 0, fmt.Errorf("attempt not in cache or db: %w", err)
		}
		set, err := s.setRepo.GetByID(ctx, attempt.ExamSetID)
		if err != nil {
			return 0, fmt.Errorf("get exam set: %w", err)
		}
		deadlineUnix = attempt.StartedAt.Add(time.Duration(set.DurationMinutes) * time.Minute).Unix()
		s.cacheDeadline(ctx, attempt, set)
	case err != nil:
		return 0, fmt.Errorf("get deadline: %w", err)
	default:
		deadlineUnix, err = strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid deadline in cache: %w", err)
		}
	}

	remaining := time.Until(time.Unix(deadlineUnix, 0))
	if remaining < 0 {
		remaining = 0
	}
	return int(remaining.Seconds()), nil
}

// VerifyOwnership checks an attempt exists and belongs to the user.
func (s *AttemptService) VerifyOwnership(ctx context.Context, attemptID uuid.UUID, userID int) error {
	_, _, err := s.ownedAttempt(ctx, attemptID, userID)
	return err
}

func (s *AttemptService) finalize(ctx context.Context, attempt *model.Attempt) (*model.Attempt, error) {
	flipped, err := s.attemptRepo.SubmitIfInProgress(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("submit attempt: %w", err)
	}

	if flipped {
		raw, _ := json.Marshal(model.ScoreQueueItem{
			AttemptID: attempt.ID.String(),
			ExamSetID: attempt.ExamSetID.String(),
		})
		if err := s.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, raw).Err(); err != nil {
			// The attempt is submitted either way; grading will lag until
			// the queue recovers.
			s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Enqueue scoring failed")
		}
	}

	final, err := s.attemptRepo.GetByID(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("reload attempt: %w", err)
	}
	return final, nil
}

func (s *AttemptService) ownedAttempt(ctx context.Context, attemptID uuid.UUID, userID int) (*model.Attempt, *model.ExamSet, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		return nil, nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.UserID != userID {
		return nil, nil, ErrNotOwner
	}
	set, err := s.setRepo.GetByID(ctx, attempt.ExamSetID)
	if err != nil {
		return nil, nil, fmt.Errorf("get exam set: %w", err)
	}
	return attempt, set, nil
}

// writable rejects mutations against terminal or expired attempts.
func (s *AttemptService) writable(attempt *model.Attempt, set *model.ExamSet) error {
	if attempt.Status != model.AttemptStatusInProgress {
		return ErrNotInProgress
	}
	deadline := attempt.StartedAt.Add(time.Duration(set.DurationMinutes) * time.Minute)
	if time.Now().After(deadline) {
		return ErrAttemptExpired
	}
	return nil
}

// verifyQuestion checks membership against the cached answer key,
// lazy-loading it from Postgres on a cache miss.
func (s *AttemptService) verifyQuestion(ctx context.Context, setID, questionID uuid.UUID) error {
	key := config.CacheKey.SetAnswerKey(setID.String())

	exists, err := s.rdb.HExists(ctx, key, questionID.String()).Result()
	if err != nil {
		return fmt.Errorf("check question: %w", err)
	}
	if exists {
		return nil
	}

	// Cache miss or genuinely unknown question: load the key and retry.
	answerKey, err := s.setRepo.AnswerKey(ctx, setID)
	if err != nil {
		return fmt.Errorf("load answer key: %w", err)
	}
	if len(answerKey) > 0 {
		fields := make(map[string]string, len(answerKey))
		for id, opt := range answerKey {
			fields[id.String()] = opt
		}
		if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Answer key cache write failed")
		}
	}
	if _, ok := answerKey[questionID]; !ok {
		return ErrUnknownQuestion
	}
	return nil
}

// mergedResponses overlays the live Redis hashes on the persisted rows. The
// queue drains asynchronously, so Redis is the fresher source for a live
// attempt; a cleared answer is represented by the cleared marker.
func (s *AttemptService) mergedResponses(ctx context.Context, attemptID uuid.UUID) (map[uuid.UUID]*model.PriorResponse, error) {
	out := make(map[uuid.UUID]*model.PriorResponse)

	rows, err := s.attemptRepo.ListResponses(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.QuestionID] = &model.PriorResponse{
			SelectedOption:    row.SelectedOption,
			IsMarkedForReview: row.IsMarkedForReview,
		}
	}

	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Result()
	if err != nil {
		return nil, err
	}
	for field, value := range answers {
		qid, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		resp := out[qid]
		if resp == nil {
			resp = &model.PriorResponse{}
			out[qid] = resp
		}
		if value == clearedMarker {
			resp.SelectedOption = nil
		} else {
			v := value
			resp.SelectedOption = &v
		}
	}

	marks, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptMarksKey(attemptID.String())).Result()
	if err != nil {
		return nil, err
	}
	for field, value := range marks {
		qid, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		resp := out[qid]
		if resp == nil {
			resp = &model.PriorResponse{}
			out[qid] = resp
		}
		resp.IsMarkedForReview = value == "1"
	}

	return out, nil
}

func (s *AttemptService) enqueueResponse(ctx context.Context, item *model.ResponseQueueItem) {
	raw, _ := json.Marshal(item)
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResponsesQueue, raw).Err(); err != nil {
		// Fire-and-forget: the live hash already holds the value, the
		// durable copy will lag until the queue recovers.
		s.log.Warn().Err(err).Str("attempt_id", item.AttemptID).Msg("Enqueue response failed")
	}
}

func (s *AttemptService) timeSpentSeconds(attempt *model.Attempt, set *model.ExamSet) int {
	duration := time.Duration(set.DurationMinutes) * time.Minute
	end := time.Now()
	if attempt.FinishedAt != nil {
		end = *attempt.FinishedAt
	}
	spent := end.Sub(attempt.StartedAt)
	if spent > duration {
		spent = duration
	}
	if spent < 0 {
		spent = 0
	}
	return int(spent.Seconds())
}

func (s *AttemptService) cacheDeadline(ctx context.Context, attempt *model.Attempt, set *model.ExamSet) {
	deadline := attempt.StartedAt.Add(time.Duration(set.DurationMinutes) * time.Minute)
	key := config.CacheKey.AttemptDeadlineKey(attempt.ID.String())
	ttl := time.Until(deadline) + time.Hour
	if ttl < time.Minute {
		ttl = time.Minute
	}
	if err := s.rdb.Set(ctx, key, deadline.Unix(), ttl).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Deadline cache write failed")
	}
}
