// Package session implements the timed exam-taking core: a stateful
// controller that owns one attempt's answer map, marked-for-review set,
// dual countdown timers and submission lifecycle. Local mutations are
// applied synchronously; backend persistence is asynchronous and never
// blocks or rolls back the user's view.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/rs/zerolog"
)

// Submission errors.
var (
	ErrNotInProgress  = errors.New("attempt is not in progress")
	ErrSubmitInFlight = errors.New("a submission is already in flight")
)

// Options configures a Session. Persister is required; everything else has
// a usable zero-config default.
type Options struct {
	Persister Persister
	Notifier  Notifier
	Logger    zerolog.Logger
	Clock     Clock
	// PersistTimeout bounds each fire-and-forget backend call.
	PersistTimeout time.Duration
	// OnTick, if set, is invoked once per second from Run with the exam
	// countdown and the question-elapsed counter.
	OnTick func(remaining, questionElapsed time.Duration)
}

// Session is the exam attempt controller. One Session per attempt, owned by
// its creator for the attempt's lifetime. All exported methods are safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	attemptID uuid.UUID
	setMeta   model.ExamSetMeta
	questions []model.AttemptQuestion

	status     model.AttemptStatus
	submitting bool

	answers map[uuid.UUID]string
	marked  map[uuid.UUID]struct{}
	index   int

	// Timer state. Both counters derive from wall-clock anchors so missed
	// ticks (e.g. a backgrounded tab) cannot introduce drift.
	paused   bool
	deadline time.Time     // exam countdown anchor while running
	frozen   time.Duration // remaining time while paused or terminal
	qAnchor  time.Time     // question counter anchor while running
	qAccum   time.Duration // question time accumulated across pauses

	persist        Persister
	notify         Notifier
	log            zerolog.Logger
	now            Clock
	persistTimeout time.Duration
	onTick         func(remaining, questionElapsed time.Duration)

	wg sync.WaitGroup
}

// New builds a Session from a fetched attempt snapshot: seeds the answer map
// and marked set from prior responses and derives the remaining time as
// max(0, duration − time already spent). The caller handles fetch failures;
// a Session is only ever constructed from a successful load.
func New(snap *model.AttemptSnapshot, opts Options) *Session {
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}

	s := &Session{
		attemptID:      snap.ID,
		setMeta:        snap.ExamSet,
		questions:      snap.Questions,
		status:         snap.Status,
		answers:        make(map[uuid.UUID]string, len(snap.Questions)),
		marked:         make(map[uuid.UUID]struct{}),
		persist:        opts.Persister,
		notify:         opts.Notifier,
		log:            opts.Logger.With().Str("component", "exam_session").Str("attempt_id", snap.ID.String()).Logger(),
		now:            opts.Clock,
		persistTimeout: opts.PersistTimeout,
		onTick:         opts.OnTick,
	}

	for _, q := range snap.Questions {
		if q.Response == nil {
			continue
		}
		if q.Response.SelectedOption != nil && model.IsValidOption(*q.Response.SelectedOption) {
			s.answers[q.ID] = *q.Response.SelectedOption
		}
		if q.Response.IsMarkedForReview {
			s.marked[q.ID] = struct{}{}
		}
	}

	remaining := time.Duration(snap.ExamSet.DurationMinutes)*time.Minute -
		time.Duration(snap.TimeSpentSeconds)*time.Second
	if remaining < 0 {
		remaining = 0
	}

	now := s.now()
	s.frozen = remaining
	s.deadline = now.Add(remaining)
	s.qAnchor = now

	return s
}

// AttemptID returns the attempt identifier.
func (s *Session) AttemptID() uuid.UUID { return s.attemptID }

// ExamSet returns the set metadata loaded with the snapshot.
func (s *Session) ExamSet() model.ExamSetMeta { return s.setMeta }

// TotalQuestions returns the number of questions in the attempt.
func (s *Session) TotalQuestions() int { return len(s.questions) }

// Status returns the current attempt lifecycle status.
func (s *Session) Status() model.AttemptStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Index returns the active question index.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Current returns the active question.
func (s *Session) Current() model.AttemptQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[s.index]
}

// Answer returns the selected option for a question, if any.
func (s *Session) Answer(questionID uuid.UUID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opt, ok := s.answers[questionID]
	return opt, ok
}

// IsMarked reports whether a question is marked for review.
func (s *Session) IsMarked(questionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.marked[questionID]
	return ok
}

// ─── Response tracker ──────────────────────────────────────────────────────

// SelectOption records the active question's answer locally and fires an
// asynchronous persistence call carrying the current mark flag. No-op when
// the attempt is not in progress or the option letter is unknown.
func (s *Session) SelectOption(option string) {
	s.mu.Lock()
	if s.status != model.AttemptStatusInProgress || !model.IsValidOption(option) {
		s.mu.Unlock()
		return
	}
	q := s.questions[s.index]
	s.answers[q.ID] = option
	_, marked := s.marked[q.ID]
	s.mu.Unlock()

	sel := option
	s.persistAsync("save_answer", func(ctx context.Context) error {
		return s.persist.SaveAnswer(ctx, s.attemptID, q.ID, &sel, marked)
	})
}

// ClearResponse removes the active question's answer. Clearing an unanswered
// question leaves the answer map untouched; the null upsert is persisted
// either way.
func (s *Session) ClearResponse() {
	s.mu.Lock()
	if s.status != model.AttemptStatusInProgress {
		s.mu.Unlock()
		return
	}
	q := s.questions[s.index]
	delete(s.answers, q.ID)
	_, marked := s.marked[q.ID]
	s.mu.Unlock()

	s.persistAsync("clear_answer", func(ctx context.Context) error {
		return s.persist.SaveAnswer(ctx, s.attemptID, q.ID, nil, marked)
	})
}

// ToggleMarkForReview flips the active question's marked-for-review flag and
// persists the new value through the dedicated mark endpoint.
func (s *Session) ToggleMarkForReview() {
	s.mu.Lock()
	if s.status != model.AttemptStatusInProgress {
		s.mu.Unlock()
		return
	}
	q := s.questions[s.index]
	var marked bool
	if _, ok := s.marked[q.ID]; ok {
		delete(s.marked, q.ID)
	} else {
		s.marked[q.ID] = struct{}{}
		marked = true
	}
	s.mu.Unlock()

	s.persistAsync("mark_review", func(ctx context.Context) error {
		return s.persist.MarkReview(ctx, s.attemptID, q.ID, marked)
	})
}

// Navigate changes the active question index. It is pure with respect to
// ResponseState: a palette jump never saves an in-progress selection. The
// question-elapsed counter resets on every actual index change.
func (s *Session) Navigate(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.questions) || index == s.index {
		return
	}
	s.index = index
	s.qAccum = 0
	s.qAnchor = s.now()
}

// SaveAndNext advances to the next question. SelectOption has already
// committed any answer, so no extra persistence happens here.
func (s *Session) SaveAndNext() {
	s.mu.Lock()
	next := s.index + 1
	s.mu.Unlock()
	s.Navigate(next)
}

// MarkForReviewAndNext toggles the mark flag, then advances.
func (s *Session) MarkForReviewAndNext() {
	s.ToggleMarkForReview()
	s.SaveAndNext()
}

// ─── Submission controller ─────────────────────────────────────────────────

// Submit finalizes the attempt: at most one submission call is ever in
// flight, whether triggered by the user or by the countdown reaching zero.
// On failure the attempt stays in progress and may be resubmitted.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if s.status != model.AttemptStatusInProgress {
		s.mu.Unlock()
		return ErrNotInProgress
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrSubmitInFlight
	}
	s.submitting = true
	s.mu.Unlock()

	err := s.persist.Submit(ctx, s.attemptID)

	s.mu.Lock()
	s.submitting = false
	if err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Msg("Submit failed")
		s.notify.Notify(LevelError, "Could not submit your exam. Please try again.")
		return fmt.Errorf("submit attempt: %w", err)
	}
	// Freeze the countdown before flipping status: remainingLocked serves
	// the frozen value once the attempt is terminal.
	s.frozen = s.remainingLocked()
	s.status = model.AttemptStatusSubmitted
	s.paused = false
	s.mu.Unlock()

	s.notify.Notify(LevelInfo, "Exam submitted.")
	return nil
}

// ResultsPath returns the route the UI navigates to after submission.
func (s *Session) ResultsPath() string {
	return "/exam/" + s.attemptID.String() + "/results"
}

// ─── Run loop ──────────────────────────────────────────────────────────────

// Run drives the session clock until ctx is cancelled or the attempt leaves
// the in-progress state. The countdown reaching zero triggers auto-submit; a
// failed auto-submit leaves the attempt in progress and is retried on the
// next tick, because running out of time does not forgive a failed submit.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// An attempt loaded with zero remaining time must submit immediately.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.tick(ctx) {
				return
			}
		}
	}
}

// tick performs one clock step. Returns true once the attempt is terminal.
func (s *Session) tick(ctx context.Context) bool {
	s.mu.Lock()
	if s.status != model.AttemptStatusInProgress {
		s.mu.Unlock()
		return true
	}
	if s.paused || s.submitting {
		s.mu.Unlock()
		return false
	}
	remaining := s.remainingLocked()
	qElapsed := s.questionElapsedLocked()
	s.mu.Unlock()

	if s.onTick != nil {
		s.onTick(remaining, qElapsed)
	}

	if remaining > 0 {
		return false
	}

	if err := s.Submit(ctx); err != nil {
		if !errors.Is(err, ErrSubmitInFlight) && !errors.Is(err, ErrNotInProgress) {
			s.log.Warn().Err(err).Msg("Auto-submit failed, will retry")
		}
		return false
	}
	return true
}

// Flush blocks until all in-flight persistence calls have completed.
// Intended for teardown and tests; user interactions never wait on it.
func (s *Session) Flush() {
	s.wg.Wait()
}

func (s *Session) persistAsync(op string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			// Local state stays authoritative; no retry, no rollback.
			s.log.Warn().Err(err).Str("op", op).Msg("Persistence failed, keeping local state")
		}
	}()
}
