package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pyqprep/mocktest-backend/internal/model"
	"github.com/rs/zerolog"
)

type saveCall struct {
	questionID uuid.UUID
	selected   *string
	marked     bool
}

type markCall struct {
	questionID uuid.UUID
	marked     bool
}

type fakePersister struct {
	mu        sync.Mutex
	saves     []saveCall
	marks     []markCall
	submits   int
	saveErr   error
	submitErr error
	// submitGate, if set, blocks Submit until the channel is closed.
	submitGate chan struct{}
}

func (f *fakePersister) SaveAnswer(_ context.Context, _, questionID uuid.UUID, selected *string, marked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, saveCall{questionID, selected, marked})
	return f.saveErr
}

func (f *fakePersister) MarkReview(_ context.Context, _, questionID uuid.UUID, marked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks = append(f.marks, markCall{questionID, marked})
	return nil
}

func (f *fakePersister) Submit(context.Context, uuid.UUID) error {
	if f.submitGate != nil {
		<-f.submitGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	return f.submitErr
}

func (f *fakePersister) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newSnapshot(n, durationMinutes, spentSeconds int) *model.AttemptSnapshot {
	qs := make([]model.AttemptQuestion, n)
	for i := range qs {
		qs[i] = model.AttemptQuestion{
			ID:           uuid.New(),
			QuestionText: "q",
			OptionA:      "a", OptionB: "b", OptionC: "c", OptionD: "d",
		}
	}
	return &model.AttemptSnapshot{
		ID:     uuid.New(),
		Status: model.AttemptStatusInProgress,
		ExamSet: model.ExamSetMeta{
			Name:             "Mock Test 1",
			DurationMinutes:  durationMinutes,
			MarksPerQuestion: 2,
			NegativeMarking:  0.5,
		},
		Questions:        qs,
		TimeSpentSeconds: spentSeconds,
	}
}

func newSession(snap *model.AttemptSnapshot, p Persister, clk *fakeClock) *Session {
	return New(snap, Options{
		Persister: p,
		Logger:    zerolog.Nop(),
		Clock:     clk.Now,
	})
}

func TestSeedFromPriorResponses(t *testing.T) {
	snap := newSnapshot(3, 60, 600)
	b := "B"
	snap.Questions[0].Response = &model.PriorResponse{SelectedOption: &b}
	snap.Questions[1].Response = &model.PriorResponse{IsMarkedForReview: true}

	s := newSession(snap, &fakePersister{}, newFakeClock())

	if got, ok := s.Answer(snap.Questions[0].ID); !ok || got != "B" {
		t.Fatalf("expected seeded answer B, got %q ok=%v", got, ok)
	}
	if !s.IsMarked(snap.Questions[1].ID) {
		t.Fatal("expected question 2 seeded as marked")
	}
	if got := s.Remaining(); got != 50*time.Minute {
		t.Fatalf("remaining = %v, want 50m", got)
	}
}

func TestSelectOptionLastWriteWins(t *testing.T) {
	snap := newSnapshot(3, 60, 0)
	p := &fakePersister{}
	s := newSession(snap, p, newFakeClock())

	s.SelectOption("B")
	s.SelectOption("C")
	s.Flush()

	if got, _ := s.Answer(snap.Questions[0].ID); got != "C" {
		t.Fatalf("answer = %q, want C (last write wins)", got)
	}
	if c := s.Counts(); c.Answered != 1 {
		t.Fatalf("answered = %d, want 1", c.Answered)
	}
	if len(p.saves) != 2 {
		t.Fatalf("persisted %d saves, want 2", len(p.saves))
	}
	if p.saves[1].selected == nil || *p.saves[1].selected != "C" {
		t.Fatalf("second persisted save = %v, want C", p.saves[1].selected)
	}
}

func TestClearResponseIdempotent(t *testing.T) {
	snap := newSnapshot(2, 60, 0)
	p := &fakePersister{}
	s := newSession(snap, p, newFakeClock())

	// Clearing an unanswered question leaves the answer map untouched.
	s.ClearResponse()
	if c := s.Counts(); c.Answered != 0 {
		t.Fatalf("answered = %d after clearing unanswered, want 0", c.Answered)
	}

	s.SelectOption("A")
	s.ClearResponse()
	s.ClearResponse()
	s.Flush()

	if _, ok := s.Answer(snap.Questions[0].ID); ok {
		t.Fatal("answer survived clear")
	}
	// Every clear persists a null upsert.
	nulls := 0
	for _, call := range p.saves {
		if call.selected == nil {
			nulls++
		}
	}
	if nulls != 3 {
		t.Fatalf("persisted %d null upserts, want 3", nulls)
	}
}

func TestNavigateIsPureOnResponseState(t *testing.T) {
	snap := newSnapshot(4, 60, 0)
	p := &fakePersister{}
	s := newSession(snap, p, newFakeClock())

	s.SelectOption("D")
	s.ToggleMarkForReview()
	s.Flush()
	before := s.Counts()
	persisted := len(p.saves) + len(p.marks)

	s.Navigate(3)
	s.Navigate(1)
	s.Navigate(1) // repeated identical call
	s.Flush()

	if got := s.Counts(); got != before {
		t.Fatalf("counts changed across navigation: %+v -> %+v", before, got)
	}
	if len(p.saves)+len(p.marks) != persisted {
		t.Fatal("navigation persisted something")
	}
	if s.Index() != 1 {
		t.Fatalf("index = %d, want 1", s.Index())
	}
}

func TestAggregateCountsScenario(t *testing.T) {
	// Walk a small attempt end to end: 5 questions, none answered yet.
	snap := newSnapshot(5, 60, 0)
	s := newSession(snap, &fakePersister{}, newFakeClock())

	c := s.Counts()
	if c.Answered != 0 || c.NotVisited != 5 || c.NotAnswered != 5 {
		t.Fatalf("initial counts = %+v", c)
	}

	// Select option B on question 1.
	s.SelectOption("B")
	c = s.Counts()
	if c.Answered != 1 || c.NotVisited != 4 {
		t.Fatalf("after answering q1: %+v", c)
	}

	// Mark question 2 for review without answering.
	s.Navigate(1)
	s.ToggleMarkForReview()
	c = s.Counts()
	if c.Marked != 1 || c.MarkedAndAnswered != 0 {
		t.Fatalf("after marking q2: %+v", c)
	}

	// Answer question 2.
	s.SelectOption("A")
	c = s.Counts()
	if c.MarkedAndAnswered != 1 {
		t.Fatalf("after answering q2: %+v", c)
	}
	s.Flush()
}

func TestMarkedAndAnsweredIsIntersection(t *testing.T) {
	snap := newSnapshot(6, 60, 0)
	s := newSession(snap, &fakePersister{}, newFakeClock())

	for i := 0; i < 6; i++ {
		s.Navigate(i)
		if i%2 == 0 {
			s.SelectOption("A")
		}
		if i%3 == 0 {
			s.ToggleMarkForReview()
		}
	}
	s.Flush()

	want := 0
	for i := 0; i < 6; i++ {
		if i%2 == 0 && i%3 == 0 {
			want++
		}
	}
	if c := s.Counts(); c.MarkedAndAnswered != want {
		t.Fatalf("markedAndAnswered = %d, want %d", c.MarkedAndAnswered, want)
	}
}

func TestAutoSubmitExactlyOnce(t *testing.T) {
	// duration 60m, 3600s already spent: remaining is zero at load.
	snap := newSnapshot(3, 60, 3600)
	p := &fakePersister{}
	s := newSession(snap, p, newFakeClock())

	if got := s.Remaining(); got != 0 {
		t.Fatalf("remaining = %v, want 0", got)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.tick(ctx)
	}

	if p.submitCount() != 1 {
		t.Fatalf("submit called %d times, want exactly 1", p.submitCount())
	}
	if s.Status() != model.AttemptStatusSubmitted {
		t.Fatalf("status = %s, want submitted", s.Status())
	}
}

func TestAutoSubmitFailureKeepsAttemptAlive(t *testing.T) {
	snap := newSnapshot(2, 60, 3600)
	p := &fakePersister{submitErr: errors.New("backend down")}
	s := newSession(snap, p, newFakeClock())

	ctx := context.Background()
	s.tick(ctx)

	if s.Status() != model.AttemptStatusInProgress {
		t.Fatalf("status = %s after failed auto-submit, want in_progress", s.Status())
	}

	// Backend recovers; the next tick retries and succeeds.
	p.mu.Lock()
	p.submitErr = nil
	p.mu.Unlock()
	s.tick(ctx)

	if s.Status() != model.AttemptStatusSubmitted {
		t.Fatalf("status = %s after retry, want submitted", s.Status())
	}
}

func TestSubmitAtMostOnceConcurrent(t *testing.T) {
	snap := newSnapshot(2, 60, 0)
	gate := make(chan struct{})
	p := &fakePersister{submitGate: gate}
	s := newSession(snap, p, newFakeClock())

	first := make(chan error, 1)
	go func() { first <- s.Submit(context.Background()) }()

	// Wait until the first submission holds the in-flight slot.
	deadline := time.Now().Add(time.Second)
	for {
		if err := s.Submit(context.Background()); errors.Is(err, ErrSubmitInFlight) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("second submit never saw the in-flight guard")
		}
		time.Sleep(time.Millisecond)
	}

	close(gate)
	if err := <-first; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if p.submitCount() != 1 {
		t.Fatalf("submit called %d times, want 1", p.submitCount())
	}
	if err := s.Submit(context.Background()); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("submit after terminal state = %v, want ErrNotInProgress", err)
	}
}

func TestMutationsNoOpAfterSubmission(t *testing.T) {
	snap := newSnapshot(2, 60, 0)
	snap.Status = model.AttemptStatusSubmitted
	p := &fakePersister{}
	s := newSession(snap, p, newFakeClock())

	s.SelectOption("A")
	s.ClearResponse()
	s.ToggleMarkForReview()
	s.Flush()

	if c := s.Counts(); c.Answered != 0 || c.Marked != 0 {
		t.Fatalf("mutations applied to terminal attempt: %+v", c)
	}
	if len(p.saves) != 0 || len(p.marks) != 0 {
		t.Fatal("terminal attempt persisted mutations")
	}
}

func TestPersistenceFailureKeepsLocalState(t *testing.T) {
	snap := newSnapshot(2, 60, 0)
	p := &fakePersister{saveErr: errors.New("network")}
	s := newSession(snap, p, newFakeClock())

	s.SelectOption("B")
	s.Flush()

	if got, ok := s.Answer(snap.Questions[0].ID); !ok || got != "B" {
		t.Fatalf("local answer lost after persistence failure: %q ok=%v", got, ok)
	}
}

func TestSaveAndNextStopsAtLastQuestion(t *testing.T) {
	snap := newSnapshot(2, 60, 0)
	s := newSession(snap, &fakePersister{}, newFakeClock())

	s.SaveAndNext()
	s.SaveAndNext()
	s.SaveAndNext()

	if s.Index() != 1 {
		t.Fatalf("index = %d, want 1 (last question)", s.Index())
	}
}

func TestMarkForReviewAndNext(t *testing.T) {
	snap := newSnapshot(3, 60, 0)
	p := &fakePersister{}
	s := newSession(snap, p, newFakeClock())

	s.MarkForReviewAndNext()
	s.Flush()

	if !s.IsMarked(snap.Questions[0].ID) {
		t.Fatal("question 1 not marked")
	}
	if s.Index() != 1 {
		t.Fatalf("index = %d, want 1", s.Index())
	}
	if len(p.marks) != 1 || !p.marks[0].marked {
		t.Fatalf("persisted marks = %+v", p.marks)
	}
}
