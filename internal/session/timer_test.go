package session

import (
	"testing"
	"time"
)

func TestCountdownFollowsWallClock(t *testing.T) {
	clk := newFakeClock()
	s := newSession(newSnapshot(3, 10, 0), &fakePersister{}, clk)

	if got := s.Remaining(); got != 10*time.Minute {
		t.Fatalf("remaining = %v, want 10m", got)
	}

	clk.Advance(90 * time.Second)
	if got := s.Remaining(); got != 8*time.Minute+30*time.Second {
		t.Fatalf("remaining = %v, want 8m30s", got)
	}

	// Even a huge missed-tick gap cannot push remaining below zero.
	clk.Advance(time.Hour)
	if got := s.Remaining(); got != 0 {
		t.Fatalf("remaining = %v, want 0", got)
	}
}

func TestQuestionElapsedCountsAndResetsOnNavigation(t *testing.T) {
	clk := newFakeClock()
	s := newSession(newSnapshot(3, 60, 0), &fakePersister{}, clk)

	clk.Advance(5 * time.Second)
	if got := s.QuestionElapsed(); got != 5*time.Second {
		t.Fatalf("elapsed = %v, want 5s", got)
	}

	s.Navigate(1)
	if got := s.QuestionElapsed(); got != 0 {
		t.Fatalf("elapsed after navigation = %v, want 0", got)
	}

	clk.Advance(time.Second)
	if got := s.QuestionElapsed(); got != time.Second {
		t.Fatalf("elapsed = %v, want 1s", got)
	}

	// Navigating to the same index is not an index change.
	clk.Advance(2 * time.Second)
	s.Navigate(1)
	if got := s.QuestionElapsed(); got != 3*time.Second {
		t.Fatalf("elapsed after identical navigate = %v, want 3s", got)
	}
}

func TestPauseFreezesBothCounters(t *testing.T) {
	clk := newFakeClock()
	s := newSession(newSnapshot(2, 30, 0), &fakePersister{}, clk)

	clk.Advance(10 * time.Second)
	s.Pause()
	frozenRemaining := s.Remaining()
	frozenElapsed := s.QuestionElapsed()

	clk.Advance(5 * time.Minute)
	if got := s.Remaining(); got != frozenRemaining {
		t.Fatalf("remaining moved while paused: %v -> %v", frozenRemaining, got)
	}
	if got := s.QuestionElapsed(); got != frozenElapsed {
		t.Fatalf("question elapsed moved while paused: %v -> %v", frozenElapsed, got)
	}

	s.Resume()
	clk.Advance(time.Second)
	if got := s.Remaining(); got != frozenRemaining-time.Second {
		t.Fatalf("remaining = %v, want %v", got, frozenRemaining-time.Second)
	}
	if got := s.QuestionElapsed(); got != frozenElapsed+time.Second {
		t.Fatalf("question elapsed = %v, want %v", got, frozenElapsed+time.Second)
	}
}

func TestPauseAndResumeAreIdempotent(t *testing.T) {
	clk := newFakeClock()
	s := newSession(newSnapshot(2, 30, 0), &fakePersister{}, clk)

	s.Resume() // not paused: no-op
	s.Pause()
	s.Pause()
	remaining := s.Remaining()

	clk.Advance(time.Minute)
	s.Resume()
	s.Resume()
	if got := s.Remaining(); got != remaining {
		t.Fatalf("remaining = %v immediately after resume, want %v", got, remaining)
	}
}

func TestPausedTickDoesNotAutoSubmit(t *testing.T) {
	clk := newFakeClock()
	p := &fakePersister{}
	s := newSession(newSnapshot(2, 1, 0), p, clk)

	s.Pause()
	clk.Advance(2 * time.Minute)
	s.tick(t.Context())

	if p.submitCount() != 0 {
		t.Fatal("paused session auto-submitted")
	}

	// After resume the deadline re-anchors from the frozen remainder, so
	// the countdown continues from where it stopped.
	s.Resume()
	if got := s.Remaining(); got != time.Minute {
		t.Fatalf("remaining = %v after resume, want 1m", got)
	}
}

func TestRemainingFreezesAtSubmission(t *testing.T) {
	clk := newFakeClock()
	s := newSession(newSnapshot(3, 60, 0), &fakePersister{}, clk)

	clk.Advance(10 * time.Minute)
	if err := s.Submit(t.Context()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if got := s.Remaining(); got != 50*time.Minute {
		t.Fatalf("post-submit remaining = %v, want 50m", got)
	}

	// The frozen value must survive further clock movement.
	clk.Advance(time.Hour)
	if got := s.Remaining(); got != 50*time.Minute {
		t.Fatalf("remaining drifted after submission: %v, want 50m", got)
	}
}

func TestRemainingStaysZeroAfterAutoSubmit(t *testing.T) {
	clk := newFakeClock()
	p := &fakePersister{}
	s := newSession(newSnapshot(2, 1, 0), p, clk)

	clk.Advance(2 * time.Minute)
	if done := s.tick(t.Context()); !done {
		t.Fatal("expired tick did not finish the attempt")
	}

	if p.submitCount() != 1 {
		t.Fatalf("submit count = %d, want 1", p.submitCount())
	}
	if got := s.Remaining(); got != 0 {
		t.Fatalf("remaining after auto-submit = %v, want 0", got)
	}
}
