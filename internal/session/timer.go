package session

import (
	"time"

	"github.com/pyqprep/mocktest-backend/internal/model"
)

// Remaining returns the exam countdown. Frozen while paused and after the
// attempt leaves the in-progress state; never negative.
func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remainingLocked()
}

// QuestionElapsed returns how long the active question has been on screen,
// excluding paused stretches. Resets to zero on every navigation.
func (s *Session) QuestionElapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionElapsedLocked()
}

// Paused reports whether the timers are currently frozen.
func (s *Session) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Pause freezes both counters without losing accumulated remaining time.
func (s *Session) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.status != model.AttemptStatusInProgress {
		return
	}
	now := s.now()
	s.frozen = s.remainingAt(now)
	s.qAccum += now.Sub(s.qAnchor)
	s.paused = true
}

// Resume restarts both counters from their frozen values.
func (s *Session) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		return
	}
	now := s.now()
	s.deadline = now.Add(s.frozen)
	s.qAnchor = now
	s.paused = false
}

// remainingLocked computes the countdown with s.mu held.
func (s *Session) remainingLocked() time.Duration {
	if s.paused || s.status != model.AttemptStatusInProgress {
		return s.frozen
	}
	return s.remainingAt(s.now())
}

func (s *Session) remainingAt(now time.Time) time.Duration {
	r := s.deadline.Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// questionElapsedLocked computes the question counter with s.mu held.
func (s *Session) questionElapsedLocked() time.Duration {
	if s.paused || s.status != model.AttemptStatusInProgress {
		return s.qAccum
	}
	return s.qAccum + s.now().Sub(s.qAnchor)
}
