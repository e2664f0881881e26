package session

import "testing"

func TestStatusPrecedence(t *testing.T) {
	snap := newSnapshot(5, 60, 0)
	s := newSession(snap, &fakePersister{}, newFakeClock())

	// q0: answered. q1: marked. q2: answered+marked. q3: untouched.
	// q4 becomes current.
	s.SelectOption("A")
	s.Navigate(1)
	s.ToggleMarkForReview()
	s.Navigate(2)
	s.SelectOption("C")
	s.ToggleMarkForReview()
	s.Navigate(4)
	s.Flush()

	want := []NavStatus{
		StatusAnswered,
		StatusMarked,
		StatusAnsweredMarked,
		StatusNotVisited,
		StatusCurrent,
	}
	got := s.Palette()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("question %d: status = %s, want %s", i+1, got[i], want[i])
		}
	}
}

func TestCurrentBeatsEveryOtherCondition(t *testing.T) {
	snap := newSnapshot(2, 60, 0)
	s := newSession(snap, &fakePersister{}, newFakeClock())

	// The active question is answered and marked, yet still "current".
	s.SelectOption("B")
	s.ToggleMarkForReview()
	s.Flush()

	if got := s.StatusOf(0); got != StatusCurrent {
		t.Fatalf("status = %s, want current", got)
	}

	s.Navigate(1)
	if got := s.StatusOf(0); got != StatusAnsweredMarked {
		t.Fatalf("status after leaving = %s, want answered-marked", got)
	}
}

func TestPaletteStatusesAreMutuallyExclusive(t *testing.T) {
	snap := newSnapshot(4, 60, 0)
	s := newSession(snap, &fakePersister{}, newFakeClock())

	s.SelectOption("A")
	s.Navigate(2)
	s.ToggleMarkForReview()
	s.Flush()

	current := 0
	for _, st := range s.Palette() {
		if st == StatusCurrent {
			current++
		}
	}
	if current != 1 {
		t.Fatalf("%d questions report current, want exactly 1", current)
	}
}
