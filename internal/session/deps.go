package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Persister is the backend seam the exam interface fires mutations at.
// Calls are fire-and-forget from the session's point of view: a failure is
// logged and local state stays authoritative for the rest of the session.
// Implementations must be safe for concurrent use.
type Persister interface {
	// SaveAnswer upserts the response for one question. A nil selected
	// option clears the answer while keeping the mark flag.
	SaveAnswer(ctx context.Context, attemptID, questionID uuid.UUID, selected *string, marked bool) error
	// MarkReview persists the marked-for-review flag for one question.
	MarkReview(ctx context.Context, attemptID, questionID uuid.UUID, marked bool) error
	// Submit finalizes the attempt. Must be idempotent server-side.
	Submit(ctx context.Context, attemptID uuid.UUID) error
}

// Level classifies user-facing notifications.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notifier is the user-facing notification bus. It replaces a global toast
// dispatch channel with an injected handle so the session stays testable.
type Notifier interface {
	Notify(level Level, message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(Level, string) {}

// Clock returns the current time. Injectable for tests.
type Clock func() time.Time
