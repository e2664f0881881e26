package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionMark     Action = "mark"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest saves a single answer. A null selected_option clears
// the response.
type AutosaveRequest struct {
	Action            Action  `json:"action"`
	QuestionID        string  `json:"question_id"`
	SelectedOption    *string `json:"selected_option"`
	IsMarkedForReview bool    `json:"is_marked_for_review"`
}

// MarkRequest toggles only the marked-for-review flag.
type MarkRequest struct {
	Action     Action `json:"action"`
	QuestionID string `json:"question_id"`
	IsMarked   bool   `json:"is_marked"`
}

// SubmitRequest finishes the attempt.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick      Event = "tick"
	EventSaved     Event = "saved"
	EventSubmitted Event = "submitted"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// TickEvent carries the authoritative remaining time, once per second.
type TickEvent struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// SavedEvent acknowledges an autosave or mark action.
type SavedEvent struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

// SubmittedEvent reports the terminal state and where results will appear.
type SubmittedEvent struct {
	Event       Event  `json:"event"`
	AttemptID   string `json:"attempt_id"`
	ResultsPath string `json:"results_path"`
}

type ErrorEvent struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongEvent struct {
	Event Event `json:"event"`
}
