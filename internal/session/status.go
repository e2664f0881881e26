package session

// NavStatus is the navigation-palette category of a question. The five
// values are mutually exclusive per question.
type NavStatus string

const (
	StatusCurrent        NavStatus = "current"
	StatusAnsweredMarked NavStatus = "answered-marked"
	StatusAnswered       NavStatus = "answered"
	StatusMarked         NavStatus = "marked"
	StatusNotVisited     NavStatus = "not-visited"
)

// Counts are the aggregate figures shown in the palette legend and the
// pre-submit summary. NotVisited and NotAnswered share the total−answered
// formula; they exist as separate fields because the legend labels them
// differently.
type Counts struct {
	Total             int `json:"total"`
	Answered          int `json:"answered"`
	Marked            int `json:"marked"`
	NotVisited        int `json:"not_visited"`
	NotAnswered       int `json:"not_answered"`
	MarkedAndAnswered int `json:"marked_and_answered"`
}

// StatusOf categorizes one question. The active question is always
// "current"; among the rest, answered+marked beats answered beats marked,
// and a question with neither is "not-visited".
func (s *Session) StatusOf(index int) NavStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusOfLocked(index)
}

// Palette returns the status of every question in order.
func (s *Session) Palette() []NavStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]NavStatus, len(s.questions))
	for i := range s.questions {
		out[i] = s.statusOfLocked(i)
	}
	return out
}

// Counts recomputes the aggregate figures from the current ResponseState.
func (s *Session) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	both := 0
	for id := range s.marked {
		if _, ok := s.answers[id]; ok {
			both++
		}
	}

	total := len(s.questions)
	answered := len(s.answers)
	return Counts{
		Total:             total,
		Answered:          answered,
		Marked:            len(s.marked),
		NotVisited:        total - answered,
		NotAnswered:       total - answered,
		MarkedAndAnswered: both,
	}
}

func (s *Session) statusOfLocked(index int) NavStatus {
	if index == s.index {
		return StatusCurrent
	}
	id := s.questions[index].ID
	_, answered := s.answers[id]
	_, marked := s.marked[id]
	switch {
	case answered && marked:
		return StatusAnsweredMarked
	case answered:
		return StatusAnswered
	case marked:
		return StatusMarked
	default:
		return StatusNotVisited
	}
}
