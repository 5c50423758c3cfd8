package domain

// SessionState is one identity's progress through a catalog: the cursor of
// the next field requiring a genuine answer plus everything collected so far.
type SessionState struct {
	Identity  string
	Cursor    int
	Answers   AnswerSet
	Completed bool
	Saved     bool // final answer record persisted successfully
}

// NewSessionState returns the initial state for an identity.
func NewSessionState(identity string) SessionState {
	return SessionState{Identity: identity, Answers: AnswerSet{}}
}

// Reset clears the session back to its initial state.
func (s *SessionState) Reset() {
	s.Cursor = 0
	s.Answers = AnswerSet{}
	s.Completed = false
	s.Saved = false
}

// Clone returns a copy whose answer set is detached from the original.
func (s SessionState) Clone() SessionState {
	c := s
	c.Answers = s.Answers.Clone()
	return c
}
