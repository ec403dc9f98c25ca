package questionnaire

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionClosed marks operations against a session that was closed or
	// superseded; late results against it are discarded, not applied.
	ErrSessionClosed = errors.New("questionnaire session closed")
	// ErrUnknownSession is returned for session ids the store does not hold.
	ErrUnknownSession = errors.New("questionnaire session not found")
	// ErrUnknownQuestion is returned for answers to question ids the
	// questionnaire does not contain.
	ErrUnknownQuestion = errors.New("unknown question")
)

// AnswerSet maps question ids to collected answers. Values are the raw input
// string for single-choice, free-text and numeric questions, and a []string
// for multi-choice questions. Numeric input is not coerced before storage.
type AnswerSet map[string]interface{}

// Session collects answers for one open questionnaire. All mutation goes
// through the methods; the exported fields are fixed at open time.
type Session struct {
	ID            string
	FollowUpID    int
	PatientID     int
	FollowUpType  string
	ScheduledDate time.Time
	Questionnaire *Questionnaire
	CreatedAt     time.Time

	mu      sync.Mutex
	answers AnswerSet
	closed  bool
}

func newSession(followUpID, patientID int, fuType string, scheduled time.Time, q *Questionnaire) *Session {
	return &Session{
		ID:            uuid.New().String(),
		FollowUpID:    followUpID,
		PatientID:     patientID,
		FollowUpType:  fuType,
		ScheduledDate: scheduled,
		Questionnaire: q,
		CreatedAt:     time.Now(),
		answers:       make(AnswerSet),
	}
}

// SetAnswer stores the raw input for a single-choice, free-text or numeric
// question, replacing any previous value.
func (s *Session) SetAnswer(questionID, value string) error {
	q, ok := s.Questionnaire.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if q.Type == TypeMultiChoice {
		return fmt.Errorf("question %s is multi-choice, toggle an option instead", questionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.answers[questionID] = value
	return nil
}

// ToggleOption adds or removes one option of a multi-choice question.
func (s *Session) ToggleOption(questionID, option string, selected bool) error {
	q, ok := s.Questionnaire.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if q.Type != TypeMultiChoice {
		return fmt.Errorf("question %s is not multi-choice", questionID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	current, _ := s.answers[questionID].([]string)
	if selected {
		for _, v := range current {
			if v == option {
				return nil
			}
		}
		s.answers[questionID] = append(current, option)
		return nil
	}
	next := current[:0]
	for _, v := range current {
		if v != option {
			next = append(next, v)
		}
	}
	if len(next) == 0 {
		delete(s.answers, questionID)
		return nil
	}
	s.answers[questionID] = next
	return nil
}

// Answers returns a snapshot copy of the collected answers.
func (s *Session) Answers() AnswerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(AnswerSet, len(s.answers))
	for k, v := range s.answers {
		if list, ok := v.([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

// Validate checks the collected answers against the questionnaire: required
// questions must be answered, choice answers must come from the option list,
// and numeric answers must parse as a number. The stored values stay raw.
func (s *Session) Validate() error {
	answers := s.Answers()
	for _, q := range s.Questionnaire.Questions {
		raw, answered := answers[q.ID]
		if !answered {
			if q.Required {
				return fmt.Errorf("required question %s is unanswered", q.ID)
			}
			continue
		}

		switch q.Type {
		case TypeSingleChoice:
			value, _ := raw.(string)
			if !containsOption(q.Options, value) {
				return fmt.Errorf("answer %q for question %s is not among its options", value, q.ID)
			}
		case TypeMultiChoice:
			values, _ := raw.([]string)
			if q.Required && len(values) == 0 {
				return fmt.Errorf("required question %s is unanswered", q.ID)
			}
			for _, v := range values {
				if !containsOption(q.Options, v) {
					return fmt.Errorf("answer %q for question %s is not among its options", v, q.ID)
				}
			}
		case TypeNumeric:
			value, _ := raw.(string)
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				return fmt.Errorf("answer for question %s is not a number: %q", q.ID, value)
			}
		case TypeFreeText:
			value, _ := raw.(string)
			if q.Required && value == "" {
				return fmt.Errorf("required question %s is unanswered", q.ID)
			}
		}
	}
	return nil
}

func containsOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}

// Closed reports whether the session was closed or superseded.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Store
// ---------------------------------------------------------------------------

// Store keeps the live sessions. At most one session is live per follow-up:
// opening a follow-up again supersedes the previous session, whose pending
// results are then discarded against the closed state.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*Session
	byFollowUp map[int]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		byID:       make(map[string]*Session),
		byFollowUp: make(map[int]string),
	}
}

// Open creates a live session for the follow-up, superseding any existing one.
func (st *Store) Open(followUpID, patientID int, fuType string, scheduled time.Time, q *Questionnaire) *Session {
	sess := newSession(followUpID, patientID, fuType, scheduled, q)

	st.mu.Lock()
	if prevID, ok := st.byFollowUp[followUpID]; ok {
		if prev, ok := st.byID[prevID]; ok {
			prev.close()
			delete(st.byID, prevID)
		}
	}
	st.byID[sess.ID] = sess
	st.byFollowUp[followUpID] = sess.ID
	st.mu.Unlock()

	return sess
}

// Get returns the live session with the given id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	sess, ok := st.byID[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownSession
	}
	return sess, nil
}

// Close removes a session and marks it closed so in-flight work against it is
// discarded when it resolves.
func (st *Store) Close(id string) {
	st.mu.Lock()
	sess, ok := st.byID[id]
	if ok {
		delete(st.byID, id)
		if st.byFollowUp[sess.FollowUpID] == id {
			delete(st.byFollowUp, sess.FollowUpID)
		}
	}
	st.mu.Unlock()

	if ok {
		sess.close()
	}
}

// ExpireBefore closes sessions opened before the cutoff and returns how many
// were removed. Housekeeping for abandoned modals.
func (st *Store) ExpireBefore(cutoff time.Time) int {
	st.mu.Lock()
	var stale []*Session
	for id, sess := range st.byID {
		if sess.CreatedAt.Before(cutoff) {
			stale = append(stale, sess)
			delete(st.byID, id)
			if st.byFollowUp[sess.FollowUpID] == id {
				delete(st.byFollowUp, sess.FollowUpID)
			}
		}
	}
	st.mu.Unlock()

	for _, sess := range stale {
		sess.close()
	}
	return len(stale)
}
