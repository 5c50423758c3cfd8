package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"tax-interview-agent/internal/catalog"
	"tax-interview-agent/internal/domain"
)

// Logical purposes under which completed answer records are persisted.
const (
	PurposeInterview = "interview_answers"
	PurposeForm      = "form_answers"
)

const (
	completionPrompt = "That's everything we need for this questionnaire."
	saveWarning      = "Your answers were collected but could not be stored yet; storage will be retried."
)

// SessionStore serializes access to one identity's session state. Do
// creates the state lazily; View never creates and hands out a copy.
type SessionStore interface {
	Do(identity string, fn func(*domain.SessionState) error) error
	View(identity string, fn func(domain.SessionState))
}

// Saver is the persistence boundary for completed answer records.
type Saver interface {
	Save(ctx context.Context, purpose, identity string, answers domain.AnswerSet) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// TurnService drives one request/response turn of a questionnaire: it
// validates the reply, records the answer, skips auto-fillable fields and
// hands the completed answer set to the persistence boundary.
type TurnService struct {
	catalog *catalog.Catalog
	store   SessionStore
	saver   Saver
	purpose string
}

type TurnInput struct {
	Identity string
	Reply    string
	HasReply bool // false signals the start of a new conversation
}

// TurnOutput mirrors one turn's result. Empty strings stand for absent
// optional fields.
type TurnOutput struct {
	Prompt           string
	Section          string
	TransitionNotice string
	Collected        domain.AnswerSet
	Retry            bool
	ErrorMessage     string
	Final            bool
	FinalData        domain.AnswerSet
	Warning          string
}

type SnapshotOutput struct {
	Collected domain.AnswerSet
	Complete  bool
}

func NewTurnService(c *catalog.Catalog, store SessionStore, saver Saver, purpose string) (*TurnService, error) {
	if c == nil {
		return nil, errors.New("usecase: catalog must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	if saver == nil {
		return nil, errors.New("usecase: saver must not be nil")
	}
	if strings.TrimSpace(purpose) == "" {
		return nil, errors.New("usecase: purpose must not be empty")
	}
	return &TurnService{catalog: c, store: store, saver: saver, purpose: purpose}, nil
}

// Turn is the sole questionnaire entry point. An absent reply restarts the
// conversation; a present reply drives exactly one state transition.
func (s *TurnService) Turn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	identity := strings.TrimSpace(in.Identity)
	if identity == "" {
		return TurnOutput{}, newError(ErrorInvalidInput, "missing_identity", nil)
	}

	var out TurnOutput
	err := s.store.Do(identity, func(st *domain.SessionState) error {
		if !in.HasReply {
			out = s.restart(ctx, st)
			return nil
		}
		if st.Completed {
			// Idempotent post-completion call; retries the record write
			// only if it has not succeeded yet.
			out = s.finish(ctx, st)
			return nil
		}
		out = s.answer(ctx, st, in.Reply)
		return nil
	})
	if err != nil {
		return TurnOutput{}, newError(ErrorInternal, "session_store_error", err)
	}
	return out, nil
}

// Snapshot reports an identity's collected answers without mutating state.
func (s *TurnService) Snapshot(identity string) (SnapshotOutput, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return SnapshotOutput{}, newError(ErrorInvalidInput, "missing_identity", nil)
	}
	out := SnapshotOutput{Collected: domain.AnswerSet{}}
	s.store.View(identity, func(st domain.SessionState) {
		out.Collected = st.Answers
		out.Complete = st.Completed
	})
	return out, nil
}

func (s *TurnService) restart(ctx context.Context, st *domain.SessionState) TurnOutput {
	st.Reset()
	st.Cursor = s.catalog.NextRequired(st.Answers, 0)
	if st.Cursor == s.catalog.Len() {
		st.Completed = true
		return s.finish(ctx, st)
	}
	f := s.catalog.Field(st.Cursor)
	return TurnOutput{
		Prompt:    f.Prompt,
		Section:   s.catalog.SectionOf(f.ID),
		Collected: st.Answers.Clone(),
	}
}

func (s *TurnService) answer(ctx context.Context, st *domain.SessionState, reply string) TurnOutput {
	f := s.catalog.Field(st.Cursor)
	section := s.catalog.SectionOf(f.ID)

	// Guarded re-entrancy: the cursor field already holds an answer when
	// the session advanced out of band. Reject instead of double-recording.
	if _, done := st.Answers[f.ID]; done {
		return TurnOutput{
			Prompt:       f.Prompt,
			Section:      section,
			Collected:    st.Answers.Clone(),
			Retry:        true,
			ErrorMessage: retryMessage(reasonAlreadyAnswered),
		}
	}

	value, perr := parseReply(reply, f)
	if perr != nil {
		return TurnOutput{
			Prompt:       f.Prompt,
			Section:      section,
			Collected:    st.Answers.Clone(),
			Retry:        true,
			ErrorMessage: retryMessage(perr.Reason),
		}
	}

	st.Answers[f.ID] = value
	st.Cursor = s.catalog.NextRequired(st.Answers, st.Cursor+1)
	if st.Cursor == s.catalog.Len() {
		st.Completed = true
		return s.finish(ctx, st)
	}

	next := s.catalog.Field(st.Cursor)
	out := TurnOutput{
		Prompt:    next.Prompt,
		Section:   s.catalog.SectionOf(next.ID),
		Collected: st.Answers.Clone(),
	}
	if out.Section != section {
		out.TransitionNotice = "Now moving on to: " + out.Section
	}
	return out
}

// finish assembles the terminal result and hands the full answer set to the
// persistence boundary. The write happens once per completion; a failed
// write is surfaced as a warning and retried on the next post-completion
// call (at-least-once, whole-record re-serialization).
func (s *TurnService) finish(ctx context.Context, st *domain.SessionState) TurnOutput {
	out := TurnOutput{
		Prompt:    completionPrompt,
		Section:   "Complete",
		Collected: st.Answers.Clone(),
		Final:     true,
		FinalData: st.Answers.Clone(),
	}
	if !st.Saved {
		if err := s.saver.Save(ctx, s.purpose, st.Identity, st.Answers); err != nil {
			slog.Warn("answer record write failed",
				"purpose", s.purpose, "identity", st.Identity, "err", err)
			out.Warning = saveWarning
		} else {
			st.Saved = true
		}
	}
	return out
}
