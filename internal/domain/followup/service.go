package followup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidacardio/followup/internal/domain/questionnaire"
	"github.com/vidacardio/followup/internal/platform/notify"
	"github.com/vidacardio/followup/internal/platform/session"
)

var (
	// ErrLoad covers inventory fetch failures. The caller renders an empty
	// list plus the message; there is no retry.
	ErrLoad = errors.New("could not load follow-ups")
	// ErrNotFound is returned when the follow-up id is not among the
	// patient's records.
	ErrNotFound = errors.New("follow-up not found")
	// ErrCompleted guards the DONE invariant: a completed follow-up can
	// neither be reopened nor resubmitted.
	ErrCompleted = errors.New("follow-up already completed")
)

// CompletionError reports a fatal failure in steps 1–2 of the completion
// pipeline. AnswersPersisted distinguishes the orphaned-log case: the
// interaction log was written but the status update failed, and no
// compensating delete exists on the backend.
type CompletionError struct {
	Step             string
	AnswersPersisted bool
	Err              error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed at %s: %v", e.Step, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// OpenResult is a freshly opened questionnaire session.
type OpenResult struct {
	Session       *questionnaire.Session
	Questionnaire *questionnaire.Questionnaire
}

// CompletionResult is the outcome of a successful completion. Analysis and
// Notification are nil when their best-effort steps failed.
type CompletionResult struct {
	FollowUp     *FollowUp       `json:"followUp"`
	Analysis     *AnalysisResult `json:"analysis,omitempty"`
	Notification *notify.Outcome `json:"notification,omitempty"`
}

// Service orchestrates the follow-up workflow.
type Service struct {
	records   Records
	patients  Patients
	generator questionnaire.Generator
	sessions  *questionnaire.Store
	notifier  *notify.Manager
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService constructs the Service. notifier may be nil to disable the
// notification step entirely.
func NewService(records Records, patients Patients, gen questionnaire.Generator, sessions *questionnaire.Store, notifier *notify.Manager, logger zerolog.Logger) *Service {
	return &Service{
		records:   records,
		patients:  patients,
		generator: gen,
		sessions:  sessions,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Inventory returns the patient's follow-ups sorted by scheduled date,
// most recent first.
func (s *Service) Inventory(ctx context.Context, sess *session.Session, patientID int) ([]FollowUp, error) {
	list, err := s.records.ListByPatient(ctx, sess, patientID)
	if err != nil {
		s.logger.Error().Err(err).Int("patient", patientID).Msg("inventory fetch failed")
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	SortByDateDesc(list)
	return list, nil
}

// Open generates a questionnaire for the follow-up and opens an answer
// session. Every open generates afresh; a generation failure leaves no
// session behind.
func (s *Service) Open(ctx context.Context, sess *session.Session, patientID, followUpID int) (*OpenResult, error) {
	list, err := s.records.ListByPatient(ctx, sess, patientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}

	var fu *FollowUp
	for i := range list {
		if list[i].ID == followUpID {
			fu = &list[i]
			break
		}
	}
	if fu == nil {
		return nil, fmt.Errorf("%w: id %d for patient %d", ErrNotFound, followUpID, patientID)
	}
	if !fu.Status.Completable() {
		return nil, fmt.Errorf("%w: id %d", ErrCompleted, followUpID)
	}

	// Patient snapshot is best-effort; the generator gets placeholder vitals
	// either way.
	snapshot := questionnaire.DefaultSnapshot(patientID, "")
	if contact, err := s.patients.Contact(ctx, sess, patientID); err != nil {
		s.logger.Warn().Err(err).Int("patient", patientID).Msg("contact fetch failed, generating without name")
	} else {
		snapshot.Name = contact.Name
	}

	q, err := s.generator.Generate(ctx, questionnaire.GenerationRequest{
		FollowUpID:         fu.ID,
		PatientID:          patientID,
		Type:               fu.Type,
		Priority:           fu.Priority,
		DaysSinceScheduled: s.daysSince(fu.ScheduledDate.Time),
		PreviousResult:     fu.Result,
		Notes:              fu.Notes,
		Patient:            snapshot,
	})
	if err != nil {
		s.logger.Error().Err(err).Int("followup", fu.ID).Msg("questionnaire generation failed")
		return nil, err
	}

	qs := s.sessions.Open(fu.ID, patientID, fu.Type, fu.ScheduledDate.Time, q)
	return &OpenResult{Session: qs, Questionnaire: q}, nil
}

func (s *Service) daysSince(scheduled time.Time) int {
	return int(math.Floor(s.now().Sub(scheduled).Hours() / 24))
}

// Answer records one answer on an open session. selected must be provided
// for multi-choice questions and is ignored otherwise.
func (s *Service) Answer(sessionID, questionID, value string, selected *bool) error {
	qs, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	if q, ok := qs.Questionnaire.Question(questionID); ok && q.Type == questionnaire.TypeMultiChoice {
		if selected == nil {
			return fmt.Errorf("question %s is multi-choice, selected flag is required", questionID)
		}
		return qs.ToggleOption(questionID, value, *selected)
	}
	return qs.SetAnswer(questionID, value)
}

// Abandon closes a session without completing it. Answer state is dropped;
// in-flight work resolving later is discarded against the closed session.
func (s *Service) Abandon(sessionID string) {
	s.sessions.Close(sessionID)
}

// Complete runs the completion pipeline for an open session:
//
//  1. persist raw answers to the interaction log, fatal on failure
//  2. mark the follow-up DONE, fatal on failure (the log entry from step 1
//     is then orphaned; AnswersPersisted records that)
//  3. fetch the derived analysis, best-effort
//  4. notify the patient, best-effort
//
// The session stays open after a fatal failure so the user can retry by
// resubmitting or reopening.
func (s *Service) Complete(ctx context.Context, sess *session.Session, sessionID string) (*CompletionResult, error) {
	qs, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := qs.Validate(); err != nil {
		return nil, err
	}
	answers := qs.Answers()

	if err := s.records.SaveResponses(ctx, sess, qs.FollowUpID, answers); err != nil {
		s.logger.Error().Err(err).Int("followup", qs.FollowUpID).Msg("answer persistence failed")
		return nil, &CompletionError{Step: "answers", Err: err}
	}

	updated, err := s.records.Complete(ctx, sess, qs.FollowUpID, answers)
	if err != nil {
		s.logger.Error().Err(err).Int("followup", qs.FollowUpID).
			Bool("answers_persisted", true).Msg("status completion failed")
		return nil, &CompletionError{Step: "complete", AnswersPersisted: true, Err: err}
	}
	if updated == nil || updated.ID == 0 {
		updated = &FollowUp{
			ID:            qs.FollowUpID,
			PatientID:     qs.PatientID,
			Type:          qs.FollowUpType,
			ScheduledDate: Date{qs.ScheduledDate},
		}
	}
	updated.Status = StatusDone

	result := &CompletionResult{FollowUp: updated}

	if analysis, err := s.records.Analysis(ctx, sess, qs.FollowUpID); err != nil {
		s.logger.Warn().Err(err).Int("followup", qs.FollowUpID).Msg("analysis unavailable")
	} else {
		result.Analysis = analysis
	}

	if s.notifier != nil {
		result.Notification = s.notifyCompleted(ctx, sess, qs)
	}

	// The modal may have been closed, or the follow-up reopened, while the
	// pipeline was in flight; the remote completion stands but its result is
	// not applied to abandoned state.
	if qs.Closed() {
		s.logger.Info().Int("followup", qs.FollowUpID).Msg("session closed mid-completion, result discarded")
		return nil, questionnaire.ErrSessionClosed
	}

	s.sessions.Close(sessionID)
	return result, nil
}

func (s *Service) notifyCompleted(ctx context.Context, sess *session.Session, qs *questionnaire.Session) *notify.Outcome {
	contact, err := s.patients.Contact(ctx, sess, qs.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).Int("patient", qs.PatientID).Msg("contact fetch failed, notification skipped")
		return nil
	}

	outcome, err := s.notifier.SendCompleted(ctx, sess, notify.Request{
		PatientID:    qs.PatientID,
		Name:         contact.Name,
		Phone:        contact.Phone,
		Email:        contact.Email,
		FollowUpType: qs.FollowUpType,
		Date:         qs.ScheduledDate.Format("02/01/2006"),
	})
	if err != nil {
		s.logger.Warn().Err(err).Int("patient", qs.PatientID).Msg("notification dispatch failed")
		return nil
	}
	return &outcome
}
