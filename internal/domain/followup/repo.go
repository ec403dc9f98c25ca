package followup

import (
	"context"

	"github.com/vidacardio/followup/internal/domain/questionnaire"
	"github.com/vidacardio/followup/internal/platform/session"
)

// Records is the follow-up surface of the clinical records backend.
type Records interface {
	// ListByPatient returns every follow-up of the patient, unordered.
	ListByPatient(ctx context.Context, sess *session.Session, patientID int) ([]FollowUp, error)
	// SaveResponses persists the raw answers to the chatbot interaction log.
	SaveResponses(ctx context.Context, sess *session.Session, followUpID int, answers questionnaire.AnswerSet) error
	// Complete marks the follow-up DONE, passing the same answers, and
	// returns the updated record.
	Complete(ctx context.Context, sess *session.Session, followUpID int, answers questionnaire.AnswerSet) (*FollowUp, error)
	// Analysis returns the derived analysis for a completed follow-up.
	Analysis(ctx context.Context, sess *session.Session, followUpID int) (*AnalysisResult, error)
}

// Patients resolves patient contact data.
type Patients interface {
	Contact(ctx context.Context, sess *session.Session, patientID int) (*Contact, error)
}
