package backfill

import (
	"context"
	"encoding/json"

	"github.com/vidacardio/followup/internal/platform/session"
)

// Appointments reads the patient's citación records.
type Appointments interface {
	ListByPatient(ctx context.Context, sess *session.Session, patientID int) ([]Appointment, error)
}

// History reads the clinical-history snapshots forwarded to the orchestrator.
// Each fetch fails independently of the others.
type History interface {
	Triage(ctx context.Context, sess *session.Session, patientID int) (json.RawMessage, error)
	Prediction(ctx context.Context, sess *session.Session, patientID int) (json.RawMessage, error)
	CardioMetrics(ctx context.Context, sess *session.Session, patientID int) (json.RawMessage, error)
}

// Webhook posts a payload to a workflow engine path.
type Webhook interface {
	Post(ctx context.Context, path string, payload interface{}) ([]byte, error)
}
