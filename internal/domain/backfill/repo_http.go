package backfill

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vidacardio/followup/internal/platform/backend"
	"github.com/vidacardio/followup/internal/platform/session"
)

// HTTPRepo reads appointments and clinical-history snapshots from the
// records backend.
type HTTPRepo struct {
	client *backend.Client
}

// NewHTTPRepo creates an HTTPRepo on the given backend client.
func NewHTTPRepo(client *backend.Client) *HTTPRepo {
	return &HTTPRepo{client: client}
}

func (r *HTTPRepo) ListByPatient(ctx context.Context, sess *session.Session, patientID int) ([]Appointment, error) {
	var list []Appointment
	path := fmt.Sprintf("/citaciones-medicas/paciente/%d", patientID)
	if err := r.client.Get(ctx, sess, path, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *HTTPRepo) Triage(ctx context.Context, sess *session.Session, patientID int) (json.RawMessage, error) {
	return r.raw(ctx, sess, fmt.Sprintf("/triaje/paciente/%d", patientID))
}

func (r *HTTPRepo) Prediction(ctx context.Context, sess *session.Session, patientID int) (json.RawMessage, error) {
	return r.raw(ctx, sess, fmt.Sprintf("/predicciones/paciente/%d", patientID))
}

func (r *HTTPRepo) CardioMetrics(ctx context.Context, sess *session.Session, patientID int) (json.RawMessage, error) {
	return r.raw(ctx, sess, fmt.Sprintf("/datos-cardiovasculares/paciente/%d", patientID))
}

func (r *HTTPRepo) raw(ctx context.Context, sess *session.Session, path string) (json.RawMessage, error) {
	var doc json.RawMessage
	if err := r.client.Get(ctx, sess, path, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
