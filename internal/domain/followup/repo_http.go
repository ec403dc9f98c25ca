package followup

import (
	"context"
	"fmt"

	"github.com/vidacardio/followup/internal/domain/questionnaire"
	"github.com/vidacardio/followup/internal/platform/backend"
	"github.com/vidacardio/followup/internal/platform/session"
)

// HTTPRepo implements Records and Patients against the records backend.
type HTTPRepo struct {
	client *backend.Client
}

// NewHTTPRepo creates a repository on the shared backend client.
func NewHTTPRepo(client *backend.Client) *HTTPRepo {
	return &HTTPRepo{client: client}
}

func (r *HTTPRepo) ListByPatient(ctx context.Context, sess *session.Session, patientID int) ([]FollowUp, error) {
	var list []FollowUp
	path := fmt.Sprintf("/seguimientos/paciente/%d", patientID)
	if err := r.client.Get(ctx, sess, path, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// respuestasBody wraps the answer map on the wire.
type respuestasBody struct {
	Respuestas questionnaire.AnswerSet `json:"respuestas"`
}

func (r *HTTPRepo) SaveResponses(ctx context.Context, sess *session.Session, followUpID int, answers questionnaire.AnswerSet) error {
	path := fmt.Sprintf("/interacciones-chatbot/seguimiento/%d/respuestas", followUpID)
	return r.client.Post(ctx, sess, path, respuestasBody{Respuestas: answers}, nil)
}

func (r *HTTPRepo) Complete(ctx context.Context, sess *session.Session, followUpID int, answers questionnaire.AnswerSet) (*FollowUp, error) {
	var updated FollowUp
	path := fmt.Sprintf("/seguimientos/%d/completar", followUpID)
	if err := r.client.Put(ctx, sess, path, respuestasBody{Respuestas: answers}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *HTTPRepo) Analysis(ctx context.Context, sess *session.Session, followUpID int) (*AnalysisResult, error) {
	var resp struct {
		Success  bool            `json:"success"`
		Analisis *AnalysisResult `json:"analisis"`
	}
	path := fmt.Sprintf("/interacciones-chatbot/seguimiento/%d/analisis", followUpID)
	if err := r.client.Get(ctx, sess, path, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Analisis == nil {
		return nil, fmt.Errorf("analysis not available for follow-up %d", followUpID)
	}
	return resp.Analisis, nil
}

func (r *HTTPRepo) Contact(ctx context.Context, sess *session.Session, patientID int) (*Contact, error) {
	var contact Contact
	path := fmt.Sprintf("/pacientes/%d", patientID)
	if err := r.client.Get(ctx, sess, path, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}
