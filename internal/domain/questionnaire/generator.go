package questionnaire

import (
	"context"
	"fmt"

	"github.com/vidacardio/followup/internal/platform/workflow"
)

// PatientSnapshot is the patient context sent with a generation request.
// Vitals default to population placeholders when no recent measurement is
// available; the agent treats them as priors, not readings.
type PatientSnapshot struct {
	ID          int     `json:"id"`
	Name        string  `json:"nombre,omitempty"`
	SystolicBP  int     `json:"presionSistolica"`
	DiastolicBP int     `json:"presionDiastolica"`
	HeartRate   int     `json:"frecuenciaCardiaca"`
	WeightKg    float64 `json:"pesoKg"`
}

// DefaultSnapshot returns a snapshot with placeholder vitals.
func DefaultSnapshot(id int, name string) PatientSnapshot {
	return PatientSnapshot{
		ID:          id,
		Name:        name,
		SystolicBP:  120,
		DiastolicBP: 80,
		HeartRate:   72,
		WeightKg:    70,
	}
}

// GenerationRequest is the context forwarded to the questionnaire agent.
type GenerationRequest struct {
	FollowUpID         int             `json:"seguimientoId"`
	PatientID          int             `json:"pacienteId"`
	Type               string          `json:"tipo"`
	Priority           string          `json:"prioridad"`
	DaysSinceScheduled int             `json:"diasDesdeProgramacion"`
	PreviousResult     string          `json:"resultadoAnterior,omitempty"`
	Notes              string          `json:"notas,omitempty"`
	Patient            PatientSnapshot `json:"paciente"`
}

// Generator produces a questionnaire for one follow-up. Every open of a
// follow-up generates afresh; there is no caching or retry.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*Questionnaire, error)
}

// WebhookGenerator generates questionnaires through the cardiovascular agent
// webhook on the workflow engine.
type WebhookGenerator struct {
	wf *workflow.Client
}

// NewWebhookGenerator creates a WebhookGenerator on the shared workflow client.
func NewWebhookGenerator(wf *workflow.Client) *WebhookGenerator {
	return &WebhookGenerator{wf: wf}
}

// Generate posts the request and parses the returned document. Any deviation
// from the envelope contract surfaces as workflow.ErrGeneration.
func (g *WebhookGenerator) Generate(ctx context.Context, req GenerationRequest) (*Questionnaire, error) {
	raw, err := g.wf.Post(ctx, "/webhook/agente1-cardiovascular", req)
	if err != nil {
		return nil, err
	}
	doc, err := workflow.DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	q, err := Parse(doc)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, workflow.ErrGeneration)
	}
	return q, nil
}
