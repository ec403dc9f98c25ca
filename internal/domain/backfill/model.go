// Package backfill detects attended appointments that never received a
// follow-up record and asks the workflow orchestrator to generate the missing
// ones. Record creation itself happens inside the workflow engine; this
// package only diffs and triggers.
package backfill

import (
	"encoding/json"

	"github.com/vidacardio/followup/internal/domain/followup"
)

// AppointmentAttended is the estado value of a citación the patient showed
// up for. Only attended appointments are expected to carry a follow-up.
const AppointmentAttended = "ATENDIDA"

// Appointment is one citación-médica record from the scheduling backend.
type Appointment struct {
	ID         int           `json:"id"`
	PatientID  int           `json:"pacienteId"`
	Date       followup.Date `json:"fechaCitacion"`
	AttendedAt followup.Date `json:"fechaAtencion,omitempty"`
	Status     string        `json:"estado"`
}

// Attended reports whether the patient attended this appointment.
func (a Appointment) Attended() bool {
	return a.Status == AppointmentAttended
}

// attendedAt falls back to the citación date for backends that do not record
// a separate attendance timestamp.
func (a Appointment) attendedAt() followup.Date {
	if !a.AttendedAt.IsZero() {
		return a.AttendedAt
	}
	return a.Date
}

// ClinicalHistory is the best-effort snapshot forwarded to the orchestrator.
// Each field is raw backend JSON, passed through untouched; any of them may
// be absent when its fetch failed.
type ClinicalHistory struct {
	Triage        json.RawMessage `json:"triaje,omitempty"`
	Prediction    json.RawMessage `json:"prediccion,omitempty"`
	CardioMetrics json.RawMessage `json:"datosCardiovasculares,omitempty"`
}

// triggerPayload is the body posted to the orchestrator webhook, one per
// appointment lacking a follow-up.
type triggerPayload struct {
	Event         string          `json:"evento"`
	PatientID     int             `json:"pacienteId"`
	AppointmentID int             `json:"citacionId"`
	CampaignID    int             `json:"campanaId,omitempty"`
	AttendedAt    followup.Date   `json:"fechaAtencion"`
	History       ClinicalHistory `json:"historiaClinica"`
}

const eventMissingFollowUp = "seguimiento-faltante"

// Summary is the outcome of one backfill run.
type Summary struct {
	Analyzed  int      `json:"analyzed"`
	Missing   int      `json:"missing"`
	Triggered int      `json:"triggered"`
	Errors    []string `json:"errors"`
}
