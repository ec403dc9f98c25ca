// Package followup implements the follow-up (seguimiento) workflow of the
// cardiovascular campaign: listing a patient's follow-ups, opening a
// questionnaire session for one, and running the completion pipeline against
// the records backend. Follow-up records themselves are owned by the backend;
// this package never creates or deletes them.
package followup

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the follow-up lifecycle state. The only transition this service
// performs is PENDING/SCHEDULED → DONE, exactly once, on successful
// completion.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusScheduled Status = "SCHEDULED"
	StatusDone      Status = "DONE"
)

// Completable reports whether a questionnaire may still be opened and
// submitted for this status.
func (s Status) Completable() bool {
	return s == StatusPending || s == StatusScheduled
}

// Date is a calendar date on the backend wire. The backend emits both bare
// dates and full timestamps depending on the endpoint, so both are accepted.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func (d *Date) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw, err)
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// FollowUp is one scheduled post-appointment check-in.
type FollowUp struct {
	ID            int    `json:"id"`
	PatientID     int    `json:"patientId"`
	ScheduledDate Date   `json:"scheduledDate"`
	Type          string `json:"type"`
	Result        string `json:"result,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Status        Status `json:"status"`
	Priority      string `json:"priority"`
	AppointmentID *int   `json:"appointmentId,omitempty"`
}

// SortByDateDesc orders follow-ups by scheduled date, most recent first. The
// sort is stable so repeated fetches render identically.
func SortByDateDesc(list []FollowUp) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].ScheduledDate.After(list[j].ScheduledDate.Time)
	})
}

// AnalysisResult is the server-derived summary of a completed questionnaire.
// Every field is independently optional.
type AnalysisResult struct {
	AdherenceLevel         string   `json:"adherenceLevel,omitempty"`
	AdherenceScore         *float64 `json:"adherenceScore,omitempty"`
	SymptomsLevel          string   `json:"symptomsLevel,omitempty"`
	Urgency                string   `json:"urgency,omitempty"`
	Recommendation         string   `json:"recommendation,omitempty"`
	NextFollowUpSuggestion string   `json:"nextFollowUpSuggestion,omitempty"`
}

// Contact is the patient contact data used for the best-effort notification.
type Contact struct {
	ID    int    `json:"id"`
	Name  string `json:"nombre"`
	Phone string `json:"telefono"`
	Email string `json:"correo"`
}
