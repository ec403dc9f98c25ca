package backfill

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vidacardio/followup/internal/domain/followup"
	"github.com/vidacardio/followup/internal/platform/session"
)

const triggerPath = "/webhook/orquestador-seguimientos"

// Service runs the gap detection for one patient at a time.
type Service struct {
	appointments Appointments
	records      followup.Records
	history      History
	webhook      Webhook
	campaignID   int
	logger       zerolog.Logger
}

// NewService constructs a Service. campaignID may be zero; it is forwarded
// to the orchestrator only when known.
func NewService(appointments Appointments, records followup.Records, history History, webhook Webhook, campaignID int, logger zerolog.Logger) *Service {
	return &Service{
		appointments: appointments,
		records:      records,
		history:      history,
		webhook:      webhook,
		campaignID:   campaignID,
		logger:       logger.With().Str("component", "backfill").Logger(),
	}
}

// Run diffs the patient's attended appointments against their follow-up
// records and triggers generation for every appointment left uncovered.
// Appointments are processed in order; a trigger failure is recorded in the
// summary and never stops the remaining appointments. Both source lists are
// fetched concurrently; either fetch failing aborts the run.
func (s *Service) Run(ctx context.Context, sess *session.Session, patientID int) (*Summary, error) {
	type apptResult struct {
		list []Appointment
		err  error
	}
	type recordResult struct {
		list []followup.FollowUp
		err  error
	}

	apptCh := make(chan apptResult, 1)
	recordCh := make(chan recordResult, 1)
	go func() {
		list, err := s.appointments.ListByPatient(ctx, sess, patientID)
		apptCh <- apptResult{list, err}
	}()
	go func() {
		list, err := s.records.ListByPatient(ctx, sess, patientID)
		recordCh <- recordResult{list, err}
	}()

	appts, records := <-apptCh, <-recordCh
	if appts.err != nil {
		return nil, fmt.Errorf("%w: appointments: %v", followup.ErrLoad, appts.err)
	}
	if records.err != nil {
		return nil, fmt.Errorf("%w: follow-ups: %v", followup.ErrLoad, records.err)
	}

	covered := make(map[int]bool, len(records.list))
	for _, fu := range records.list {
		if fu.AppointmentID != nil {
			covered[*fu.AppointmentID] = true
		}
	}

	summary := &Summary{Errors: []string{}}
	for _, appt := range appts.list {
		if !appt.Attended() {
			continue
		}
		summary.Analyzed++
		if covered[appt.ID] {
			continue
		}
		summary.Missing++

		payload := triggerPayload{
			Event:         eventMissingFollowUp,
			PatientID:     patientID,
			AppointmentID: appt.ID,
			CampaignID:    s.campaignID,
			AttendedAt:    appt.attendedAt(),
			History:       s.collectHistory(ctx, sess, patientID),
		}
		if _, err := s.webhook.Post(ctx, triggerPath, payload); err != nil {
			s.logger.Warn().Err(err).Int("citacion", appt.ID).Msg("backfill trigger failed")
			summary.Errors = append(summary.Errors, fmt.Sprintf("citacion %d: %v", appt.ID, err))
			continue
		}
		summary.Triggered++
	}

	s.logger.Info().Int("patient", patientID).
		Int("analyzed", summary.Analyzed).
		Int("missing", summary.Missing).
		Int("triggered", summary.Triggered).
		Int("failed", len(summary.Errors)).
		Msg("backfill run finished")
	return summary, nil
}

// collectHistory gathers the three snapshots concurrently. Each fetch is
// best-effort; a failure just leaves its field empty.
func (s *Service) collectHistory(ctx context.Context, sess *session.Session, patientID int) ClinicalHistory {
	var history ClinicalHistory
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		raw, err := s.history.Triage(ctx, sess, patientID)
		if err != nil {
			s.logger.Debug().Err(err).Int("patient", patientID).Msg("triage snapshot unavailable")
			return
		}
		history.Triage = raw
	}()
	go func() {
		defer wg.Done()
		raw, err := s.history.Prediction(ctx, sess, patientID)
		if err != nil {
			s.logger.Debug().Err(err).Int("patient", patientID).Msg("prediction snapshot unavailable")
			return
		}
		history.Prediction = raw
	}()
	go func() {
		defer wg.Done()
		raw, err := s.history.CardioMetrics(ctx, sess, patientID)
		if err != nil {
			s.logger.Debug().Err(err).Int("patient", patientID).Msg("cardio metrics snapshot unavailable")
			return
		}
		history.CardioMetrics = raw
	}()
	wg.Wait()
	return history
}
