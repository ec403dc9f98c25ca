package backfill

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vidacardio/followup/internal/domain/questionnaire"
	"github.com/vidacardio/followup/internal/platform/session"
)

// Sweeper periodically runs the gap detection for a configured patient list
// and expires stale questionnaire sessions. A run uses the configured service
// session, not an interactive user's.
type Sweeper struct {
	engine     *cron.Cron
	svc        *Service
	sessions   *questionnaire.Store
	sess       *session.Session
	spec       string
	expireSpec string
	patientIDs []int
	sessionTTL time.Duration
	logger     zerolog.Logger
}

// NewSweeper constructs a Sweeper. spec and expireSpec are standard
// five-field cron expressions; patientIDs is the list swept on each tick.
func NewSweeper(svc *Service, sessions *questionnaire.Store, sess *session.Session, spec, expireSpec string, patientIDs []int, sessionTTL time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		engine:     cron.New(cron.WithLocation(time.Local)),
		svc:        svc,
		sessions:   sessions,
		sess:       sess,
		spec:       spec,
		expireSpec: expireSpec,
		patientIDs: patientIDs,
		sessionTTL: sessionTTL,
		logger:     logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start registers the jobs and starts the cron engine.
func (s *Sweeper) Start() error {
	if _, err := s.engine.AddFunc(s.spec, s.sweep); err != nil {
		return err
	}
	if _, err := s.engine.AddFunc(s.expireSpec, s.expireSessions); err != nil {
		return err
	}
	s.engine.Start()
	s.logger.Info().Str("spec", s.spec).Ints("patients", s.patientIDs).Msg("sweeper started")
	return nil
}

// Stop stops the engine and waits for any running job to finish.
func (s *Sweeper) Stop() {
	ctx := s.engine.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("sweeper stopped")
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, patientID := range s.patientIDs {
		summary, err := s.svc.Run(ctx, s.sess, patientID)
		if err != nil {
			s.logger.Error().Err(err).Int("patient", patientID).Msg("scheduled backfill failed")
			continue
		}
		if summary.Missing > 0 {
			s.logger.Info().Int("patient", patientID).
				Int("missing", summary.Missing).
				Int("triggered", summary.Triggered).
				Msg("scheduled backfill found gaps")
		}
	}
}

func (s *Sweeper) expireSessions() {
	if n := s.sessions.ExpireBefore(time.Now().Add(-s.sessionTTL)); n > 0 {
		s.logger.Info().Int("expired", n).Msg("stale questionnaire sessions dropped")
	}
}
