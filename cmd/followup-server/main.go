package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vidacardio/followup/internal/config"
	"github.com/vidacardio/followup/internal/domain/backfill"
	"github.com/vidacardio/followup/internal/domain/followup"
	"github.com/vidacardio/followup/internal/domain/questionnaire"
	"github.com/vidacardio/followup/internal/platform/backend"
	"github.com/vidacardio/followup/internal/platform/middleware"
	"github.com/vidacardio/followup/internal/platform/notify"
	"github.com/vidacardio/followup/internal/platform/session"
	"github.com/vidacardio/followup/internal/platform/workflow"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "followup-server",
		Short: "Follow-up questionnaire orchestration API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(backfillCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the follow-up API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Run a one-off follow-up gap detection for a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, _ := cmd.Flags().GetInt("paciente")
			if patientID == 0 {
				return fmt.Errorf("--paciente is required")
			}
			token, _ := cmd.Flags().GetString("token")

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
			backendClient := backend.New(cfg.BackendBaseURL, timeout, logger)
			workflowClient := workflow.New(cfg.N8NBaseURL, timeout, logger)

			repo := followup.NewHTTPRepo(backendClient)
			backfillRepo := backfill.NewHTTPRepo(backendClient)
			svc := backfill.NewService(backfillRepo, repo, backfillRepo, workflowClient, cfg.CampaignID, logger)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			summary, err := svc.Run(ctx, session.Service("backfill-cli", token), patientID)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(summary, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().Int("paciente", 0, "Patient id to scan")
	cmd.Flags().String("token", "", "Bearer token forwarded to the backend")
	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Outbound clients
	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	backendClient := backend.New(cfg.BackendBaseURL, timeout, logger)
	workflowClient := workflow.New(cfg.N8NBaseURL, timeout, logger)

	// Domain wiring
	repo := followup.NewHTTPRepo(backendClient)
	sessions := questionnaire.NewStore()
	generator := questionnaire.NewWebhookGenerator(workflowClient)

	var notifier *notify.Manager
	if cfg.NotifyEnabled {
		notifier = notify.NewManager(notify.NewBackendDispatcher(backendClient), notify.NewTemplateEngine())
	}

	followupSvc := followup.NewService(repo, repo, generator, sessions, notifier, logger)
	backfillRepo := backfill.NewHTTPRepo(backendClient)
	backfillSvc := backfill.NewService(backfillRepo, repo, backfillRepo, workflowClient, cfg.CampaignID, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	if cfg.IsDev() {
		e.Use(session.DevMiddleware())
	} else {
		e.Use(session.Middleware(cfg.SessionSecret))
	}

	apiV1 := e.Group("/api/v1")
	followup.NewHandler(followupSvc).RegisterRoutes(apiV1)
	backfill.NewHandler(backfillSvc).RegisterRoutes(apiV1)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// Scheduled sweep
	var sweeper *backfill.Sweeper
	if cfg.SweepCron != "" {
		patientIDs, err := cfg.SweepPatientIDs()
		if err != nil {
			return fmt.Errorf("invalid sweep patient list: %w", err)
		}
		sessionTTL := time.Duration(cfg.SessionTTLMin) * time.Minute
		sweeper = backfill.NewSweeper(backfillSvc, sessions, session.Service("sweeper", ""), cfg.SweepCron, cfg.ExpireCron, patientIDs, sessionTTL, logger)
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	if sweeper != nil {
		sweeper.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
