package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidacardio/followup/internal/platform/workflow"
)

func webhookServer(t *testing.T, response string) (*httptest.Server, *GenerationRequest) {
	t.Helper()
	var got GenerationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/webhook/agente1-cardiovascular" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte(response))
	}))
	return srv, &got
}

func TestWebhookGenerator_Generate(t *testing.T) {
	srv, got := webhookServer(t, `[{"success":true,"cuestionario":{
		"titulo":"Control",
		"preguntas":[{"id":"q1","pregunta":"¿Cómo se siente?","tipo":"texto","requerida":true}]
	}}]`)
	defer srv.Close()

	g := NewWebhookGenerator(workflow.New(srv.URL, 5*time.Second, zerolog.Nop()))
	q, err := g.Generate(context.Background(), GenerationRequest{
		FollowUpID:         42,
		PatientID:          7,
		Priority:           "ALTA",
		DaysSinceScheduled: 3,
		Patient:            DefaultSnapshot(7, "Ana"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Title != "Control" || len(q.Questions) != 1 {
		t.Errorf("unexpected questionnaire: %+v", q)
	}
	if got.FollowUpID != 42 || got.Priority != "ALTA" {
		t.Errorf("unexpected payload forwarded: %+v", got)
	}
	if got.Patient.SystolicBP != 120 {
		t.Errorf("expected placeholder vitals in payload, got %+v", got.Patient)
	}
}

func TestWebhookGenerator_FailureEnvelope(t *testing.T) {
	srv, _ := webhookServer(t, `{"success":false}`)
	defer srv.Close()

	g := NewWebhookGenerator(workflow.New(srv.URL, 5*time.Second, zerolog.Nop()))
	_, err := g.Generate(context.Background(), GenerationRequest{FollowUpID: 42})
	if !errors.Is(err, workflow.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestWebhookGenerator_MalformedQuestionnaire(t *testing.T) {
	// success envelope but an unusable document inside
	srv, _ := webhookServer(t, `{"success":true,"cuestionario":{"titulo":"x","preguntas":[]}}`)
	defer srv.Close()

	g := NewWebhookGenerator(workflow.New(srv.URL, 5*time.Second, zerolog.Nop()))
	_, err := g.Generate(context.Background(), GenerationRequest{FollowUpID: 42})
	if !errors.Is(err, workflow.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}
