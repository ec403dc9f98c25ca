// Package notify renders and dispatches the best-effort SMS/email messages
// sent to a patient after a follow-up is completed. Dispatch failures never
// influence the completion outcome; callers log and move on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vidacardio/followup/internal/platform/backend"
	"github.com/vidacardio/followup/internal/platform/session"
)

// Outcome reports which side channels accepted the message.
type Outcome struct {
	SMSSent   bool `json:"smsEnviado"`
	EmailSent bool `json:"correoEnviado"`
}

// Request is one notification to a patient.
type Request struct {
	PatientID    int    `json:"pacienteId"`
	Name         string `json:"nombre"`
	Phone        string `json:"telefono"`
	Email        string `json:"correo"`
	FollowUpType string `json:"tipoSeguimiento"`
	Date         string `json:"fecha"`
	Message      string `json:"mensaje"`
}

// Dispatcher hands a rendered notification to the delivery collaborator.
type Dispatcher interface {
	Dispatch(ctx context.Context, sess *session.Session, req Request) (Outcome, error)
}

// ---------------------------------------------------------------------------
// Template engine
// ---------------------------------------------------------------------------

// Template defines a reusable notification template.
type Template struct {
	ID   string
	Body string
}

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:   "seguimiento-completado",
			Body: "Hola {{nombre}}, gracias por completar tu cuestionario de {{tipo}} del {{fecha}}. Tu equipo de salud revisará tus respuestas.",
		},
		{
			ID:   "seguimiento-recordatorio",
			Body: "Hola {{nombre}}, tienes pendiente el cuestionario de {{tipo}} programado para el {{fecha}}.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", templateID)
	}

	body := t.Body
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// Backend dispatcher
// ---------------------------------------------------------------------------

// BackendDispatcher sends notifications through the records backend, which
// owns the actual SMS/email gateways.
type BackendDispatcher struct {
	client *backend.Client
}

// NewBackendDispatcher creates a BackendDispatcher on the shared backend client.
func NewBackendDispatcher(client *backend.Client) *BackendDispatcher {
	return &BackendDispatcher{client: client}
}

// Dispatch POSTs the notification and returns the per-channel outcome.
func (d *BackendDispatcher) Dispatch(ctx context.Context, sess *session.Session, req Request) (Outcome, error) {
	var out Outcome
	if err := d.client.Post(ctx, sess, "/notificaciones/seguimiento", req, &out); err != nil {
		return Outcome{}, fmt.Errorf("dispatch notification: %w", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Mock dispatcher (test double)
// ---------------------------------------------------------------------------

// MockDispatcher is a test double for Dispatcher.
type MockDispatcher struct {
	mu         sync.Mutex
	calls      []Request
	Outcome    Outcome
	ShouldFail bool
	FailError  string
}

// Dispatch records the call and optionally returns an error.
func (m *MockDispatcher) Dispatch(_ context.Context, _ *session.Session, req Request) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if m.ShouldFail {
		return Outcome{}, errors.New(m.FailError)
	}
	return m.Outcome, nil
}

// Calls returns a copy of recorded dispatch calls.
func (m *MockDispatcher) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// Manager renders the completion message and dispatches it.
type Manager struct {
	dispatcher Dispatcher
	templates  *TemplateEngine
}

// NewManager constructs a Manager.
func NewManager(d Dispatcher, tpl *TemplateEngine) *Manager {
	return &Manager{dispatcher: d, templates: tpl}
}

// SendCompleted notifies the patient that a follow-up questionnaire was
// completed. The rendered message rides along so the backend gateways do not
// need to know the wording.
func (m *Manager) SendCompleted(ctx context.Context, sess *session.Session, req Request) (Outcome, error) {
	msg, err := m.templates.Render("seguimiento-completado", map[string]string{
		"nombre": req.Name,
		"tipo":   req.FollowUpType,
		"fecha":  req.Date,
	})
	if err != nil {
		return Outcome{}, err
	}
	req.Message = msg
	return m.dispatcher.Dispatch(ctx, sess, req)
}
