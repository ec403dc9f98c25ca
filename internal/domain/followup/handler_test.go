package followup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newHandlerEnv(followUps ...FollowUp) (*Handler, *testEnv) {
	env := newTestEnv(followUps...)
	return NewHandler(env.svc), env
}

func echoContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func TestHandlerInventory(t *testing.T) {
	h, _ := newHandlerEnv(pendingFollowUp())

	c, rec := echoContext(http.MethodGet, "/pacientes/7/seguimientos", "")
	c.SetParamNames("pacienteId")
	c.SetParamValues("7")

	if err := h.Inventory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []FollowUp
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 1 || list[0].ID != 42 {
		t.Errorf("unexpected inventory: %+v", list)
	}
}

func TestHandlerInventory_EmptyListNotNull(t *testing.T) {
	h, _ := newHandlerEnv()

	c, rec := echoContext(http.MethodGet, "/pacientes/7/seguimientos", "")
	c.SetParamNames("pacienteId")
	c.SetParamValues("7")

	if err := h.Inventory(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("expected empty array, got %q", got)
	}
}

func TestHandlerInventory_BackendDown(t *testing.T) {
	h, env := newHandlerEnv()
	env.records.failList = true

	c, _ := echoContext(http.MethodGet, "/pacientes/7/seguimientos", "")
	c.SetParamNames("pacienteId")
	c.SetParamValues("7")

	if code := httpCode(t, h.Inventory(c)); code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", code)
	}
}

func TestHandlerInventory_BadPatientID(t *testing.T) {
	h, _ := newHandlerEnv()

	c, _ := echoContext(http.MethodGet, "/pacientes/abc/seguimientos", "")
	c.SetParamNames("pacienteId")
	c.SetParamValues("abc")

	if code := httpCode(t, h.Inventory(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandlerOpenSession(t *testing.T) {
	h, env := newHandlerEnv(pendingFollowUp())

	c, rec := echoContext(http.MethodPost, "/seguimientos/42/sesion", `{"patientId":7}`)
	c.SetParamNames("id")
	c.SetParamValues("42")

	if err := h.OpenSession(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var res openResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.SessionID == "" {
		t.Error("expected a session id")
	}
	if res.Questionnaire == nil || len(res.Questionnaire.Questions) != 1 {
		t.Errorf("expected generated questionnaire, got %+v", res.Questionnaire)
	}
	if _, err := env.store.Get(res.SessionID); err != nil {
		t.Errorf("expected session in store: %v", err)
	}
}

func TestHandlerOpenSession_Errors(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		body     string
		prepare  func(*testEnv)
		wantCode int
	}{
		{"unknown follow-up", "99", `{"patientId":7}`, nil, http.StatusNotFound},
		{"missing patient id", "42", `{}`, nil, http.StatusBadRequest},
		{"already done", "42", `{"patientId":7}`, func(env *testEnv) {
			env.records.followUps[0].Status = StatusDone
		}, http.StatusConflict},
		{"generation failed", "42", `{"patientId":7}`, func(env *testEnv) {
			env.gen.fail = true
		}, http.StatusBadGateway},
		{"backend down", "42", `{"patientId":7}`, func(env *testEnv) {
			env.records.failList = true
		}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, env := newHandlerEnv(pendingFollowUp())
			if tt.prepare != nil {
				tt.prepare(env)
			}
			c, _ := echoContext(http.MethodPost, "/seguimientos/"+tt.id+"/sesion", tt.body)
			c.SetParamNames("id")
			c.SetParamValues(tt.id)

			if code := httpCode(t, h.OpenSession(c)); code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, code)
			}
		})
	}
}

func TestHandlerAnswer(t *testing.T) {
	h, env := newHandlerEnv(pendingFollowUp())
	qs := openSession(t, env)

	c, rec := echoContext(http.MethodPut, "/sesiones/"+qs.ID+"/respuestas/q1", `{"value":"me siento bien"}`)
	c.SetParamNames("sid", "qid")
	c.SetParamValues(qs.ID, "q1")

	if err := h.Answer(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if qs.Answers()["q1"] != "me siento bien" {
		t.Errorf("answer not recorded: %v", qs.Answers())
	}
}

func TestHandlerAnswer_UnknownSession(t *testing.T) {
	h, _ := newHandlerEnv(pendingFollowUp())

	c, _ := echoContext(http.MethodPut, "/sesiones/nope/respuestas/q1", `{"value":"x"}`)
	c.SetParamNames("sid", "qid")
	c.SetParamValues("nope", "q1")

	if code := httpCode(t, h.Answer(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandlerAnswer_UnknownQuestion(t *testing.T) {
	h, env := newHandlerEnv(pendingFollowUp())
	qs := openSession(t, env)

	c, _ := echoContext(http.MethodPut, "/sesiones/"+qs.ID+"/respuestas/q9", `{"value":"x"}`)
	c.SetParamNames("sid", "qid")
	c.SetParamValues(qs.ID, "q9")

	if code := httpCode(t, h.Answer(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandlerComplete(t *testing.T) {
	h, env := newHandlerEnv(pendingFollowUp())
	qs := openSession(t, env)
	env.svc.Answer(qs.ID, "q1", "me siento bien", nil)

	c, rec := echoContext(http.MethodPost, "/sesiones/"+qs.ID+"/completar", "")
	c.SetParamNames("sid")
	c.SetParamValues(qs.ID)

	if err := h.Complete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var result CompletionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.FollowUp == nil || result.FollowUp.Status != StatusDone {
		t.Errorf("expected DONE follow-up, got %+v", result.FollowUp)
	}
}

func TestHandlerComplete_Errors(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		h, _ := newHandlerEnv(pendingFollowUp())
		c, _ := echoContext(http.MethodPost, "/sesiones/nope/completar", "")
		c.SetParamNames("sid")
		c.SetParamValues("nope")

		if code := httpCode(t, h.Complete(c)); code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", code)
		}
	})

	t.Run("required answer missing", func(t *testing.T) {
		h, env := newHandlerEnv(pendingFollowUp())
		qs := openSession(t, env)

		c, _ := echoContext(http.MethodPost, "/sesiones/"+qs.ID+"/completar", "")
		c.SetParamNames("sid")
		c.SetParamValues(qs.ID)

		if code := httpCode(t, h.Complete(c)); code != http.StatusUnprocessableEntity {
			t.Errorf("expected 422, got %d", code)
		}
	})

	t.Run("pipeline failure", func(t *testing.T) {
		h, env := newHandlerEnv(pendingFollowUp())
		env.records.failSave = true
		qs := openSession(t, env)
		env.svc.Answer(qs.ID, "q1", "bien", nil)

		c, _ := echoContext(http.MethodPost, "/sesiones/"+qs.ID+"/completar", "")
		c.SetParamNames("sid")
		c.SetParamValues(qs.ID)

		if code := httpCode(t, h.Complete(c)); code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", code)
		}
	})
}

func TestHandlerAbandon(t *testing.T) {
	h, env := newHandlerEnv(pendingFollowUp())
	qs := openSession(t, env)

	c, rec := echoContext(http.MethodDelete, "/sesiones/"+qs.ID, "")
	c.SetParamNames("sid")
	c.SetParamValues(qs.ID)

	if err := h.Abandon(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !qs.Closed() {
		t.Error("expected session closed")
	}
}
