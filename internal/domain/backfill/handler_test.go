package backfill

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func backfillContext(patientID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/pacientes/"+patientID+"/backfill", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("pacienteId")
	c.SetParamValues(patientID)
	return c, rec
}

func TestHandlerRun(t *testing.T) {
	env := newRunEnv([]Appointment{attended(1), attended(2)}, nil)
	h := NewHandler(env.svc)

	c, rec := backfillContext("7")
	if err := h.Run(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var summary Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if summary.Analyzed != 2 || summary.Triggered != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestHandlerRun_BackendDown(t *testing.T) {
	env := newRunEnv(nil, nil)
	env.appts.fail = true
	h := NewHandler(env.svc)

	c, _ := backfillContext("7")
	err := h.Run(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %v", err)
	}
}

func TestHandlerRun_BadPatientID(t *testing.T) {
	env := newRunEnv(nil, nil)
	h := NewHandler(env.svc)

	c, _ := backfillContext("abc")
	err := h.Run(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}
