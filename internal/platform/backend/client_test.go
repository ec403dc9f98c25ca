package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidacardio/followup/internal/platform/session"
)

func testClient(url string) *Client {
	return New(url, 5*time.Second, zerolog.Nop())
}

func TestClient_GetDecodesJSON(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": 42}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	sess := &session.Session{Token: "tok-1"}

	var out struct {
		ID int `json:"id"`
	}
	if err := c.Get(context.Background(), sess, "/seguimientos/paciente/7", &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != 42 {
		t.Errorf("expected id 42, got %d", out.ID)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("expected bearer token forwarded, got %q", gotAuth)
	}
}

func TestClient_NonOKReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no encontrado", http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	err := c.Get(context.Background(), nil, "/seguimientos/paciente/7", nil)

	se, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if se.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", se.Code)
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to be true")
	}
}

func TestClient_PostSendsBody(t *testing.T) {
	var gotMethod, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotCT = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	body := map[string]string{"q1": "me siento bien"}
	if err := c.Post(context.Background(), nil, "/interacciones-chatbot/seguimiento/42/respuestas", body, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotCT != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotCT)
	}
}

func TestClient_TransportErrorWrapped(t *testing.T) {
	c := testClient("http://127.0.0.1:1")
	err := c.Get(context.Background(), nil, "/x", nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if _, ok := err.(*StatusError); ok {
		t.Error("transport failure must not be a StatusError")
	}
}
