package questionnaire

import (
	"encoding/json"
	"testing"
)

func TestParse_ValidDocument(t *testing.T) {
	doc := `{
		"titulo": "Control cardiovascular",
		"instrucciones": "Responda con calma",
		"preguntas": [
			{"id": "q1", "pregunta": "¿Cómo se siente?", "tipo": "texto", "requerida": true},
			{"id": "q2", "pregunta": "Síntomas", "tipo": "multiple", "opciones": ["mareo", "fatiga"], "requerida": false},
			{"id": "q3", "pregunta": "¿Toma su medicación?", "tipo": "unica", "opciones": ["sí", "no"], "requerida": true},
			{"id": "q4", "pregunta": "Presión sistólica", "tipo": "numero", "requerida": false}
		]
	}`

	q, err := Parse(json.RawMessage(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Title != "Control cardiovascular" {
		t.Errorf("unexpected title %q", q.Title)
	}
	if len(q.Questions) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(q.Questions))
	}
	if q.Questions[1].Type != TypeMultiChoice {
		t.Errorf("expected multiple alias normalized, got %q", q.Questions[1].Type)
	}
	if q.Questions[3].Type != TypeNumeric {
		t.Errorf("expected numero alias normalized, got %q", q.Questions[3].Type)
	}
}

func TestParse_Rejections(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"no questions", `{"titulo":"x","preguntas":[]}`},
		{"missing id", `{"preguntas":[{"pregunta":"x","tipo":"texto"}]}`},
		{"duplicate id", `{"preguntas":[{"id":"q1","tipo":"texto"},{"id":"q1","tipo":"texto"}]}`},
		{"unknown type", `{"preguntas":[{"id":"q1","tipo":"fecha"}]}`},
		{"choice without options", `{"preguntas":[{"id":"q1","tipo":"unica"}]}`},
		{"not json", `cuestionario`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(json.RawMessage(tc.doc)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestQuestionnaire_QuestionLookup(t *testing.T) {
	q := &Questionnaire{Questions: []Question{{ID: "q1", Type: TypeFreeText}}}
	if _, ok := q.Question("q1"); !ok {
		t.Error("expected q1 to be found")
	}
	if _, ok := q.Question("q9"); ok {
		t.Error("expected q9 to be missing")
	}
}

func TestNormalizeType_UnknownPreserved(t *testing.T) {
	if got := NormalizeType("fecha"); got != QuestionType("fecha") {
		t.Errorf("expected unknown type preserved, got %q", got)
	}
	if QuestionType("fecha").Valid() {
		t.Error("expected fecha to be invalid")
	}
}
