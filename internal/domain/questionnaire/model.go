// Package questionnaire holds the ephemeral questionnaire documents generated
// per follow-up and the in-memory answer-collection sessions built while the
// patient fills one in. Nothing here is persisted; a questionnaire lives only
// as long as the session that opened it.
package questionnaire

import (
	"encoding/json"
	"fmt"
)

// QuestionType classifies how a question is answered.
type QuestionType string

const (
	TypeSingleChoice QuestionType = "opcion_unica"
	TypeMultiChoice  QuestionType = "opcion_multiple"
	TypeFreeText     QuestionType = "texto"
	TypeNumeric      QuestionType = "numerico"
)

// NormalizeType maps the type spellings the workflow engine has been seen to
// emit onto the canonical constants. Unknown spellings come back unchanged so
// validation can name them.
func NormalizeType(raw string) QuestionType {
	switch raw {
	case "opcion_unica", "unica", "single", "single_choice":
		return TypeSingleChoice
	case "opcion_multiple", "multiple", "multi", "multiple_choice":
		return TypeMultiChoice
	case "texto", "text", "abierta":
		return TypeFreeText
	case "numerico", "numero", "numeric", "number":
		return TypeNumeric
	}
	return QuestionType(raw)
}

// Valid reports whether t is one of the four supported types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeSingleChoice, TypeMultiChoice, TypeFreeText, TypeNumeric:
		return true
	}
	return false
}

// Choice reports whether answers must come from the option list.
func (t QuestionType) Choice() bool {
	return t == TypeSingleChoice || t == TypeMultiChoice
}

// Question is one entry of a generated questionnaire.
type Question struct {
	ID       string       `json:"id"`
	Prompt   string       `json:"pregunta"`
	Type     QuestionType `json:"tipo"`
	Options  []string     `json:"opciones,omitempty"`
	Required bool         `json:"requerida"`
}

// Questionnaire is the document the workflow engine generates for one
// follow-up.
type Questionnaire struct {
	Title        string     `json:"titulo"`
	Instructions string     `json:"instrucciones,omitempty"`
	Questions    []Question `json:"preguntas"`
}

// Question returns the question with the given id.
func (q *Questionnaire) Question(id string) (*Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// Parse decodes and validates a questionnaire document. Question types are
// normalized; a document with no questions, a duplicate or empty question id,
// an unknown type, or a choice question without options is rejected so a
// partial questionnaire is never rendered.
func Parse(doc json.RawMessage) (*Questionnaire, error) {
	var q Questionnaire
	if err := json.Unmarshal(doc, &q); err != nil {
		return nil, fmt.Errorf("decode questionnaire: %w", err)
	}
	if len(q.Questions) == 0 {
		return nil, fmt.Errorf("questionnaire has no questions")
	}

	seen := make(map[string]bool, len(q.Questions))
	for i := range q.Questions {
		qu := &q.Questions[i]
		if qu.ID == "" {
			return nil, fmt.Errorf("question %d has no id", i)
		}
		if seen[qu.ID] {
			return nil, fmt.Errorf("duplicate question id %q", qu.ID)
		}
		seen[qu.ID] = true

		qu.Type = NormalizeType(string(qu.Type))
		if !qu.Type.Valid() {
			return nil, fmt.Errorf("question %q has unsupported type %q", qu.ID, qu.Type)
		}
		if qu.Type.Choice() && len(qu.Options) == 0 {
			return nil, fmt.Errorf("choice question %q has no options", qu.ID)
		}
	}
	return &q, nil
}
