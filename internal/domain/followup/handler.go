package followup

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vidacardio/followup/internal/domain/questionnaire"
	"github.com/vidacardio/followup/internal/platform/session"
	"github.com/vidacardio/followup/internal/platform/workflow"
)

// Handler exposes the follow-up workflow over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes binds the follow-up routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/pacientes/:pacienteId/seguimientos", h.Inventory)
	g.POST("/seguimientos/:id/sesion", h.OpenSession)
	g.PUT("/sesiones/:sid/respuestas/:qid", h.Answer)
	g.POST("/sesiones/:sid/completar", h.Complete)
	g.DELETE("/sesiones/:sid", h.Abandon)
}

// Inventory handles GET /pacientes/:pacienteId/seguimientos.
func (h *Handler) Inventory(c echo.Context) error {
	patientID, err := strconv.Atoi(c.Param("pacienteId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	list, err := h.svc.Inventory(c.Request().Context(), session.FromContext(c), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, ErrLoad.Error())
	}
	if list == nil {
		list = []FollowUp{}
	}
	return c.JSON(http.StatusOK, list)
}

// openRequest is the JSON body for POST /seguimientos/:id/sesion.
type openRequest struct {
	PatientID int `json:"patientId"`
}

// openResponse returns the session id alongside the generated questionnaire.
type openResponse struct {
	SessionID     string                       `json:"sessionId"`
	Questionnaire *questionnaire.Questionnaire `json:"questionnaire"`
}

// OpenSession handles POST /seguimientos/:id/sesion.
func (h *Handler) OpenSession(c echo.Context) error {
	followUpID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid follow-up id")
	}
	var req openRequest
	if err := c.Bind(&req); err != nil || req.PatientID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "patientId is required")
	}

	res, err := h.svc.Open(c.Request().Context(), session.FromContext(c), req.PatientID, followUpID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrCompleted):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, workflow.ErrGeneration), errors.Is(err, ErrLoad):
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, openResponse{
		SessionID:     res.Session.ID,
		Questionnaire: res.Questionnaire,
	})
}

// answerRequest is the JSON body for PUT /sesiones/:sid/respuestas/:qid.
// Selected is required for multi-choice questions: true checks the option in
// Value, false unchecks it.
type answerRequest struct {
	Value    string `json:"value"`
	Selected *bool  `json:"selected,omitempty"`
}

// Answer handles PUT /sesiones/:sid/respuestas/:qid.
func (h *Handler) Answer(c echo.Context) error {
	var req answerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	err := h.svc.Answer(c.Param("sid"), c.Param("qid"), req.Value, req.Selected)
	if err != nil {
		switch {
		case errors.Is(err, questionnaire.ErrUnknownSession):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, questionnaire.ErrSessionClosed):
			return echo.NewHTTPError(http.StatusGone, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Complete handles POST /sesiones/:sid/completar.
func (h *Handler) Complete(c echo.Context) error {
	result, err := h.svc.Complete(c.Request().Context(), session.FromContext(c), c.Param("sid"))
	if err != nil {
		var ce *CompletionError
		switch {
		case errors.Is(err, questionnaire.ErrUnknownSession):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, questionnaire.ErrSessionClosed):
			return echo.NewHTTPError(http.StatusGone, err.Error())
		case errors.As(err, &ce):
			return echo.NewHTTPError(http.StatusBadGateway, ce.Error())
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// Abandon handles DELETE /sesiones/:sid.
func (h *Handler) Abandon(c echo.Context) error {
	h.svc.Abandon(c.Param("sid"))
	return c.NoContent(http.StatusNoContent)
}
