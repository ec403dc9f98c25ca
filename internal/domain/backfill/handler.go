package backfill

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vidacardio/followup/internal/domain/followup"
	"github.com/vidacardio/followup/internal/platform/session"
)

// Handler exposes the backfill run over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes binds the backfill routes on the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/pacientes/:pacienteId/backfill", h.Run)
}

// Run handles POST /pacientes/:pacienteId/backfill.
func (h *Handler) Run(c echo.Context) error {
	patientID, err := strconv.Atoi(c.Param("pacienteId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	summary, err := h.svc.Run(c.Request().Context(), session.FromContext(c), patientID)
	if err != nil {
		if errors.Is(err, followup.ErrLoad) {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}
