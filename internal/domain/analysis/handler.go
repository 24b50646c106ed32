package analysis

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/thyrolab/thyrolab/internal/domain/labs"
	"github.com/thyrolab/thyrolab/internal/platform/auth"
)

type Handler struct {
	labs *labs.Service
}

func NewHandler(labsSvc *labs.Service) *Handler {
	return &Handler{labs: labsSvc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/analysis", h.Analyze,
		auth.RequireRole(auth.RoleDoctor, auth.RolePatient), auth.RequireOwnPatient("id"))
}

func (h *Handler) Analyze(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	series, err := h.labs.Series(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	result, err := Predict(series)
	if errors.Is(err, ErrInsufficientData) {
		return echo.NewHTTPError(http.StatusBadRequest, ErrInsufficientData.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
