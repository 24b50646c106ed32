package labs

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/thyrolab/thyrolab/internal/platform/auth"
	"github.com/thyrolab/thyrolab/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/lab-records", h.CreateRecord, auth.RequireRole(auth.RoleDoctor))
	api.POST("/lab-records/import", h.ImportRecords, auth.RequireRole(auth.RoleDoctor))
	api.GET("/lab-records/:id", h.GetRecord,
		auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	api.GET("/patients/:id/lab-records", h.ListByPatient,
		auth.RequireRole(auth.RoleDoctor, auth.RolePatient), auth.RequireOwnPatient("id"))
}

type createRecordRequest struct {
	PatientID  uuid.UUID `json:"patient_id"`
	RecordedOn string    `json:"recorded_on"`
	TSH        float64   `json:"tsh"`
	T3         float64   `json:"t3"`
	T4         float64   `json:"t4"`
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var req createRecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RecordedOn == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "recorded_on is required")
	}
	recordedOn, err := time.Parse(DateLayout, req.RecordedOn)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "recorded_on must be formatted as "+DateLayout)
	}
	doctorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "token subject is not a valid user id")
	}

	rec := &Record{
		PatientID:  req.PatientID,
		DoctorID:   doctorID,
		RecordedOn: recordedOn,
		TSH:        req.TSH,
		T3:         req.T3,
		T4:         req.T4,
	}
	if err := h.svc.CreateRecord(c.Request().Context(), rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetRecord(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "record not found")
	}
	// RequireOwnPatient cannot guard this route: the patient id is only
	// known after the lookup. An empty patient_id claim grants nothing.
	ctx := c.Request().Context()
	if auth.PatientScoped(auth.RolesFromContext(ctx)) {
		own := auth.PatientIDFromContext(ctx)
		if own == "" || rec.PatientID.String() != own {
			return echo.NewHTTPError(http.StatusForbidden, "patients may only access their own records")
		}
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ImportRecords(c echo.Context) error {
	doctorID, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "token subject is not a valid user id")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	result, err := h.svc.ImportCSV(c.Request().Context(), doctorID, f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
