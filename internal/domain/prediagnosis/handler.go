package prediagnosis

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/validation"
	"github.com/clinic/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/prediagnoses", h.Create)
	api.GET("/prediagnoses", h.List)
	api.GET("/prediagnoses/:id", h.Get)
}

type createRequest struct {
	PatientID string `json:"patientId" validate:"required,uuid"`
	Symptoms  string `json:"symptoms" validate:"required"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return apperr.Validation("patientId must be a UUID")
	}
	p, err := h.svc.Create(c.Request().Context(), CreateInput{PatientID: patientID, Symptoms: req.Symptoms})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	raw := c.QueryParam("patientId")
	if raw == "" {
		return apperr.Validation("patientId is required")
	}
	patientID, err := uuid.Parse(raw)
	if err != nil {
		return apperr.Validation("patientId must be a UUID")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*PreDiagnosis{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}
