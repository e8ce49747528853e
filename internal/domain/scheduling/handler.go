package scheduling

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
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
	doctors := auth.RequireRole(auth.RoleDoctor)

	api.POST("/schedules", h.CreateWindow, doctors)
	api.GET("/schedules/availability/:doctorId", h.Availability)
	api.GET("/schedules/:id", h.ListWindows)
	api.PATCH("/schedules/:id", h.SetWindowActive, doctors)
	api.DELETE("/schedules/:id", h.DeleteWindow, doctors)

	api.POST("/appointments", h.CreateAppointment)
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.PATCH("/appointments/:id", h.UpdateAppointment)
	api.PUT("/appointments/:id/status", h.ChangeStatus)
	api.DELETE("/appointments/:id", h.DeleteAppointment, auth.RequireRole(auth.RoleAdmin))
}

type messageResponse struct {
	Message string `json:"message"`
}

func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s: %q is not a UUID", name, c.Param(name))
	}
	return id, nil
}

// -- Schedule Handlers --

type createWindowRequest struct {
	DayOfWeek string     `json:"dayOfWeek" validate:"required"`
	StartTime string     `json:"startTime" validate:"required,hhmm"`
	EndTime   string     `json:"endTime" validate:"required,hhmm"`
	DoctorID  *uuid.UUID `json:"doctorId"`
}

func (h *Handler) CreateWindow(c echo.Context) error {
	var req createWindowRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	doctorID, err := ResolveWindowDoctor(ctx, req.DoctorID)
	if err != nil {
		return err
	}
	w, err := h.svc.CreateWindow(ctx, CreateWindowInput{
		DoctorID:  doctorID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, w)
}

func (h *Handler) ListWindows(c echo.Context) error {
	doctorID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	windows, err := h.svc.ListWindows(c.Request().Context(), doctorID)
	if err != nil {
		return err
	}
	if len(windows) == 0 {
		return apperr.NotFound("doctor %s has no schedule", doctorID)
	}
	return c.JSON(http.StatusOK, windows)
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *Handler) SetWindowActive(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	var req setActiveRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	w, err := h.svc.GetWindow(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeWindow(ctx, w); err != nil {
		return err
	}
	w, err = h.svc.SetWindowActive(ctx, id, *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, w)
}

func (h *Handler) DeleteWindow(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	w, err := h.svc.GetWindow(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeWindow(ctx, w); err != nil {
		return err
	}
	if _, err := h.svc.DeleteWindow(ctx, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "schedule window deleted"})
}

type availabilityResponse struct {
	*Availability
	Message string `json:"message,omitempty"`
}

type availabilityQuery struct {
	Date string `query:"date" json:"date" validate:"required,isodate"`
}

func (h *Handler) Availability(c echo.Context) error {
	doctorID, err := pathUUID(c, "doctorId")
	if err != nil {
		return err
	}
	var q availabilityQuery
	if err := validation.BindAndValidate(c, &q); err != nil {
		return err
	}
	a, err := h.svc.Availability(c.Request().Context(), doctorID, q.Date)
	if err != nil {
		return err
	}
	if !a.HasSchedule {
		return c.JSON(http.StatusNotFound, availabilityResponse{
			Availability: a,
			Message:      fmt.Sprintf("the doctor has no schedule on %s", a.DayOfWeek),
		})
	}
	return c.JSON(http.StatusOK, availabilityResponse{Availability: a})
}

// -- Appointment Handlers --

type createAppointmentRequest struct {
	PatientID   string  `json:"patientId" validate:"required,uuid"`
	DoctorID    string  `json:"doctorId" validate:"required,uuid"`
	ScheduledAt string  `json:"scheduledAt" validate:"required"`
	Reason      *string `json:"reason" validate:"omitempty,max=500"`
	Notes       *string `json:"notes" validate:"omitempty,max=2000"`
}

// parseInstant accepts RFC 3339, or a local "YYYY-MM-DDTHH:MM[:SS]" which is
// read in the clinic timezone.
func parseInstant(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation("scheduledAt %q is not a valid date-time", s)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var req createAppointmentRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return apperr.Validation("patientId must be a UUID")
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return apperr.Validation("doctorId must be a UUID")
	}
	at, err := parseInstant(req.ScheduledAt, h.svc.Clock().Location())
	if err != nil {
		return err
	}
	in := BookInput{
		PatientID:   patientID,
		DoctorID:    doctorID,
		ScheduledAt: at,
		Reason:      req.Reason,
		Notes:       req.Notes,
	}

	ctx := c.Request().Context()
	if err := h.svc.AuthorizePatient(ctx, in.PatientID); err != nil {
		return err
	}
	a, err := h.svc.Book(ctx, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) parseFilter(c echo.Context) (AppointmentFilter, error) {
	var f AppointmentFilter
	for _, p := range []struct {
		name string
		dst  **uuid.UUID
	}{{"patientId", &f.PatientID}, {"doctorId", &f.DoctorID}} {
		if v := c.QueryParam(p.name); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				return f, apperr.Validation("%s must be a UUID", p.name)
			}
			*p.dst = &id
		}
	}
	if v := c.QueryParam("status"); v != "" {
		st, ok := ParseStatus(v)
		if !ok {
			return f, apperr.New(apperr.KindInvalidStatus, "unrecognized status %q", v)
		}
		f.Status = &st
	}
	clock := h.svc.Clock()
	if v := c.QueryParam("dateFrom"); v != "" {
		d, err := clock.ParseDate(v)
		if err != nil {
			return f, apperr.Validation("dateFrom: %v", err)
		}
		f.From = &d
	}
	if v := c.QueryParam("dateTo"); v != "" {
		d, err := clock.ParseDate(v)
		if err != nil {
			return f, apperr.Validation("dateTo: %v", err)
		}
		_, end := clock.DayBounds(d)
		f.To = &end
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return f, apperr.Validation("dateFrom must not be after dateTo")
	}
	return f, nil
}

func (h *Handler) ListAppointments(c echo.Context) error {
	f, err := h.parseFilter(c)
	if err != nil {
		return err
	}
	sort, err := pagination.SortFromContext(c, appointmentSortColumns, defaultAppointmentSort)
	if err != nil {
		return apperr.Validation("%v", err)
	}

	ctx := c.Request().Context()
	if a := ActorFromContext(ctx); !a.staff() {
		if f.PatientID == nil {
			return apperr.Validation("patientId is required")
		}
		if err := h.svc.AuthorizePatient(ctx, *f.PatientID); err != nil {
			return err
		}
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAppointments(ctx, f, pg, sort)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) loadAuthorized(c echo.Context, write bool) (*Appointment, error) {
	id, err := pathUUID(c, "id")
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	a, err := h.svc.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := h.svc.AuthorizeAppointment(ctx, a, write); err != nil {
		return nil, err
	}
	return a, nil
}

func (h *Handler) GetAppointment(c echo.Context) error {
	a, err := h.loadAuthorized(c, false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

type updateAppointmentRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
	Notes  *string `json:"notes" validate:"omitempty,max=2000"`
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	var req updateAppointmentRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	a, err := h.loadAuthorized(c, true)
	if err != nil {
		return err
	}
	a, err = h.svc.UpdateAppointmentDetails(c.Request().Context(), a.ID, req.Reason, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	var req statusRequest
	if err := validation.BindAndValidate(c, &req); err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	cur, err := h.svc.GetAppointment(ctx, id)
	if err != nil {
		return err
	}
	if err := h.svc.AuthorizeStatusChange(ctx, cur, req.Status); err != nil {
		return err
	}
	a, err := h.svc.ChangeStatus(ctx, id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "appointment deleted"})
}
