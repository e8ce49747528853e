package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinic/clinic/pkg/pagination"
)

type WindowRepository interface {
	Create(ctx context.Context, w *ScheduleWindow) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScheduleWindow, error)
	// ListByDoctor orders by weekday (Monday first) then start time.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*ScheduleWindow, error)
	ListActive(ctx context.Context, doctorID uuid.UUID, day Weekday) ([]*ScheduleWindow, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*ScheduleWindow, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// LockDoctor serializes schedule writes for one doctor until the
	// surrounding transaction ends.
	LockDoctor(ctx context.Context, doctorID uuid.UUID) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// LockByID reads the row with FOR UPDATE; call it inside a transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// FindConflict returns the non-cancelled appointment of doctorID at
	// exactly at, or nil.
	FindConflict(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error)
	// ListForDoctorBetween returns non-cancelled appointments in [from, to).
	ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error)
	List(ctx context.Context, f AppointmentFilter, p pagination.Params, sort pagination.Sort) ([]*Appointment, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, reason, notes *string) (*Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// appointmentSortColumns whitelists the public sort fields.
var appointmentSortColumns = map[string]string{
	"scheduled_at": "scheduled_at",
	"scheduledAt":  "scheduled_at",
	"created_at":   "created_at",
	"createdAt":    "created_at",
	"status":       "status",
}

var defaultAppointmentSort = pagination.Sort{Column: "scheduled_at"}
