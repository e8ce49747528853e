package scheduling

import (
	"context"

	"github.com/google/uuid"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/auth"
)

// Actor is the authenticated caller as seen by ownership checks.
type Actor struct {
	ID     uuid.UUID
	Admin  bool
	Doctor bool
	Parent bool
}

func ActorFromContext(ctx context.Context) Actor {
	id, _ := uuid.Parse(auth.UserIDFromContext(ctx))
	a := Actor{ID: id, Admin: auth.IsAdmin(ctx)}
	for _, r := range auth.RolesFromContext(ctx) {
		switch r {
		case auth.RoleDoctor:
			a.Doctor = true
		case auth.RoleParent:
			a.Parent = true
		}
	}
	return a
}

// staff callers see every appointment.
func (a Actor) staff() bool { return a.Admin || a.Doctor }

// ResolveWindowDoctor decides whose window is being created. Doctors create
// their own; admins must name the doctor.
func ResolveWindowDoctor(ctx context.Context, requested *uuid.UUID) (uuid.UUID, error) {
	a := ActorFromContext(ctx)
	switch {
	case a.Admin:
		if requested == nil {
			return uuid.Nil, apperr.Validation("doctorId is required when an administrator creates a schedule")
		}
		return *requested, nil
	case a.Doctor && a.ID != uuid.Nil:
		if requested != nil && *requested != a.ID {
			return uuid.Nil, apperr.New(apperr.KindForbidden, "doctors can only create their own schedule")
		}
		return a.ID, nil
	default:
		return uuid.Nil, apperr.New(apperr.KindForbidden, "only doctors can create schedules")
	}
}

// AuthorizeWindow allows admins and the owning doctor.
func AuthorizeWindow(ctx context.Context, w *ScheduleWindow) error {
	a := ActorFromContext(ctx)
	if a.Admin || (a.Doctor && a.ID == w.DoctorID) {
		return nil
	}
	return apperr.New(apperr.KindForbidden, "schedule window belongs to another doctor")
}

// AuthorizePatient allows staff and the parent who registered the patient.
func (s *Service) AuthorizePatient(ctx context.Context, patientID uuid.UUID) error {
	a := ActorFromContext(ctx)
	if a.staff() {
		return nil
	}
	if !a.Parent || a.ID == uuid.Nil {
		return apperr.New(apperr.KindForbidden, "not allowed to act for this patient")
	}
	p, err := s.directory.GetPatient(ctx, patientID)
	if err != nil {
		return err
	}
	if p.ParentID == nil || *p.ParentID != a.ID {
		return apperr.New(apperr.KindForbidden, "patient %s is not registered by the caller", patientID)
	}
	return nil
}

// AuthorizeAppointment allows admins, the appointment's doctor, other doctors
// for reads, and the patient's parent.
func (s *Service) AuthorizeAppointment(ctx context.Context, appt *Appointment, write bool) error {
	a := ActorFromContext(ctx)
	switch {
	case a.Admin:
		return nil
	case a.Doctor && (!write || a.ID == appt.DoctorID):
		return nil
	case a.Doctor:
		return apperr.New(apperr.KindForbidden, "appointment belongs to another doctor")
	}
	return s.AuthorizePatient(ctx, appt.PatientID)
}

// AuthorizeStatusChange adds to AuthorizeAppointment that parents may only
// cancel.
func (s *Service) AuthorizeStatusChange(ctx context.Context, appt *Appointment, status string) error {
	if err := s.AuthorizeAppointment(ctx, appt, true); err != nil {
		return err
	}
	a := ActorFromContext(ctx)
	if a.staff() {
		return nil
	}
	if to, ok := ParseStatus(status); ok && to != StatusCancelled {
		return apperr.New(apperr.KindForbidden, "parents can only cancel appointments")
	}
	return nil
}
