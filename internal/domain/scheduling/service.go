package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/cache"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

type Service struct {
	windows      WindowRepository
	appointments AppointmentRepository
	directory    identity.Directory
	tx           db.Transactor
	clock        Clock
	cache        cache.Store
	cacheTTL     time.Duration
	logger       zerolog.Logger
}

type Option func(*Service)

// WithCache enables cache-aside availability reads. A ttl of zero disables it.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache = store
			s.cacheTTL = ttl
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func NewService(windows WindowRepository, appts AppointmentRepository, dir identity.Directory, tx db.Transactor, clock Clock, opts ...Option) *Service {
	s := &Service{
		windows:      windows,
		appointments: appts,
		directory:    dir,
		tx:           tx,
		clock:        clock,
		logger:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Clock() Clock { return s.clock }

// -- Schedule windows --

type CreateWindowInput struct {
	DoctorID  uuid.UUID
	DayOfWeek string
	StartTime string
	EndTime   string
}

func (s *Service) CreateWindow(ctx context.Context, in CreateWindowInput) (*ScheduleWindow, error) {
	if in.DoctorID == uuid.Nil {
		return nil, apperr.Validation("doctorId is required")
	}
	day, err := ParseWeekday(in.DayOfWeek)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	start, err := ParseTimeOfDay(in.StartTime)
	if err != nil {
		return nil, apperr.Validation("startTime: %v", err)
	}
	end, err := ParseTimeOfDay(in.EndTime)
	if err != nil {
		return nil, apperr.Validation("endTime: %v", err)
	}
	if start >= end {
		return nil, apperr.Validation("startTime %s must be before endTime %s", start, end)
	}

	w := &ScheduleWindow{DoctorID: in.DoctorID, DayOfWeek: day, StartTime: start, EndTime: end, Active: true}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.directory.IsDoctor(ctx, in.DoctorID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Validation("user %s is not a doctor", in.DoctorID)
		}
		if err := s.checkOverlap(ctx, w); err != nil {
			return err
		}
		return s.windows.Create(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, w.DoctorID)
	return w, nil
}

// checkOverlap must run inside a transaction; it holds the doctor lock until
// commit so two concurrent creates cannot both pass.
func (s *Service) checkOverlap(ctx context.Context, w *ScheduleWindow) error {
	if err := s.windows.LockDoctor(ctx, w.DoctorID); err != nil {
		return err
	}
	existing, err := s.windows.ListActive(ctx, w.DoctorID, w.DayOfWeek)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID != w.ID && w.Overlaps(other) {
			return apperr.New(apperr.KindScheduleOverlap,
				"window %s-%s overlaps the active window %s-%s on %s",
				w.StartTime, w.EndTime, other.StartTime, other.EndTime, w.DayOfWeek)
		}
	}
	return nil
}

func (s *Service) GetWindow(ctx context.Context, id uuid.UUID) (*ScheduleWindow, error) {
	return s.windows.GetByID(ctx, id)
}

// ListWindows returns the doctor's windows, possibly none.
func (s *Service) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]*ScheduleWindow, error) {
	return s.windows.ListByDoctor(ctx, doctorID)
}

// SetWindowActive disables or re-enables a window. Re-enabling runs the
// overlap check against the doctor's other active windows.
func (s *Service) SetWindowActive(ctx context.Context, id uuid.UUID, active bool) (*ScheduleWindow, error) {
	var out *ScheduleWindow
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		w, err := s.windows.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if w.Active == active {
			out = w
			return nil
		}
		if active {
			if err := s.checkOverlap(ctx, w); err != nil {
				return err
			}
		}
		out, err = s.windows.SetActive(ctx, id, active)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.DoctorID)
	return out, nil
}

// DeleteWindow hard-deletes a window. Appointments already booked in it are
// kept.
func (s *Service) DeleteWindow(ctx context.Context, id uuid.UUID) (*ScheduleWindow, error) {
	w, err := s.windows.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.windows.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.invalidate(ctx, w.DoctorID)
	return w, nil
}

// -- Availability --

// Availability computes free and occupied blocks for doctorID on a local
// calendar date given as YYYY-MM-DD.
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date string) (*Availability, error) {
	day, err := s.clock.ParseDate(date)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	key, cacheable := s.availabilityKey(ctx, doctorID, date)
	if cacheable {
		if a, ok := s.cachedAvailability(ctx, key); ok {
			return a, nil
		}
	}

	weekday, _ := s.clock.Local(day)
	windows, err := s.windows.ListActive(ctx, doctorID, weekday)
	if err != nil {
		return nil, err
	}

	var booked []time.Time
	if len(windows) > 0 {
		from, to := s.clock.DayBounds(day)
		appts, err := s.appointments.ListForDoctorBetween(ctx, doctorID, from, to)
		if err != nil {
			return nil, err
		}
		for _, a := range appts {
			booked = append(booked, a.ScheduledAt)
		}
	}

	a := ComputeAvailability(s.clock, doctorID, day, windows, booked)
	if cacheable {
		s.storeAvailability(ctx, key, a)
	}
	return a, nil
}

type cachedAvailability struct {
	Availability
	HasSchedule bool `json:"hasSchedule"`
}

func generationKey(doctorID uuid.UUID) string {
	return "availability:gen:" + doctorID.String()
}

// availabilityKey reads the doctor's generation before anything else is
// computed, so a write that lands mid-computation makes the stored entry
// unreachable instead of stale.
func (s *Service) availabilityKey(ctx context.Context, doctorID uuid.UUID, date string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	gen, err := s.cache.Counter(ctx, generationKey(doctorID))
	if err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("availability cache unavailable")
		return "", false
	}
	return fmt.Sprintf("availability:%s:%d:%s", doctorID, gen, date), true
}

func (s *Service) cachedAvailability(ctx context.Context, key string) (*Availability, bool) {
	b, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("availability cache read failed")
		}
		return nil, false
	}
	var c cachedAvailability
	if err := json.Unmarshal(b, &c); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable availability cache entry")
		return nil, false
	}
	c.Availability.HasSchedule = c.HasSchedule
	return &c.Availability, true
}

func (s *Service) storeAvailability(ctx context.Context, key string, a *Availability) {
	b, err := json.Marshal(cachedAvailability{Availability: *a, HasSchedule: a.HasSchedule})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, b, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("availability cache write failed")
	}
}

// invalidate bumps the doctor's cache generation after a committed write.
func (s *Service) invalidate(ctx context.Context, doctorID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(ctx, generationKey(doctorID)); err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", doctorID.String()).Msg("availability cache invalidation failed")
	}
}

// -- Appointments --

type BookInput struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	ScheduledAt time.Time
	Reason      *string
	Notes       *string
}

// Book creates a pending appointment. Every check and the insert share one
// transaction; the partial unique index on (doctor_id, scheduled_at) settles
// races between concurrent bookings of the same slot.
func (s *Service) Book(ctx context.Context, in BookInput) (*Appointment, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patientId is required")
	}
	if in.DoctorID == uuid.Nil {
		return nil, apperr.Validation("doctorId is required")
	}
	if in.ScheduledAt.IsZero() {
		return nil, apperr.Validation("scheduledAt is required")
	}

	at := in.ScheduledAt.UTC()
	a := &Appointment{
		PatientID:   in.PatientID,
		DoctorID:    in.DoctorID,
		ScheduledAt: at,
		Status:      StatusPending,
		Reason:      in.Reason,
		Notes:       in.Notes,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.directory.IsDoctor(ctx, in.DoctorID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.KindInvalidDoctor, "user %s is not a doctor", in.DoctorID)
		}
		exists, err := s.directory.PatientExists(ctx, in.PatientID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("patient %s not found", in.PatientID)
		}

		day, tod := s.clock.Local(at)
		windows, err := s.windows.ListActive(ctx, in.DoctorID, day)
		if err != nil {
			return err
		}
		grid := s.clock.DeriveDayAndBlocks(at, windows)
		if at.Second() != 0 || at.Nanosecond() != 0 || !grid.Contains(tod) {
			if b, ok := grid.Label(tod); ok && grid.Contains(b) {
				return apperr.New(apperr.KindOutsideScheduledHours,
					"%s is not on a %d-minute block boundary of the doctor's schedule; the block containing it starts at %s",
					at.In(s.clock.loc).Format("15:04:05"), s.clock.BlockMinutes(), b)
			}
			return apperr.New(apperr.KindOutsideScheduledHours,
				"the doctor has no bookable %d-minute block at %s on %s",
				s.clock.BlockMinutes(), tod, day)
		}

		conflict, err := s.appointments.FindConflict(ctx, in.DoctorID, at)
		if err != nil {
			return err
		}
		if conflict != nil {
			return apperr.New(apperr.KindSlotAlreadyBooked,
				"the doctor already has an appointment at %s on %s", tod, day)
		}
		return s.appointments.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, a.DoctorID)
	return a, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, f AppointmentFilter, p pagination.Params, sort pagination.Sort) ([]*Appointment, int, error) {
	if sort.Column == "" {
		sort = defaultAppointmentSort
	}
	return s.appointments.List(ctx, f, p, sort)
}

func (s *Service) UpdateAppointmentDetails(ctx context.Context, id uuid.UUID, reason, notes *string) (*Appointment, error) {
	if reason == nil && notes == nil {
		return nil, apperr.Validation("nothing to update: provide reason or notes")
	}
	return s.appointments.UpdateDetails(ctx, id, reason, notes)
}

// ChangeStatus moves an appointment along the lifecycle under a row lock.
// Rejected transitions leave the stored row untouched.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	to, ok := ParseStatus(status)
	if !ok {
		return nil, apperr.New(apperr.KindInvalidStatus,
			"unrecognized status %q: expected pending, confirmed, cancelled or completed", status)
	}

	var out *Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cur, err := s.appointments.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if err := CheckTransition(cur.Status, to); err != nil {
			return err
		}
		if cur.Status == to {
			out = cur
			return nil
		}
		out, err = s.appointments.UpdateStatus(ctx, id, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, out.DoctorID)
	return out, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, a.DoctorID)
	return nil
}
