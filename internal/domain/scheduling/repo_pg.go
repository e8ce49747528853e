package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/pkg/pagination"
)

// =========== Window Repository ===========

type windowRepoPG struct{ pool *pgxpool.Pool }

func NewWindowRepoPG(pool *pgxpool.Pool) WindowRepository { return &windowRepoPG{pool: pool} }

func (r *windowRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const windowCols = `id, doctor_id, day_of_week, start_time, end_time, active, created_at`

const weekdayOrderSQL = `array_position(ARRAY['monday','tuesday','wednesday','thursday','friday','saturday','sunday'], day_of_week)`

func scanWindow(row pgx.Row) (*ScheduleWindow, error) {
	var w ScheduleWindow
	err := row.Scan(&w.ID, &w.DoctorID, &w.DayOfWeek, &w.StartTime, &w.EndTime, &w.Active, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func collectWindows(rows pgx.Rows) ([]*ScheduleWindow, error) {
	defer rows.Close()
	var out []*ScheduleWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *windowRepoPG) Create(ctx context.Context, w *ScheduleWindow) error {
	w.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO schedule_windows (id, doctor_id, day_of_week, start_time, end_time, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		w.ID, w.DoctorID, w.DayOfWeek, w.StartTime, w.EndTime, w.Active).Scan(&w.CreatedAt)
	if db.IsConstraintViolation(err, db.CodeForeignKeyViolation, "") {
		return apperr.Validation("doctor %s does not exist", w.DoctorID)
	}
	if err != nil {
		return fmt.Errorf("insert schedule window: %w", err)
	}
	return nil
}

func (r *windowRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ScheduleWindow, error) {
	w, err := scanWindow(r.conn(ctx).QueryRow(ctx, `SELECT `+windowCols+` FROM schedule_windows WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("schedule window %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule window: %w", err)
	}
	return w, nil
}

func (r *windowRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*ScheduleWindow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+windowCols+` FROM schedule_windows
		WHERE doctor_id = $1
		ORDER BY `+weekdayOrderSQL+`, start_time, end_time, id`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list schedule windows: %w", err)
	}
	return collectWindows(rows)
}

func (r *windowRepoPG) ListActive(ctx context.Context, doctorID uuid.UUID, day Weekday) ([]*ScheduleWindow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+windowCols+` FROM schedule_windows
		WHERE doctor_id = $1 AND day_of_week = $2 AND active
		ORDER BY start_time, id`, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("list active windows: %w", err)
	}
	return collectWindows(rows)
}

func (r *windowRepoPG) SetActive(ctx context.Context, id uuid.UUID, active bool) (*ScheduleWindow, error) {
	w, err := scanWindow(r.conn(ctx).QueryRow(ctx, `
		UPDATE schedule_windows SET active = $2 WHERE id = $1
		RETURNING `+windowCols, id, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("schedule window %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update schedule window: %w", err)
	}
	return w, nil
}

func (r *windowRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM schedule_windows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete schedule window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("schedule window %s not found", id)
	}
	return nil
}

func (r *windowRepoPG) LockDoctor(ctx context.Context, doctorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "schedule:"+doctorID.String())
	if err != nil {
		return fmt.Errorf("lock doctor schedule: %w", err)
	}
	return nil
}

// =========== Appointment Repository ===========

// slotIndex is the partial unique index on (doctor_id, scheduled_at) for
// non-cancelled rows.
const slotIndex = "appointments_doctor_slot_active"

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

const apptCols = `id, patient_id, doctor_id, scheduled_at, status, reason, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.ScheduledAt, &a.Status,
		&a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	defer rows.Close()
	var out []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusPending
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, scheduled_at, status, reason, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.ScheduledAt, a.Status, a.Reason, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	switch {
	case db.IsConstraintViolation(err, db.CodeUniqueViolation, slotIndex):
		return apperr.New(apperr.KindSlotAlreadyBooked, "the doctor already has an appointment at %s", a.ScheduledAt.Format(time.RFC3339))
	case db.IsConstraintViolation(err, db.CodeForeignKeyViolation, ""):
		return apperr.NotFound("patient or doctor does not exist")
	case err != nil:
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepoPG) get(ctx context.Context, query string, id uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.get(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1`, id)
}

func (r *appointmentRepoPG) LockByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.get(ctx, `SELECT `+apptCols+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
}

func (r *appointmentRepoPG) FindConflict(ctx context.Context, doctorID uuid.UUID, at time.Time) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE doctor_id = $1 AND scheduled_at = $2 AND status <> $3
		LIMIT 1`, doctorID, at, StatusCancelled))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conflicting appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) ListForDoctorBetween(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointments
		WHERE doctor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3 AND status <> $4
		ORDER BY scheduled_at, id`, doctorID, from, to, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return collectAppointments(rows)
}

// whereClause renders the filter as SQL conditions with positional args.
func (f AppointmentFilter) whereClause() (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.DoctorID != nil {
		add("doctor_id = $%d", *f.DoctorID)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.From != nil {
		add("scheduled_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("scheduled_at < $%d", *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *appointmentRepoPG) List(ctx context.Context, f AppointmentFilter, p pagination.Params, sort pagination.Sort) ([]*Appointment, int, error) {
	where, args := f.whereClause()

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	// sort.Column comes from appointmentSortColumns, never from the request.
	query := `SELECT ` + apptCols + ` FROM appointments` + where +
		` ORDER BY ` + sort.SQL() + `, id ` + p.SQL()
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	items, err := collectAppointments(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan appointments: %w", err)
	}
	return items, total, nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+apptCols, id, status))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperr.NotFound("appointment %s not found", id)
	case db.IsConstraintViolation(err, db.CodeUniqueViolation, slotIndex):
		return nil, apperr.New(apperr.KindSlotAlreadyBooked, "the slot has been booked again")
	case err != nil:
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) UpdateDetails(ctx context.Context, id uuid.UUID, reason, notes *string) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments
		SET reason = COALESCE($2, reason), notes = COALESCE($3, notes), updated_at = NOW()
		WHERE id = $1
		RETURNING `+apptCols, id, reason, notes))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	return a, nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("appointment %s not found", id)
	}
	return nil
}
