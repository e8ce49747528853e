package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Weekday is the canonical lower-case English day name stored with a window.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdayOrder = map[Weekday]int{
	Monday: 0, Tuesday: 1, Wednesday: 2, Thursday: 3, Friday: 4, Saturday: 5, Sunday: 6,
}

var weekdayAliases = map[string]Weekday{
	"monday": Monday, "tuesday": Tuesday, "wednesday": Wednesday, "thursday": Thursday,
	"friday": Friday, "saturday": Saturday, "sunday": Sunday,
	"lunes": Monday, "martes": Tuesday, "miercoles": Wednesday, "jueves": Thursday,
	"viernes": Friday, "sabado": Saturday, "domingo": Sunday,
}

// foldAccents strips combining marks after NFD decomposition: "Miércoles" -> "Miercoles".
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ParseWeekday accepts English or Spanish day names in any case, with or
// without accents.
func ParseWeekday(s string) (Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(foldAccents(s)))
	if d, ok := weekdayAliases[key]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unknown day of week %q", s)
}

// WeekdayOf converts a time.Weekday.
func WeekdayOf(d time.Weekday) Weekday {
	switch d {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// Index orders weekdays Monday first.
func (d Weekday) Index() int {
	if i, ok := weekdayOrder[d]; ok {
		return i
	}
	return len(weekdayOrder)
}

// TimeOfDay is a wall-clock time as minutes since midnight.
type TimeOfDay int

const minutesPerDay = 24 * 60

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" with zero seconds.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04", s)
	if err != nil {
		t, err = time.Parse("15:04:05", s)
		if err != nil {
			return 0, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
		}
		if t.Second() != 0 {
			return 0, fmt.Errorf("invalid time of day %q, seconds must be zero", s)
		}
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ScanTime implements pgtype.TimeScanner for TIME columns.
func (t *TimeOfDay) ScanTime(v pgtype.Time) error {
	if !v.Valid {
		return fmt.Errorf("cannot scan NULL into TimeOfDay")
	}
	*t = TimeOfDay(v.Microseconds / int64(time.Minute/time.Microsecond))
	return nil
}

// TimeValue implements pgtype.TimeValuer.
func (t TimeOfDay) TimeValue() (pgtype.Time, error) {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}, nil
}

// ScheduleWindow is a weekly recurring interval [StartTime, EndTime) during
// which a doctor accepts appointments.
type ScheduleWindow struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctorId"`
	DayOfWeek Weekday   `json:"dayOfWeek"`
	StartTime TimeOfDay `json:"startTime"`
	EndTime   TimeOfDay `json:"endTime"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Overlaps compares half-open intervals, so back-to-back windows do not overlap.
func (w *ScheduleWindow) Overlaps(o *ScheduleWindow) bool {
	return w.DayOfWeek == o.DayOfWeek && w.StartTime < o.EndTime && o.StartTime < w.EndTime
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

var statusAliases = map[string]Status{
	"pending": StatusPending, "confirmed": StatusConfirmed,
	"cancelled": StatusCancelled, "canceled": StatusCancelled, "completed": StatusCompleted,
	"pendiente": StatusPending, "confirmada": StatusConfirmed,
	"cancelada": StatusCancelled, "finalizada": StatusCompleted,
}

// ParseStatus recognizes the four statuses, also in their Spanish form.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

type Appointment struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patientId"`
	DoctorID    uuid.UUID `json:"doctorId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      Status    `json:"status"`
	Reason      *string   `json:"reason,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AppointmentFilter narrows appointment listings. Nil fields do not filter.
// From is inclusive, To exclusive.
type AppointmentFilter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	From      *time.Time
	To        *time.Time
}
