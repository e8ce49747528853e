package scheduling

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clinic/clinic/internal/platform/apperr"
)

func TestParseWeekday(t *testing.T) {
	tests := map[string]Weekday{
		"monday":    Monday,
		"Monday":    Monday,
		" LUNES ":   Monday,
		"Miércoles": Wednesday,
		"miercoles": Wednesday,
		"Sábado":    Saturday,
		"domingo":   Sunday,
		"Thursday":  Thursday,
	}
	for in, want := range tests {
		got, err := ParseWeekday(in)
		if err != nil {
			t.Errorf("ParseWeekday(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseWeekday(%q) = %s, want %s", in, got, want)
		}
	}
	for _, bad := range []string{"", "mon", "funday"} {
		if _, err := ParseWeekday(bad); err == nil {
			t.Errorf("ParseWeekday(%q) should fail", bad)
		}
	}
}

func TestWeekdayOfAndIndex(t *testing.T) {
	if WeekdayOf(time.Sunday) != Sunday || WeekdayOf(time.Wednesday) != Wednesday {
		t.Error("WeekdayOf mismatch")
	}
	if Monday.Index() != 0 || Sunday.Index() != 6 {
		t.Error("Monday should sort first and Sunday last")
	}
	if Weekday("x").Index() <= Sunday.Index() {
		t.Error("unknown weekdays sort last")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"08:00", "08:00", false},
		{"8:30", "08:30", false},
		{"23:59", "23:59", false},
		{"14:00:00", "14:00", false},
		{"14:00:30", "", true},
		{"24:00", "", true},
		{"noon", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTimeOfDay(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got.String() != tt.want {
			t.Errorf("ParseTimeOfDay(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestTimeOfDay_JSONAndPG(t *testing.T) {
	w := ScheduleWindow{StartTime: NewTimeOfDay(8, 0), EndTime: NewTimeOfDay(12, 30)}
	b, err := json.Marshal(w)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	json.Unmarshal(b, &m)
	if m["startTime"] != "08:00" || m["endTime"] != "12:30" {
		t.Errorf("unexpected encoding: %s", b)
	}

	v, _ := NewTimeOfDay(9, 30).TimeValue()
	var back TimeOfDay
	if err := back.ScanTime(v); err != nil {
		t.Fatal(err)
	}
	if back != NewTimeOfDay(9, 30) {
		t.Errorf("round trip through pgtype.Time gave %s", back)
	}
	if err := back.ScanTime(pgtype.Time{}); err == nil {
		t.Error("expected error scanning NULL")
	}
}

func TestScheduleWindow_Overlaps(t *testing.T) {
	w := func(day Weekday, s, e string) *ScheduleWindow {
		st, _ := ParseTimeOfDay(s)
		en, _ := ParseTimeOfDay(e)
		return &ScheduleWindow{DayOfWeek: day, StartTime: st, EndTime: en}
	}
	base := w(Monday, "08:00", "12:00")
	tests := []struct {
		name  string
		other *ScheduleWindow
		want  bool
	}{
		{"inside", w(Monday, "09:00", "10:00"), true},
		{"straddles start", w(Monday, "07:00", "08:30"), true},
		{"covers", w(Monday, "07:00", "13:00"), true},
		{"touches end", w(Monday, "12:00", "13:00"), false},
		{"touches start", w(Monday, "06:00", "08:00"), false},
		{"other day", w(Tuesday, "09:00", "10:00"), false},
	}
	for _, tt := range tests {
		if got := base.Overlaps(tt.other); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
		if got := tt.other.Overlaps(base); got != tt.want {
			t.Errorf("%s: Overlaps is not symmetric", tt.name)
		}
	}
}

func TestParseStatus(t *testing.T) {
	tests := map[string]Status{
		"pending":    StatusPending,
		"CONFIRMED":  StatusConfirmed,
		"canceled":   StatusCancelled,
		"cancelada":  StatusCancelled,
		"finalizada": StatusCompleted,
	}
	for in, want := range tests {
		if got, ok := ParseStatus(in); !ok || got != want {
			t.Errorf("ParseStatus(%q) = %s, %v", in, got, ok)
		}
	}
	if _, ok := ParseStatus("archived"); ok {
		t.Error("archived is not a status")
	}
}

func TestCheckTransition(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCompleted}: true,
		{StatusConfirmed, StatusCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			err := CheckTransition(from, to)
			switch {
			case from == to || allowed[[2]Status{from, to}]:
				if err != nil {
					t.Errorf("%s -> %s: unexpected error %v", from, to, err)
				}
			default:
				if !apperr.IsKind(err, apperr.KindInvalidTransition) {
					t.Errorf("%s -> %s: expected InvalidTransition, got %v", from, to, err)
				}
			}
		}
	}
	if err := CheckTransition(StatusPending, Status("archived")); !apperr.IsKind(err, apperr.KindInvalidStatus) {
		t.Errorf("expected InvalidStatus, got %v", err)
	}
	if !IsTerminal(StatusCancelled) || !IsTerminal(StatusCompleted) || IsTerminal(StatusPending) {
		t.Error("IsTerminal mismatch")
	}
}

func TestCheckTransition_FromTerminalStatus(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusCancelled} {
		err := CheckTransition(from, StatusConfirmed)
		if !apperr.IsKind(err, apperr.KindInvalidTransition) {
			t.Fatalf("%s: expected InvalidTransition, got %v", from, err)
		}
		if !strings.Contains(err.Error(), "already "+string(from)) {
			t.Errorf("%s: message should name the terminal status, got %q", from, err)
		}
	}
	err := CheckTransition(StatusPending, StatusCompleted)
	if !apperr.IsKind(err, apperr.KindInvalidTransition) || strings.Contains(err.Error(), "already") {
		t.Errorf("pending -> completed: got %v", err)
	}
}
