package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewClock_Validation(t *testing.T) {
	if _, err := NewClock(nil, 30); err == nil {
		t.Error("expected error for nil location")
	}
	for _, n := range []int{0, -30, 7, 45} {
		if _, err := NewClock(time.UTC, n); err == nil {
			t.Errorf("expected error for block size %d", n)
		}
	}
	if _, err := NewClock(time.UTC, 60); err != nil {
		t.Errorf("60 minute blocks should be valid: %v", err)
	}
}

func TestClock_LocalUsesLocation(t *testing.T) {
	c, _ := NewClock(laPaz(t), 30)

	// 02:30 UTC on a Tuesday is still Monday evening in La Paz (UTC-4).
	day, tod := c.Local(time.Date(2024, 6, 4, 2, 30, 0, 0, time.UTC))
	if day != Monday || tod.String() != "22:30" {
		t.Errorf("got %s %s, want monday 22:30", day, tod)
	}
}

func TestClock_DayBoundsAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	c, _ := NewClock(ny, 30)
	d, err := c.ParseDate("2024-03-10")
	if err != nil {
		t.Fatal(err)
	}
	start, end := c.DayBounds(d)
	if end.Sub(start) != 23*time.Hour {
		t.Errorf("spring-forward day should last 23h, got %s", end.Sub(start))
	}
	if _, err := c.ParseDate("2024-13-01"); err == nil {
		t.Error("expected invalid date error")
	}
}

func TestClock_Blocks(t *testing.T) {
	c, _ := NewClock(time.UTC, 30)
	w := &ScheduleWindow{DayOfWeek: Monday, StartTime: NewTimeOfDay(8, 0), EndTime: NewTimeOfDay(9, 45), Active: true}

	got := c.Blocks(w)
	want := []TimeOfDay{NewTimeOfDay(8, 0), NewTimeOfDay(8, 30), NewTimeOfDay(9, 0), NewTimeOfDay(9, 30)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("block %d = %s, want %s", i, got[i], want[i])
		}
	}

	if b, ok := c.BlockContaining(w, NewTimeOfDay(9, 40)); !ok || b != NewTimeOfDay(9, 30) {
		t.Errorf("BlockContaining(09:40) = %s, %v", b, ok)
	}
	if _, ok := c.BlockContaining(w, NewTimeOfDay(9, 45)); ok {
		t.Error("window end is exclusive")
	}
}

func TestDeriveDayAndBlocks(t *testing.T) {
	c, _ := NewClock(time.UTC, 30)
	windows := []*ScheduleWindow{
		{DayOfWeek: Monday, StartTime: NewTimeOfDay(10, 0), EndTime: NewTimeOfDay(11, 0), Active: true},
		{DayOfWeek: Monday, StartTime: NewTimeOfDay(8, 0), EndTime: NewTimeOfDay(9, 0), Active: true},
		{DayOfWeek: Monday, StartTime: NewTimeOfDay(12, 0), EndTime: NewTimeOfDay(13, 0), Active: false},
		{DayOfWeek: Tuesday, StartTime: NewTimeOfDay(8, 0), EndTime: NewTimeOfDay(9, 0), Active: true},
	}
	grid := c.DeriveDayAndBlocks(time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC), windows)

	if grid.Day != Monday {
		t.Fatalf("expected monday, got %s", grid.Day)
	}
	var labels []string
	for _, b := range grid.Blocks {
		labels = append(labels, b.String())
	}
	if !equalStrings(labels, []string{"08:00", "08:30", "10:00", "10:30"}) {
		t.Errorf("blocks = %v", labels)
	}
	if !grid.Contains(NewTimeOfDay(10, 30)) || grid.Contains(NewTimeOfDay(12, 0)) || grid.Contains(NewTimeOfDay(8, 15)) {
		t.Error("Contains mismatch")
	}
	if b, ok := grid.Label(NewTimeOfDay(8, 45)); !ok || b.String() != "08:30" {
		t.Errorf("Label(08:45) = %s, %v", b, ok)
	}
	if _, ok := grid.Label(NewTimeOfDay(9, 30)); ok {
		t.Error("09:30 is between windows")
	}
}

func TestComputeAvailability_LabelsOffGridBookings(t *testing.T) {
	c, _ := NewClock(time.UTC, 30)
	windows := []*ScheduleWindow{
		{DayOfWeek: Monday, StartTime: NewTimeOfDay(8, 0), EndTime: NewTimeOfDay(10, 0), Active: true},
	}
	date := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	booked := []time.Time{
		time.Date(2024, 6, 3, 8, 10, 0, 0, time.UTC), // inside 08:00
		time.Date(2024, 6, 3, 8, 20, 0, 0, time.UTC), // same block
		time.Date(2024, 6, 3, 11, 0, 0, 0, time.UTC), // outside every window
		time.Date(2024, 6, 4, 8, 30, 0, 0, time.UTC), // next day
	}

	a := ComputeAvailability(c, uuid.New(), date, windows, booked)
	if !equalStrings(a.Occupied, []string{"08:00"}) {
		t.Errorf("occupied = %v", a.Occupied)
	}
	if !equalStrings(a.Available, []string{"08:30", "09:00", "09:30"}) {
		t.Errorf("available = %v", a.Available)
	}
	if a.Date != "2024-06-03" || a.BlockMinutes != 30 {
		t.Errorf("unexpected metadata %+v", a)
	}
}

func TestComputeAvailability_BlockSize60(t *testing.T) {
	c, _ := NewClock(time.UTC, 60)
	windows := []*ScheduleWindow{
		{DayOfWeek: Monday, StartTime: NewTimeOfDay(8, 0), EndTime: NewTimeOfDay(12, 0), Active: true},
	}
	a := ComputeAvailability(c, uuid.New(), time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), windows, nil)
	if len(a.Available) != 4 || len(a.Occupied) != 0 {
		t.Errorf("expected 4 hourly blocks, got %+v", a)
	}
}
