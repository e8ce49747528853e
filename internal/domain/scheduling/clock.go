package scheduling

import (
	"fmt"
	"sort"
	"time"
)

// Clock projects instants onto the clinic's local calendar and cuts schedule
// windows into fixed blocks. Availability and booking both go through it, so
// they always agree on what a bookable block is.
type Clock struct {
	loc   *time.Location
	block int
}

// NewClock returns a Clock for loc with blocks of blockMinutes, which must
// divide a day.
func NewClock(loc *time.Location, blockMinutes int) (Clock, error) {
	if loc == nil {
		return Clock{}, fmt.Errorf("clock: nil location")
	}
	if blockMinutes <= 0 || minutesPerDay%blockMinutes != 0 {
		return Clock{}, fmt.Errorf("clock: block size %d does not divide a day", blockMinutes)
	}
	return Clock{loc: loc, block: blockMinutes}, nil
}

func (c Clock) Location() *time.Location { return c.loc }
func (c Clock) BlockMinutes() int        { return c.block }

// Local returns the local weekday and wall-clock minute of t.
func (c Clock) Local(t time.Time) (Weekday, TimeOfDay) {
	lt := t.In(c.loc)
	return WeekdayOf(lt.Weekday()), NewTimeOfDay(lt.Hour(), lt.Minute())
}

// ParseDate interprets "YYYY-MM-DD" as a local calendar date and returns its
// local midnight.
func (c Clock) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, s, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// DayBounds returns [local midnight, next local midnight) for the date of t.
// The span is not always 24h on DST transitions.
func (c Clock) DayBounds(t time.Time) (time.Time, time.Time) {
	lt := t.In(c.loc)
	start := time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// Blocks discretizes one window: a block starts at Start + k*size while it
// starts before End.
func (c Clock) Blocks(w *ScheduleWindow) []TimeOfDay {
	var out []TimeOfDay
	for t := w.StartTime; t < w.EndTime; t += TimeOfDay(c.block) {
		out = append(out, t)
	}
	return out
}

// BlockContaining returns the block of w that tod falls in.
func (c Clock) BlockContaining(w *ScheduleWindow, tod TimeOfDay) (TimeOfDay, bool) {
	if tod < w.StartTime || tod >= w.EndTime {
		return 0, false
	}
	return w.StartTime + (tod-w.StartTime)/TimeOfDay(c.block)*TimeOfDay(c.block), true
}

// DayBlocks is the block grid of a doctor for one local weekday.
type DayBlocks struct {
	Day     Weekday
	Windows []*ScheduleWindow
	Blocks  []TimeOfDay
	clock   Clock
}

// Contains reports whether tod starts a generated block.
func (d DayBlocks) Contains(tod TimeOfDay) bool {
	i := sort.Search(len(d.Blocks), func(i int) bool { return d.Blocks[i] >= tod })
	return i < len(d.Blocks) && d.Blocks[i] == tod
}

// Label returns the generated block an instant's local time falls in, if any.
func (d DayBlocks) Label(tod TimeOfDay) (TimeOfDay, bool) {
	for _, w := range d.Windows {
		if b, ok := d.clock.BlockContaining(w, tod); ok {
			return b, true
		}
	}
	return 0, false
}

// DeriveDayAndBlocks is the one place that maps an instant and a doctor's
// windows to a weekday and a sorted, de-duplicated set of block starts. Only
// active windows on the instant's local weekday contribute.
func (c Clock) DeriveDayAndBlocks(t time.Time, windows []*ScheduleWindow) DayBlocks {
	day, _ := c.Local(t)
	db := DayBlocks{Day: day, clock: c}
	seen := make(map[TimeOfDay]bool)
	for _, w := range windows {
		if !w.Active || w.DayOfWeek != day {
			continue
		}
		db.Windows = append(db.Windows, w)
		for _, b := range c.Blocks(w) {
			if !seen[b] {
				seen[b] = true
				db.Blocks = append(db.Blocks, b)
			}
		}
	}
	sort.Slice(db.Blocks, func(i, j int) bool { return db.Blocks[i] < db.Blocks[j] })
	return db
}
