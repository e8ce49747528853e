package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Availability is the free/occupied block split of one doctor on one date.
type Availability struct {
	DoctorID     uuid.UUID `json:"doctorId"`
	Date         string    `json:"date"`
	DayOfWeek    Weekday   `json:"dayOfWeek"`
	BlockMinutes int       `json:"blockMinutes"`
	Available    []string  `json:"available"`
	Occupied     []string  `json:"occupied"`
	HasSchedule  bool      `json:"-"`
}

// ComputeAvailability splits the generated blocks of date into available and
// occupied. Each booked instant is labelled with the block it falls in;
// instants outside every generated block are ignored, so the two lists always
// partition the grid.
func ComputeAvailability(c Clock, doctorID uuid.UUID, date time.Time, windows []*ScheduleWindow, booked []time.Time) *Availability {
	grid := c.DeriveDayAndBlocks(date, windows)

	a := &Availability{
		DoctorID:     doctorID,
		Date:         date.In(c.Location()).Format(time.DateOnly),
		DayOfWeek:    grid.Day,
		BlockMinutes: c.BlockMinutes(),
		Available:    []string{},
		Occupied:     []string{},
		HasSchedule:  len(grid.Blocks) > 0,
	}

	dayStart, dayEnd := c.DayBounds(date)
	taken := make(map[TimeOfDay]bool)
	for _, at := range booked {
		if at.Before(dayStart) || !at.Before(dayEnd) {
			continue
		}
		_, tod := c.Local(at)
		if b, ok := grid.Label(tod); ok {
			taken[b] = true
		}
	}

	for _, b := range grid.Blocks {
		if taken[b] {
			a.Occupied = append(a.Occupied, b.String())
		} else {
			a.Available = append(a.Available, b.String())
		}
	}
	return a
}
