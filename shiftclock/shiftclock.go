// Package shiftclock maps wall-clock timestamps onto industrial production
// days and work shifts. The production day rolls over at a fixed cutover hour
// (not midnight), with a small grace offset so clock jitter right at the
// boundary does not flap records between two days.
package shiftclock

import (
	"fmt"
	"time"
)

type Clock struct {
	cutover      time.Duration // offset from midnight where the production day begins
	dayStartHour int
	dayEndHour   int
	dayLabel     string
	nightLabel   string
}

// New builds a clock with the given cutover hour, grace offset in seconds, and
// day-shift band [dayStart, dayEnd).
func New(cutoverHour, graceSeconds, dayStartHour, dayEndHour int) *Clock {
	return &Clock{
		cutover:      time.Duration(cutoverHour)*time.Hour + time.Duration(graceSeconds)*time.Second,
		dayStartHour: dayStartHour,
		dayEndHour:   dayEndHour,
		dayLabel:     fmt.Sprintf("DAY (%02d-%02d)", dayStartHour, dayEndHour),
		nightLabel:   fmt.Sprintf("NIGHT (%02d-%02d)", dayEndHour, dayStartHour),
	}
}

// Shift returns the shift label for t.
func (c *Clock) Shift(t time.Time) string {
	h := t.Hour()
	if h >= c.dayStartHour && h < c.dayEndHour {
		return c.dayLabel
	}
	return c.nightLabel
}

// ProductionDate returns the production day t belongs to, formatted
// YYYY-MM-DD. Timestamps before cutover+grace belong to the previous
// calendar date; a timestamp exactly at the boundary belongs to the new day.
func (c *Clock) ProductionDate(t time.Time) string {
	boundary := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).Add(c.cutover)
	if t.Before(boundary) {
		t = t.AddDate(0, 0, -1)
	}
	return t.Format("2006-01-02")
}

// At returns both the shift label and production date for t.
func (c *Clock) At(t time.Time) (shift, productionDate string) {
	return c.Shift(t), c.ProductionDate(t)
}
