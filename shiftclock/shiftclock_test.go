package shiftclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mk(h, m, s int) time.Time {
	return time.Date(2026, 3, 10, h, m, s, 0, time.UTC)
}

func TestProductionDateCutover(t *testing.T) {
	c := New(6, 30, 6, 18)

	// Exactly at cutover + grace: new production day.
	assert.Equal(t, "2026-03-10", c.ProductionDate(mk(6, 0, 30)))
	// One second before: still the previous day.
	assert.Equal(t, "2026-03-09", c.ProductionDate(mk(6, 0, 29)))
	// Well past cutover.
	assert.Equal(t, "2026-03-10", c.ProductionDate(mk(14, 0, 0)))
	// Just after midnight belongs to the previous production day.
	assert.Equal(t, "2026-03-09", c.ProductionDate(mk(0, 15, 0)))
}

func TestShiftBands(t *testing.T) {
	c := New(6, 30, 6, 18)

	assert.Equal(t, "DAY (06-18)", c.Shift(mk(6, 0, 0)))
	assert.Equal(t, "DAY (06-18)", c.Shift(mk(17, 59, 59)))
	assert.Equal(t, "NIGHT (18-06)", c.Shift(mk(18, 0, 0)))
	assert.Equal(t, "NIGHT (18-06)", c.Shift(mk(5, 59, 59)))
	assert.Equal(t, "NIGHT (18-06)", c.Shift(mk(23, 0, 0)))
}

func TestAt(t *testing.T) {
	c := New(6, 30, 6, 18)

	shift, date := c.At(mk(2, 0, 0))
	assert.Equal(t, "NIGHT (18-06)", shift)
	assert.Equal(t, "2026-03-09", date)
}
