// Package counter converts a monotonically increasing raw stroke counter into
// unit-of-production totals relative to day, shift, and coil reference points.
// The counter lives in the controller and is reset from outside at arbitrary
// times; the reconciler survives those resets without producing negative or
// inflated deltas.
package counter

import (
	"errors"
	"math"
)

var (
	ErrBadMultiplier = errors.New("counter: multiplier must be positive")
	ErrBadReading    = errors.New("counter: raw counter is not finite")
)

// Totals holds unit counts relative to each reference point, truncated to
// whole units and never negative.
type Totals struct {
	Day   int64
	Shift int64
	Coil  int64
}

// Reconciler tracks one machine's counter references. It is owned by that
// machine's poll loop and is not safe for concurrent use.
type Reconciler struct {
	seeded   bool
	lastRaw  float64
	dayRef   float64
	shiftRef float64
	coilRef  float64
}

func NewReconciler() *Reconciler { return &Reconciler{} }

// Observe folds one raw reading into the references and returns the current
// totals. On the first reading all references seed to raw. When raw drops
// below the previous reading the controller was reset: every reference still
// ahead of raw is pulled down to raw so deltas start from zero again.
//
// On a degraded reading (non-finite raw, bad multiplier) the state is left
// untouched and the caller should skip accounting for this cycle.
func (r *Reconciler) Observe(raw, multiplier float64) (Totals, error) {
	if multiplier <= 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return Totals{}, ErrBadMultiplier
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return Totals{}, ErrBadReading
	}

	if !r.seeded {
		r.seeded = true
		r.dayRef = raw
		r.shiftRef = raw
		r.coilRef = raw
	} else if raw < r.lastRaw {
		if r.dayRef > raw {
			r.dayRef = raw
		}
		if r.shiftRef > raw {
			r.shiftRef = raw
		}
		if r.coilRef > raw {
			r.coilRef = raw
		}
	}
	r.lastRaw = raw

	return Totals{
		Day:   units(raw, r.dayRef, multiplier),
		Shift: units(raw, r.shiftRef, multiplier),
		Coil:  units(raw, r.coilRef, multiplier),
	}, nil
}

// units truncates toward zero: multiplier imprecision must never over-count.
func units(raw, ref, multiplier float64) int64 {
	d := (raw - ref) * multiplier
	if d <= 0 {
		return 0
	}
	return int64(math.Trunc(d))
}

func (r *Reconciler) Seeded() bool     { return r.seeded }
func (r *Reconciler) LastRaw() float64 { return r.lastRaw }

// RebaselineDay restarts day accounting from raw (daily reset).
func (r *Reconciler) RebaselineDay(raw float64) { r.dayRef = raw }

// RebaselineShift restarts shift accounting from raw. Called at shift close
// and at coil changes: a coil boundary is also a shift-accounting boundary so
// the same production is never counted into both records.
func (r *Reconciler) RebaselineShift(raw float64) { r.shiftRef = raw }

// RebaselineCoil restarts coil accounting from raw (coil change).
func (r *Reconciler) RebaselineCoil(raw float64) { r.coilRef = raw }
