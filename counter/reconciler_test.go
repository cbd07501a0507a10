package counter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstObservationSeedsReferences(t *testing.T) {
	r := NewReconciler()
	totals, err := r.Observe(1000, 2)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)
	assert.True(t, r.Seeded())
}

func TestMultiplierScaling(t *testing.T) {
	r := NewReconciler()
	_, err := r.Observe(1000, 2)
	require.NoError(t, err)

	totals, err := r.Observe(1050, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(100), totals.Day)
	assert.Equal(t, int64(100), totals.Shift)
	assert.Equal(t, int64(100), totals.Coil)
}

func TestTruncationNeverOverCounts(t *testing.T) {
	r := NewReconciler()
	_, err := r.Observe(0, 1.5)
	require.NoError(t, err)

	totals, err := r.Observe(3, 1.5) // 4.5 -> 4
	require.NoError(t, err)
	assert.Equal(t, int64(4), totals.Day)
}

func TestCounterResetRebaselines(t *testing.T) {
	r := NewReconciler()
	_, err := r.Observe(1000, 1)
	require.NoError(t, err)
	_, err = r.Observe(1500, 1)
	require.NoError(t, err)

	// Controller-side reset: raw drops below every reference.
	totals, err := r.Observe(10, 1)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals, "post-reset totals must not be negative or inflated")

	totals, err = r.Observe(60, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), totals.Day)
	assert.Equal(t, int64(50), totals.Coil)
}

func TestResetOnlyPullsReferencesAhead(t *testing.T) {
	r := NewReconciler()
	_, err := r.Observe(1000, 1)
	require.NoError(t, err)
	_, err = r.Observe(1200, 1)
	require.NoError(t, err)

	// Coil changed at 1200; day reference still at 1000.
	r.RebaselineCoil(1200)

	// Partial reset down to 1100: coil reference (1200) is ahead and comes
	// down, day reference (1000) stays where it is.
	totals, err := r.Observe(1100, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), totals.Day)
	assert.Equal(t, int64(0), totals.Coil)
}

func TestDegradedReadingsLeaveStateUntouched(t *testing.T) {
	r := NewReconciler()
	_, err := r.Observe(1000, 1)
	require.NoError(t, err)

	_, err = r.Observe(math.NaN(), 1)
	assert.ErrorIs(t, err, ErrBadReading)
	_, err = r.Observe(1100, 0)
	assert.ErrorIs(t, err, ErrBadMultiplier)
	_, err = r.Observe(1100, -2)
	assert.ErrorIs(t, err, ErrBadMultiplier)

	// Last good state retained.
	totals, err := r.Observe(1100, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), totals.Day)
}

func TestRebaselineShiftIndependent(t *testing.T) {
	r := NewReconciler()
	_, err := r.Observe(100, 1)
	require.NoError(t, err)
	_, err = r.Observe(400, 1)
	require.NoError(t, err)

	r.RebaselineShift(400)

	totals, err := r.Observe(450, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(350), totals.Day)
	assert.Equal(t, int64(50), totals.Shift)
	assert.Equal(t, int64(350), totals.Coil)
}
