package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupSuppressesWithinWindow(t *testing.T) {
	locks := NewMemoryLockStore()
	d := NewDeduplicator(locks, 10*time.Minute)
	ctx := context.Background()

	require.True(t, d.ShouldSend(ctx, "M1:1500:73mm"))
	d.Record(ctx, "M1:1500:73mm")

	assert.False(t, d.ShouldSend(ctx, "M1:1500:73mm"))
}

func TestDedupAllowsDifferentContent(t *testing.T) {
	locks := NewMemoryLockStore()
	d := NewDeduplicator(locks, 10*time.Minute)
	ctx := context.Background()

	d.Record(ctx, "M1:1500:73mm")

	// A different count hashes to a different key, so it is a new alert.
	assert.True(t, d.ShouldSend(ctx, "M1:1650:73mm"))
}

func TestDedupRefreshesIdenticalAfterWindow(t *testing.T) {
	locks := NewMemoryLockStore()
	now := time.Now()
	locks.now = func() time.Time { return now }
	d := NewDeduplicator(locks, 10*time.Minute)
	ctx := context.Background()

	d.Record(ctx, "M1:1500:73mm")

	// Past the window but identical: stays suppressed and the lock age
	// resets, so it keeps staying suppressed on later cycles too.
	now = now.Add(11 * time.Minute)
	assert.False(t, d.ShouldSend(ctx, "M1:1500:73mm"))

	now = now.Add(11 * time.Minute)
	assert.False(t, d.ShouldSend(ctx, "M1:1500:73mm"))
}

func TestDedupExpiresAfterRetention(t *testing.T) {
	locks := NewMemoryLockStore()
	now := time.Now()
	locks.now = func() time.Time { return now }
	d := NewDeduplicator(locks, 10*time.Minute)
	ctx := context.Background()

	d.Record(ctx, "M1:1500:73mm")

	now = now.Add(lockRetention + time.Minute)
	assert.True(t, d.ShouldSend(ctx, "M1:1500:73mm"))
}
