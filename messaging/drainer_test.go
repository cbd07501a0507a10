package messaging

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cupline/config"
	"cupline/store"
)

type capturePublisher struct {
	keys     []string
	payloads []string
	failAt   int // publish index that errors, -1 for never
}

func (c *capturePublisher) Publish(_ context.Context, key string, payload []byte) error {
	if c.failAt >= 0 && len(c.keys) == c.failAt {
		return errors.New("broker down")
	}
	c.keys = append(c.keys, key)
	c.payloads = append(c.payloads, string(payload))
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "drain.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDrainOncePublishesInOrder(t *testing.T) {
	db := openTestDB(t)
	now := store.FormatTime(time.Now())
	require.NoError(t, db.EnqueueOutbox("production", []byte(`{"n":1}`), "production_record", "M1", now))
	require.NoError(t, db.EnqueueOutbox("production", []byte(`{"n":2}`), "coil_consumption", "M1", now))

	pub := &capturePublisher{failAt: -1}
	d := NewDrainer(db, pub, time.Second)
	require.NoError(t, d.DrainOnce(context.Background()))

	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, pub.payloads)
	assert.Equal(t, []string{"M1", "M1"}, pub.keys)

	pending, err := db.PendingOutbox(10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainOnceStopsAtFirstFailure(t *testing.T) {
	db := openTestDB(t)
	now := store.FormatTime(time.Now())
	require.NoError(t, db.EnqueueOutbox("production", []byte(`{"n":1}`), "production_record", "M1", now))
	require.NoError(t, db.EnqueueOutbox("production", []byte(`{"n":2}`), "production_record", "M1", now))
	require.NoError(t, db.EnqueueOutbox("production", []byte(`{"n":3}`), "production_record", "M1", now))

	pub := &capturePublisher{failAt: 1}
	d := NewDrainer(db, pub, time.Second)
	require.Error(t, d.DrainOnce(context.Background()))

	// First entry went out and is marked sent; the rest stay pending.
	pending, err := db.PendingOutbox(10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, `{"n":2}`, string(pending[0].Payload))

	// Retry picks up where it left off with no duplicates.
	pub.failAt = -1
	require.NoError(t, d.DrainOnce(context.Background()))
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`, `{"n":3}`}, pub.payloads)
}
