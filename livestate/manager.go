// Package livestate provides write-through snapshot management: SQL first,
// then Redis. Readers see durable snapshots; the Redis mirror only spares the
// database on dashboard polls and is rebuilt from SQL on startup.
package livestate

import (
	"context"
	"log"

	"cupline/store"
)

type Manager struct {
	db    *store.DB
	redis *RedisStore
}

func NewManager(db *store.DB, redis *RedisStore) *Manager {
	return &Manager{db: db, redis: redis}
}

// Update upserts the machine's snapshot row in SQL and mirrors it to Redis.
// A Redis failure is logged and ignored; SQL is the source of truth.
func (m *Manager) Update(s *store.Snapshot) error {
	if err := m.db.UpsertSnapshot(s); err != nil {
		return err
	}
	if err := m.redis.SetSnapshot(context.Background(), s); err != nil {
		log.Printf("livestate: redis mirror for %s: %v", s.MachineName, err)
	}
	return nil
}

// Get reads the machine snapshot from Redis, falls back to SQL.
func (m *Manager) Get(machineName string) (*store.Snapshot, error) {
	if s, err := m.redis.GetSnapshot(context.Background(), machineName); err == nil && s != nil {
		return s, nil
	}
	return m.db.GetSnapshot(machineName)
}

// GetAll reads all machine snapshots, preferring Redis.
func (m *Manager) GetAll() ([]*store.Snapshot, error) {
	ctx := context.Background()
	names, err := m.redis.Machines(ctx)
	if err == nil && len(names) > 0 {
		out := make([]*store.Snapshot, 0, len(names))
		complete := true
		for _, name := range names {
			s, err := m.redis.GetSnapshot(ctx, name)
			if err != nil || s == nil {
				complete = false
				break
			}
			out = append(out, s)
		}
		if complete {
			return out, nil
		}
	}
	return m.db.ListSnapshots()
}

// SyncRedisFromSQL rebuilds the Redis mirror from SQL. Called on startup.
func (m *Manager) SyncRedisFromSQL() error {
	ctx := context.Background()
	m.redis.FlushAll(ctx)

	snapshots, err := m.db.ListSnapshots()
	if err != nil {
		return err
	}
	for _, s := range snapshots {
		if err := m.redis.SetSnapshot(ctx, s); err != nil {
			log.Printf("livestate: sync %s to redis: %v", s.MachineName, err)
		}
	}
	log.Printf("livestate: synced %d snapshots to redis", len(snapshots))
	return nil
}
