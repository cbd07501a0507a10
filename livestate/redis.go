package livestate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"cupline/store"
)

const (
	snapshotKeyPrefix = "cupline:snapshot:"
	machinesKey       = "cupline:machines"
)

// RedisStore caches machine snapshots for dashboard reads.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) SetSnapshot(ctx context.Context, s *store.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	pipe := r.client.Pipeline()
	pipe.Set(ctx, snapshotKeyPrefix+s.MachineName, data, 0)
	pipe.SAdd(ctx, machinesKey, s.MachineName)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetSnapshot(ctx context.Context, machineName string) (*store.Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKeyPrefix+machineName).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s store.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", machineName, err)
	}
	return &s, nil
}

func (r *RedisStore) Machines(ctx context.Context) ([]string, error) {
	return r.client.SMembers(ctx, machinesKey).Result()
}

func (r *RedisStore) FlushAll(ctx context.Context) {
	names, err := r.client.SMembers(ctx, machinesKey).Result()
	if err != nil {
		return
	}
	keys := make([]string, 0, len(names)+1)
	for _, n := range names {
		keys = append(keys, snapshotKeyPrefix+n)
	}
	keys = append(keys, machinesKey)
	r.client.Del(ctx, keys...)
}
