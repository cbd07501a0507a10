package notify

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// lockRetention keeps expired locks around long enough to recognise a
// byte-identical report after the window and refresh instead of re-sending.
const lockRetention = 24 * time.Hour

// LockStore is a keyed, expiring token store backing the deduplicator. The
// content-hash-plus-expiry contract is the invariant; the storage mechanism
// is not.
type LockStore interface {
	// Get returns the stored digest and its age. ok is false when no lock
	// exists under key.
	Get(ctx context.Context, key string) (digest []byte, age time.Duration, ok bool, err error)
	// Set writes or refreshes the lock, resetting its age.
	Set(ctx context.Context, key string, digest []byte) error
}

// Deduplicator suppresses repeated identical alerts observed across
// overlapping poll cycles. It is advisory: any lock-store failure defaults to
// allowing the send.
type Deduplicator struct {
	locks  LockStore
	window time.Duration
}

func NewDeduplicator(locks LockStore, window time.Duration) *Deduplicator {
	return &Deduplicator{locks: locks, window: window}
}

// ShouldSend reports whether a notification with the given identity may go
// out. identity is the concatenation of the report's semantically
// distinguishing fields.
func (d *Deduplicator) ShouldSend(ctx context.Context, identity string) bool {
	key, digest := hashIdentity(identity)

	stored, age, ok, err := d.locks.Get(ctx, key)
	if err != nil {
		log.Printf("notify: dedup lookup failed, allowing send: %v", err)
		return true
	}
	if !ok {
		return true
	}
	if age < d.window {
		return false
	}
	if bytes.Equal(stored, digest) {
		// Same content past the window: refresh the lock and stay quiet.
		if err := d.locks.Set(ctx, key, digest); err != nil {
			log.Printf("notify: dedup refresh failed: %v", err)
		}
		return false
	}
	return true
}

// Record creates or refreshes the lock after a successful send.
func (d *Deduplicator) Record(ctx context.Context, identity string) {
	key, digest := hashIdentity(identity)
	if err := d.locks.Set(ctx, key, digest); err != nil {
		log.Printf("notify: dedup record failed: %v", err)
	}
}

func hashIdentity(identity string) (key string, digest []byte) {
	sum := sha256.Sum256([]byte(identity))
	return "cupline:maillock:" + hex.EncodeToString(sum[:]), sum[:]
}

// RedisLockStore keeps locks in Redis with the digest and creation time in
// the value, retained past the dedup window.
type RedisLockStore struct {
	client *redis.Client
}

func NewRedisLockStore(client *redis.Client) *RedisLockStore {
	return &RedisLockStore{client: client}
}

type redisLock struct {
	Digest  []byte `json:"digest"`
	Created int64  `json:"created"` // unix seconds
}

func encodeLock(l redisLock) ([]byte, error) { return json.Marshal(l) }

func decodeLock(data []byte) (redisLock, error) {
	var l redisLock
	err := json.Unmarshal(data, &l)
	return l, err
}

func (r *RedisLockStore) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	lock, err := decodeLock(data)
	if err != nil {
		// Corrupt lock entry: treat as absent so sends are never blocked.
		return nil, 0, false, nil
	}
	return lock.Digest, time.Since(time.Unix(lock.Created, 0)), true, nil
}

func (r *RedisLockStore) Set(ctx context.Context, key string, digest []byte) error {
	data, err := encodeLock(redisLock{Digest: digest, Created: time.Now().Unix()})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, lockRetention).Err()
}

// MemoryLockStore is the in-process fallback used when Redis is unavailable
// and in tests.
type MemoryLockStore struct {
	mu    sync.Mutex
	locks map[string]memoryLock
	now   func() time.Time
}

type memoryLock struct {
	digest  []byte
	created time.Time
}

func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{locks: make(map[string]memoryLock), now: time.Now}
}

func (m *MemoryLockStore) Get(_ context.Context, key string) ([]byte, time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		return nil, 0, false, nil
	}
	age := m.now().Sub(lock.created)
	if age > lockRetention {
		delete(m.locks, key)
		return nil, 0, false, nil
	}
	return lock.digest, age, true, nil
}

func (m *MemoryLockStore) Set(_ context.Context, key string, digest []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[key] = memoryLock{digest: digest, created: m.now()}
	return nil
}
