package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/pitchbooking/config"
	"github.com/Domenick1991/pitchbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Lock scripts run the read and the conditional write as one indivisible
// step on the redis server. A plain GET followed by SET would let two
// callers both believe they acquired the lock.
var (
	// Returns -1 when the lock was set (fresh or re-entrant), otherwise the
	// remaining TTL of the foreign lock in seconds.
	acquireScript = redis.NewScript(`
		local current = redis.call('GET', KEYS[1])
		if current and current ~= ARGV[1] then
			return redis.call('TTL', KEYS[1])
		end
		redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[2])
		return -1
	`)

	extendScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('EXPIRE', KEYS[1], ARGV[2])
		end
		return 0
	`)

	releaseScript = redis.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('DEL', KEYS[1])
		end
		return 0
	`)
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg config.RedisConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// AcquireSlotLock claims the slot for owner with the given TTL. A lock
// already held by the same owner is refreshed. On contention it reports the
// foreign lock's remaining TTL so callers know when to retry.
func (s *RedisStore) AcquireSlotLock(ctx context.Context, pitchID int64, slotStart time.Time, owner string, ttl time.Duration) (bool, time.Duration, error) {
	res, err := acquireScript.Run(ctx, s.client, []string{slotKey(pitchID, slotStart)}, owner, int(ttl.Seconds())).Int64()
	if err != nil {
		return false, 0, err
	}
	if res >= 0 {
		return false, time.Duration(res) * time.Second, nil
	}
	return true, 0, nil
}

func (s *RedisStore) ExtendSlotLock(ctx context.Context, pitchID int64, slotStart time.Time, owner string, ttl time.Duration) (bool, error) {
	res, err := extendScript.Run(ctx, s.client, []string{slotKey(pitchID, slotStart)}, owner, int(ttl.Seconds())).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// ReleaseSlotLock deletes the lock only if owner still holds it. Releasing
// an expired or foreign lock is a no-op.
func (s *RedisStore) ReleaseSlotLock(ctx context.Context, pitchID int64, slotStart time.Time, owner string) (bool, error) {
	res, err := releaseScript.Run(ctx, s.client, []string{slotKey(pitchID, slotStart)}, owner).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) SlotLockOwner(ctx context.Context, pitchID int64, slotStart time.Time) (string, error) {
	owner, err := s.client.Get(ctx, slotKey(pitchID, slotStart)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return owner, nil
}

// MarkSlotBooked sets the overlay marker recording that the database holds a
// confirmed or pending booking for the slot. The long TTL spares repeated
// authoritative lookups while the slot stays taken.
func (s *RedisStore) MarkSlotBooked(ctx context.Context, pitchID int64, slotStart time.Time, ttl time.Duration) error {
	return s.client.Set(ctx, markerKey(pitchID, slotStart), "booked", ttl).Err()
}

func (s *RedisStore) SlotBooked(ctx context.Context, pitchID int64, slotStart time.Time) (bool, error) {
	val, err := s.client.Get(ctx, markerKey(pitchID, slotStart)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return val == "booked", nil
}

// LockedSlotStarts scans the lock key space for the pitch and day and
// returns the set of locked start times keyed by RFC3339 string.
func (s *RedisStore) LockedSlotStarts(ctx context.Context, pitchID int64, date string) (map[string]bool, error) {
	pattern := fmt.Sprintf("slot:%d:%s*", pitchID, date)
	locked := make(map[string]bool)

	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		parts := strings.SplitN(iter.Val(), ":", 3)
		if len(parts) == 3 {
			locked[parts[2]] = true
		}
	}
	return locked, iter.Err()
}

func (s *RedisStore) GetAvailability(ctx context.Context, pitchID int64, date string) ([]domain.Slot, error) {
	data, err := s.client.Get(ctx, availabilityKey(pitchID, date)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var slots []domain.Slot
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (s *RedisStore) SetAvailability(ctx context.Context, pitchID int64, date string, slots []domain.Slot, ttl time.Duration) error {
	payload, err := json.Marshal(slots)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, availabilityKey(pitchID, date), payload, ttl).Err()
}

func (s *RedisStore) InvalidateAvailability(ctx context.Context, pitchID int64, date string) error {
	return s.client.Del(ctx, availabilityKey(pitchID, date)).Err()
}

// slotKey normalizes the start time to the server zone so the same instant
// always maps to one key regardless of the offset the client sent, and so
// the per-day scan prefix lines up with local availability dates.
func slotKey(pitchID int64, slotStart time.Time) string {
	return fmt.Sprintf("slot:%d:%s", pitchID, slotStart.In(time.Local).Format(time.RFC3339))
}

func markerKey(pitchID int64, slotStart time.Time) string {
	return "dbcheck:" + slotKey(pitchID, slotStart)
}

func availabilityKey(pitchID int64, date string) string {
	return fmt.Sprintf("availability:%d:%s", pitchID, date)
}
