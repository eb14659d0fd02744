package slotlock

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Domenick1991/pitchbooking/internal/metrics"
	"github.com/rs/zerolog"
)

type LockStore interface {
	AcquireSlotLock(ctx context.Context, pitchID int64, slotStart time.Time, owner string, ttl time.Duration) (bool, time.Duration, error)
	ExtendSlotLock(ctx context.Context, pitchID int64, slotStart time.Time, owner string, ttl time.Duration) (bool, error)
	ReleaseSlotLock(ctx context.Context, pitchID int64, slotStart time.Time, owner string) (bool, error)
	SlotLockOwner(ctx context.Context, pitchID int64, slotStart time.Time) (string, error)
	MarkSlotBooked(ctx context.Context, pitchID int64, slotStart time.Time, ttl time.Duration) error
	SlotBooked(ctx context.Context, pitchID int64, slotStart time.Time) (bool, error)
}

type BookingChecker interface {
	HasActiveAt(ctx context.Context, pitchID int64, at time.Time) (bool, error)
}

type LockResult struct {
	Granted    bool   `json:"granted"`
	ExpiresIn  int    `json:"expires_in,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

type RangeResult struct {
	OK          bool        `json:"ok"`
	Conflicting []time.Time `json:"conflicting,omitempty"`
}

// Service hands out provisional, TTL-bound claims on (pitch, slot start)
// pairs so only one client proceeds to payment for a slot at a time.
type Service struct {
	store     LockStore
	bookings  BookingChecker
	lockTTL   time.Duration
	graceTTL  time.Duration
	markerTTL time.Duration
	logger    zerolog.Logger

	verifyWG sync.WaitGroup
}

func NewService(store LockStore, bookings BookingChecker, lockTTL, graceTTL, markerTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		bookings:  bookings,
		lockTTL:   lockTTL,
		graceTTL:  graceTTL,
		markerTTL: markerTTL,
		logger:    logger,
	}
}

// Acquire claims the slot for the user. The overlay marker short-circuits
// slots the database already confirmed as taken; otherwise the claim is a
// single atomic step against redis. After granting, the durable store is
// double-checked in the background and the marker set if a booking exists —
// the granted lock is not revoked, the overlap check at booking creation
// resolves that race.
func (s *Service) Acquire(ctx context.Context, pitchID int64, slotStart time.Time, userID int64) (*LockResult, error) {
	booked, err := s.store.SlotBooked(ctx, pitchID, slotStart)
	if err != nil {
		return nil, err
	}
	if booked {
		metrics.IncLockAcquire("booked")
		return &LockResult{Granted: false, Reason: "slot already booked"}, nil
	}

	acquired, remaining, err := s.store.AcquireSlotLock(ctx, pitchID, slotStart, ownerID(userID), s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		metrics.IncLockAcquire("conflict")
		return &LockResult{
			Granted:    false,
			Reason:     "slot is held by another user",
			RetryAfter: int(remaining.Seconds()),
		}, nil
	}

	s.verifyWG.Add(1)
	go s.verifySlot(pitchID, slotStart)

	metrics.IncLockAcquire("granted")
	return &LockResult{Granted: true, ExpiresIn: int(s.lockTTL.Seconds())}, nil
}

// verifySlot checks the authoritative store for a durable booking at the
// slot instant and, if found, sets the overlay marker so later callers fail
// fast without a database round trip.
func (s *Service) verifySlot(pitchID int64, slotStart time.Time) {
	defer s.verifyWG.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	taken, err := s.bookings.HasActiveAt(ctx, pitchID, slotStart)
	if err != nil {
		s.logger.Warn().Err(err).
			Int64("pitch_id", pitchID).
			Time("slot_start", slotStart).
			Msg("slot verification failed")
		return
	}
	if taken {
		if err := s.store.MarkSlotBooked(ctx, pitchID, slotStart, s.markerTTL); err != nil {
			s.logger.Warn().Err(err).
				Int64("pitch_id", pitchID).
				Time("slot_start", slotStart).
				Msg("failed to set booked marker")
		}
	}
}

// Extend resets the lock TTL to the grace period, only for the owner.
func (s *Service) Extend(ctx context.Context, pitchID int64, slotStart time.Time, userID int64) (*LockResult, error) {
	extended, err := s.store.ExtendSlotLock(ctx, pitchID, slotStart, ownerID(userID), s.graceTTL)
	if err != nil {
		return nil, err
	}
	if !extended {
		return &LockResult{Granted: false, Reason: "not your lock"}, nil
	}
	return &LockResult{Granted: true, ExpiresIn: int(s.graceTTL.Seconds())}, nil
}

// Release deletes the lock if the user still owns it. Releasing an expired
// or foreign lock reports false without error.
func (s *Service) Release(ctx context.Context, pitchID int64, slotStart time.Time, userID int64) (bool, error) {
	return s.store.ReleaseSlotLock(ctx, pitchID, slotStart, ownerID(userID))
}

// CheckRange walks the slot boundaries of [start, end) and reports any slot
// locked by a different owner. Used before multi-slot reservations.
func (s *Service) CheckRange(ctx context.Context, pitchID int64, start, end time.Time, userID int64, step time.Duration) (*RangeResult, error) {
	if step <= 0 {
		step = time.Hour
	}

	result := &RangeResult{OK: true}
	for cur := start; cur.Before(end); cur = cur.Add(step) {
		owner, err := s.store.SlotLockOwner(ctx, pitchID, cur)
		if err != nil {
			return nil, err
		}
		if owner != "" && owner != ownerID(userID) {
			result.OK = false
			result.Conflicting = append(result.Conflicting, cur)
		}
	}
	return result, nil
}

func ownerID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
