package slotlock

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockLockStore struct {
	mock.Mock
}

func (m *MockLockStore) AcquireSlotLock(ctx context.Context, pitchID int64, slotStart time.Time, owner string, ttl time.Duration) (bool, time.Duration, error) {
	args := m.Called(ctx, pitchID, slotStart, owner, ttl)
	return args.Bool(0), args.Get(1).(time.Duration), args.Error(2)
}

func (m *MockLockStore) ExtendSlotLock(ctx context.Context, pitchID int64, slotStart time.Time, owner string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, pitchID, slotStart, owner, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLockStore) ReleaseSlotLock(ctx context.Context, pitchID int64, slotStart time.Time, owner string) (bool, error) {
	args := m.Called(ctx, pitchID, slotStart, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockLockStore) SlotLockOwner(ctx context.Context, pitchID int64, slotStart time.Time) (string, error) {
	args := m.Called(ctx, pitchID, slotStart)
	return args.String(0), args.Error(1)
}

func (m *MockLockStore) MarkSlotBooked(ctx context.Context, pitchID int64, slotStart time.Time, ttl time.Duration) error {
	args := m.Called(ctx, pitchID, slotStart, ttl)
	return args.Error(0)
}

func (m *MockLockStore) SlotBooked(ctx context.Context, pitchID int64, slotStart time.Time) (bool, error) {
	args := m.Called(ctx, pitchID, slotStart)
	return args.Bool(0), args.Error(1)
}

type MockBookingChecker struct {
	mock.Mock
}

func (m *MockBookingChecker) HasActiveAt(ctx context.Context, pitchID int64, at time.Time) (bool, error) {
	args := m.Called(ctx, pitchID, at)
	return args.Bool(0), args.Error(1)
}

func newTestService(store *MockLockStore, bookings *MockBookingChecker) *Service {
	return NewService(store, bookings, 300*time.Second, 60*time.Second, time.Hour, zerolog.Nop())
}

func TestService_Acquire_Granted(t *testing.T) {
	store := &MockLockStore{}
	bookings := &MockBookingChecker{}
	service := newTestService(store, bookings)

	ctx := context.Background()
	slot := time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local)

	store.On("SlotBooked", ctx, int64(1), slot).Return(false, nil).Once()
	store.On("AcquireSlotLock", ctx, int64(1), slot, "42", 300*time.Second).Return(true, time.Duration(0), nil).Once()
	bookings.On("HasActiveAt", mock.Anything, int64(1), slot).Return(false, nil).Once()

	result, err := service.Acquire(ctx, 1, slot, 42)

	assert.NoError(t, err)
	assert.True(t, result.Granted)
	assert.Equal(t, 300, result.ExpiresIn)

	service.verifyWG.Wait()
	store.AssertExpectations(t)
	bookings.AssertExpectations(t)
	store.AssertNotCalled(t, "MarkSlotBooked")
}

func TestService_Acquire_SetsMarkerWhenDurablyBooked(t *testing.T) {
	store := &MockLockStore{}
	bookings := &MockBookingChecker{}
	service := newTestService(store, bookings)

	ctx := context.Background()
	slot := time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local)

	store.On("SlotBooked", ctx, int64(1), slot).Return(false, nil).Once()
	store.On("AcquireSlotLock", ctx, int64(1), slot, "42", 300*time.Second).Return(true, time.Duration(0), nil).Once()
	// A manual booking landed between availability listing and the lock
	// attempt. The lock is still granted; the marker catches later callers.
	bookings.On("HasActiveAt", mock.Anything, int64(1), slot).Return(true, nil).Once()
	store.On("MarkSlotBooked", mock.Anything, int64(1), slot, time.Hour).Return(nil).Once()

	result, err := service.Acquire(ctx, 1, slot, 42)

	assert.NoError(t, err)
	assert.True(t, result.Granted)

	service.verifyWG.Wait()
	store.AssertExpectations(t)
	bookings.AssertExpectations(t)
}

func TestService_Acquire_FailsFastOnMarker(t *testing.T) {
	store := &MockLockStore{}
	bookings := &MockBookingChecker{}
	service := newTestService(store, bookings)

	ctx := context.Background()
	slot := time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local)

	store.On("SlotBooked", ctx, int64(1), slot).Return(true, nil).Once()

	result, err := service.Acquire(ctx, 1, slot, 42)

	assert.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "slot already booked", result.Reason)
	assert.Equal(t, 0, result.RetryAfter)
	store.AssertNotCalled(t, "AcquireSlotLock")
}

func TestService_Acquire_Contention(t *testing.T) {
	store := &MockLockStore{}
	bookings := &MockBookingChecker{}
	service := newTestService(store, bookings)

	ctx := context.Background()
	slot := time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local)

	store.On("SlotBooked", ctx, int64(1), slot).Return(false, nil).Once()
	store.On("AcquireSlotLock", ctx, int64(1), slot, "43", 300*time.Second).Return(false, 300*time.Second, nil).Once()

	result, err := service.Acquire(ctx, 1, slot, 43)

	assert.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, 300, result.RetryAfter)
	assert.Equal(t, "slot is held by another user", result.Reason)
	bookings.AssertNotCalled(t, "HasActiveAt")
}

func TestService_Extend(t *testing.T) {
	store := &MockLockStore{}
	service := newTestService(store, &MockBookingChecker{})

	ctx := context.Background()
	slot := time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local)

	store.On("ExtendSlotLock", ctx, int64(1), slot, "42", 60*time.Second).Return(true, nil).Once()
	store.On("ExtendSlotLock", ctx, int64(1), slot, "43", 60*time.Second).Return(false, nil).Once()

	result, err := service.Extend(ctx, 1, slot, 42)
	assert.NoError(t, err)
	assert.True(t, result.Granted)
	assert.Equal(t, 60, result.ExpiresIn)

	result, err = service.Extend(ctx, 1, slot, 43)
	assert.NoError(t, err)
	assert.False(t, result.Granted)
	assert.Equal(t, "not your lock", result.Reason)
}

func TestService_Release_Idempotent(t *testing.T) {
	store := &MockLockStore{}
	service := newTestService(store, &MockBookingChecker{})

	ctx := context.Background()
	slot := time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local)

	store.On("ReleaseSlotLock", ctx, int64(1), slot, "42").Return(true, nil).Once()
	store.On("ReleaseSlotLock", ctx, int64(1), slot, "42").Return(false, nil).Once()

	released, err := service.Release(ctx, 1, slot, 42)
	assert.NoError(t, err)
	assert.True(t, released)

	// Second release after the lock is gone reports false, not an error.
	released, err = service.Release(ctx, 1, slot, 42)
	assert.NoError(t, err)
	assert.False(t, released)
}

func TestService_CheckRange(t *testing.T) {
	store := &MockLockStore{}
	service := newTestService(store, &MockBookingChecker{})

	ctx := context.Background()
	start := time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local)
	end := start.Add(3 * time.Hour)

	store.On("SlotLockOwner", ctx, int64(1), start).Return("", nil).Once()
	store.On("SlotLockOwner", ctx, int64(1), start.Add(time.Hour)).Return("99", nil).Once()
	store.On("SlotLockOwner", ctx, int64(1), start.Add(2*time.Hour)).Return("42", nil).Once()

	result, err := service.CheckRange(ctx, 1, start, end, 42, time.Hour)

	assert.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, []time.Time{start.Add(time.Hour)}, result.Conflicting)
}
