package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Domenick1991/pitchbooking/internal/domain"
)

type MockPitchRepository struct {
	mock.Mock
}

func (m *MockPitchRepository) GetByID(ctx context.Context, id int64) (*domain.Pitch, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Pitch), args.Error(1)
}

type MockBookingLister struct {
	mock.Mock
}

func (m *MockBookingLister) ListActiveForDay(ctx context.Context, pitchID int64, day time.Time) ([]domain.Booking, error) {
	args := m.Called(ctx, pitchID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockSlotStore struct {
	mock.Mock
}

func (m *MockSlotStore) GetAvailability(ctx context.Context, pitchID int64, date string) ([]domain.Slot, error) {
	args := m.Called(ctx, pitchID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Slot), args.Error(1)
}

func (m *MockSlotStore) SetAvailability(ctx context.Context, pitchID int64, date string, slots []domain.Slot, ttl time.Duration) error {
	args := m.Called(ctx, pitchID, date, slots, ttl)
	return args.Error(0)
}

func (m *MockSlotStore) LockedSlotStarts(ctx context.Context, pitchID int64, date string) (map[string]bool, error) {
	args := m.Called(ctx, pitchID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func testPitch() *domain.Pitch {
	return &domain.Pitch{
		ID:                  1,
		OwnerID:             10,
		Name:                "Merkez Saha",
		OpeningHour:         8,
		ClosingHour:         23,
		SlotDurationMinutes: 60,
		DayPrice:            500,
		NightPrice:          750,
		NightStartHour:      18,
	}
}

func TestService_ListSlots(t *testing.T) {
	pitches := &MockPitchRepository{}
	bookings := &MockBookingLister{}
	store := &MockSlotStore{}
	service := NewService(pitches, bookings, store, time.Minute, zerolog.Nop())

	ctx := context.Background()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)

	booked := domain.Booking{
		PitchID:   1,
		StartTime: day.Add(10 * time.Hour),
		EndTime:   day.Add(12 * time.Hour),
		Status:    domain.BookingStatusConfirmed,
	}
	lockedKey := day.Add(14 * time.Hour).Format(time.RFC3339)

	store.On("GetAvailability", ctx, int64(1), "2026-09-01").Return(nil, errors.New("redis: nil")).Once()
	pitches.On("GetByID", ctx, int64(1)).Return(testPitch(), nil).Once()
	bookings.On("ListActiveForDay", ctx, int64(1), day).Return([]domain.Booking{booked}, nil).Once()
	store.On("LockedSlotStarts", ctx, int64(1), "2026-09-01").Return(map[string]bool{lockedKey: true}, nil).Once()
	store.On("SetAvailability", ctx, int64(1), "2026-09-01", mock.Anything, time.Minute).Return(nil).Once()

	slots, err := service.ListSlots(ctx, 1, "2026-09-01")

	assert.NoError(t, err)
	assert.Len(t, slots, 15)

	byHour := make(map[int]domain.Slot, len(slots))
	for _, slot := range slots {
		byHour[slot.StartTime.Hour()] = slot
	}

	assert.Equal(t, 8, slots[0].StartTime.Hour())
	assert.Equal(t, domain.SlotStatusAvailable, byHour[8].Status)
	assert.Equal(t, int64(500), byHour[8].Price)

	assert.Equal(t, domain.SlotStatusBooked, byHour[10].Status)
	assert.Equal(t, domain.SlotStatusBooked, byHour[11].Status)
	assert.Equal(t, domain.SlotStatusAvailable, byHour[12].Status)

	assert.Equal(t, domain.SlotStatusLocked, byHour[14].Status)

	assert.Equal(t, domain.SlotStatusAvailable, byHour[19].Status)
	assert.Equal(t, int64(750), byHour[19].Price)
	assert.Equal(t, int64(750), byHour[22].Price)

	store.AssertExpectations(t)
	pitches.AssertExpectations(t)
	bookings.AssertExpectations(t)
}

func TestService_ListSlots_CacheHit(t *testing.T) {
	pitches := &MockPitchRepository{}
	store := &MockSlotStore{}
	service := NewService(pitches, &MockBookingLister{}, store, time.Minute, zerolog.Nop())

	ctx := context.Background()
	cached := []domain.Slot{{Status: domain.SlotStatusAvailable, Price: 500}}
	store.On("GetAvailability", ctx, int64(1), "2026-09-01").Return(cached, nil).Once()

	slots, err := service.ListSlots(ctx, 1, "2026-09-01")

	assert.NoError(t, err)
	assert.Equal(t, cached, slots)
	pitches.AssertNotCalled(t, "GetByID")
}

func TestService_ListSlots_EmptyDayCaches(t *testing.T) {
	pitches := &MockPitchRepository{}
	bookings := &MockBookingLister{}
	store := &MockSlotStore{}
	service := NewService(pitches, bookings, store, time.Minute, zerolog.Nop())

	ctx := context.Background()
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.Local)
	closed := testPitch()
	closed.OpeningHour = 8
	closed.ClosingHour = 8

	store.On("GetAvailability", ctx, int64(1), "2026-09-01").Return(nil, nil).Once()
	pitches.On("GetByID", ctx, int64(1)).Return(closed, nil).Once()
	bookings.On("ListActiveForDay", ctx, int64(1), day).Return([]domain.Booking{}, nil).Once()
	store.On("LockedSlotStarts", ctx, int64(1), "2026-09-01").Return(map[string]bool{}, nil).Once()
	// The empty result must be written non-nil so it reads back as a cache
	// hit, not a miss that re-derives the day on every request.
	store.On("SetAvailability", ctx, int64(1), "2026-09-01", mock.MatchedBy(func(slots []domain.Slot) bool {
		return slots != nil && len(slots) == 0
	}), time.Minute).Return(nil).Once()

	slots, err := service.ListSlots(ctx, 1, "2026-09-01")
	assert.NoError(t, err)
	assert.NotNil(t, slots)
	assert.Empty(t, slots)
	store.AssertExpectations(t)

	// Second request is served from the cached empty list.
	store.On("GetAvailability", ctx, int64(1), "2026-09-01").Return([]domain.Slot{}, nil).Once()
	slots, err = service.ListSlots(ctx, 1, "2026-09-01")
	assert.NoError(t, err)
	assert.Empty(t, slots)
	pitches.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestService_ListSlots_InvalidDate(t *testing.T) {
	service := NewService(&MockPitchRepository{}, &MockBookingLister{}, &MockSlotStore{}, time.Minute, zerolog.Nop())

	_, err := service.ListSlots(context.Background(), 1, "01.09.2026")

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_Quote(t *testing.T) {
	pitches := &MockPitchRepository{}
	service := NewService(pitches, &MockBookingLister{}, &MockSlotStore{}, time.Minute, zerolog.Nop())

	ctx := context.Background()
	pitches.On("GetByID", ctx, int64(1)).Return(testPitch(), nil)

	// 17:00-19:00 straddles the evening tariff: 500 + 750.
	start := time.Date(2026, 9, 1, 17, 0, 0, 0, time.Local)
	total, err := service.Quote(ctx, 1, start, start.Add(2*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, int64(1250), total)

	price, err := service.PriceOf(ctx, 1, time.Date(2026, 9, 1, 19, 0, 0, 0, time.Local))
	assert.NoError(t, err)
	assert.Equal(t, int64(750), price)
}
