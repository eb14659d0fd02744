package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/pitchbooking/internal/domain"
	"github.com/Domenick1991/pitchbooking/internal/repository"
	"github.com/rs/zerolog"
)

// DateLayout is the wire format for availability dates.
const DateLayout = "2006-01-02"

type SlotStore interface {
	GetAvailability(ctx context.Context, pitchID int64, date string) ([]domain.Slot, error)
	SetAvailability(ctx context.Context, pitchID int64, date string, slots []domain.Slot, ttl time.Duration) error
	LockedSlotStarts(ctx context.Context, pitchID int64, date string) (map[string]bool, error)
}

type BookingLister interface {
	ListActiveForDay(ctx context.Context, pitchID int64, day time.Time) ([]domain.Booking, error)
}

// Service derives the bookable slots of a pitch for a day from its
// operating schedule, durable bookings and live locks, and prices each slot.
type Service struct {
	pitches  repository.PitchRepository
	bookings BookingLister
	store    SlotStore
	cacheTTL time.Duration
	logger   zerolog.Logger
}

func NewService(pitches repository.PitchRepository, bookings BookingLister, store SlotStore, cacheTTL time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		pitches:  pitches,
		bookings: bookings,
		store:    store,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ListSlots enumerates the pitch's slots for the date with status and
// price. Results are cached briefly; a stale "available" or "locked" for
// the cache TTL is accepted, confirmed bookings invalidate the entry.
func (s *Service) ListSlots(ctx context.Context, pitchID int64, date string) ([]domain.Slot, error) {
	day, err := time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", domain.ErrValidation, date)
	}

	if cached, err := s.store.GetAvailability(ctx, pitchID, date); err == nil && cached != nil {
		return cached, nil
	}

	pitch, err := s.pitches.GetByID(ctx, pitchID)
	if err != nil {
		return nil, err
	}

	bookings, err := s.bookings.ListActiveForDay(ctx, pitchID, day)
	if err != nil {
		return nil, err
	}

	locked, err := s.store.LockedSlotStarts(ctx, pitchID, date)
	if err != nil {
		s.logger.Warn().Err(err).Int64("pitch_id", pitchID).Msg("locked slot scan failed")
		locked = nil
	}

	// Non-nil even when the pitch has no slots, so a cached empty day reads
	// back as a hit instead of a miss.
	slots := []domain.Slot{}
	step := pitch.SlotDuration()
	dayEnd := day.Add(time.Duration(pitch.ClosingHour) * time.Hour)
	for cur := day.Add(time.Duration(pitch.OpeningHour) * time.Hour); cur.Before(dayEnd); cur = cur.Add(step) {
		status := domain.SlotStatusAvailable
		if coveredByBooking(bookings, cur) {
			status = domain.SlotStatusBooked
		} else if locked[cur.Format(time.RFC3339)] {
			status = domain.SlotStatusLocked
		}

		slots = append(slots, domain.Slot{
			StartTime: cur,
			EndTime:   cur.Add(step),
			Status:    status,
			Price:     pitch.SlotPrice(cur),
		})
	}

	if err := s.store.SetAvailability(ctx, pitchID, date, slots, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Int64("pitch_id", pitchID).Msg("availability cache write failed")
	}
	return slots, nil
}

// PriceOf prices the slot starting at the given instant, independent of
// booking state.
func (s *Service) PriceOf(ctx context.Context, pitchID int64, at time.Time) (int64, error) {
	pitch, err := s.pitches.GetByID(ctx, pitchID)
	if err != nil {
		return 0, err
	}
	return pitch.SlotPrice(at), nil
}

// Quote sums the per-slot prices over [start, end).
func (s *Service) Quote(ctx context.Context, pitchID int64, start, end time.Time) (int64, error) {
	pitch, err := s.pitches.GetByID(ctx, pitchID)
	if err != nil {
		return 0, err
	}

	var total int64
	for cur := start; cur.Before(end); cur = cur.Add(pitch.SlotDuration()) {
		total += pitch.SlotPrice(cur)
	}
	return total, nil
}

func coveredByBooking(bookings []domain.Booking, slotStart time.Time) bool {
	for _, b := range bookings {
		if !slotStart.Before(b.StartTime) && slotStart.Before(b.EndTime) {
			return true
		}
	}
	return false
}
