package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/pitchbooking/internal/domain"
	"github.com/Domenick1991/pitchbooking/internal/kafka"
	"github.com/Domenick1991/pitchbooking/internal/metrics"
	"github.com/Domenick1991/pitchbooking/internal/repository"
	"github.com/rs/zerolog"
)

// depositPercent is the upfront fraction of the total price charged online;
// the remainder is settled on-site.
const depositPercent = 30

type Quoter interface {
	Quote(ctx context.Context, pitchID int64, start, end time.Time) (int64, error)
}

type LockReleaser interface {
	Release(ctx context.Context, pitchID int64, slotStart time.Time, userID int64) (bool, error)
}

type CacheInvalidator interface {
	InvalidateAvailability(ctx context.Context, pitchID int64, date string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateBookingInput struct {
	PitchID       int64
	UserID        int64
	StartTime     time.Time
	EndTime       time.Time
	PaymentMethod domain.PaymentMethod
	CustomerEmail string
}

type ManualBookingInput struct {
	PitchID       int64
	StartTime     time.Time
	EndTime       time.Time
	TotalPrice    int64
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
}

// Service owns the booking status state machine and the overlap-safe
// creation path. Cross-request coordination happens in the database and
// redis; the service keeps no mutable state of its own.
type Service struct {
	bookings           repository.BookingRepository
	pricer             Quoter
	locks              LockReleaser
	cache              CacheInvalidator
	producer           Producer
	notificationsTopic string
	pendingTTL         time.Duration
	logger             zerolog.Logger
}

func NewService(
	bookings repository.BookingRepository,
	pricer Quoter,
	locks LockReleaser,
	cache CacheInvalidator,
	producer Producer,
	notificationsTopic string,
	pendingTTL time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{
		bookings:           bookings,
		pricer:             pricer,
		locks:              locks,
		cache:              cache,
		producer:           producer,
		notificationsTopic: notificationsTopic,
		pendingTTL:         pendingTTL,
		logger:             logger,
	}
}

// Create inserts a Pending booking for an online or bank-transfer customer.
// The overlap check runs inside the insert transaction, closing the race
// the slot lock's optimistic pre-check leaves open.
func (s *Service) Create(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if !input.StartTime.Before(input.EndTime) {
		return nil, fmt.Errorf("%w: start time must be before end time", domain.ErrValidation)
	}
	if input.PaymentMethod != domain.PaymentMethodOnline && input.PaymentMethod != domain.PaymentMethodBankTransfer {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrValidation, input.PaymentMethod)
	}

	total, err := s.pricer.Quote(ctx, input.PitchID, input.StartTime, input.EndTime)
	if err != nil {
		return nil, err
	}

	userID := input.UserID
	booking := &domain.Booking{
		PitchID:       input.PitchID,
		UserID:        &userID,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		TotalPrice:    total,
		DepositAmount: total * depositPercent / 100,
		Status:        domain.BookingStatusPending,
		PaymentMethod: input.PaymentMethod,
		CustomerEmail: input.CustomerEmail,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated(string(booking.Status))
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

// CreateManual inserts a staff-entered booking. These carry no user and no
// online payment, so they are Confirmed immediately.
func (s *Service) CreateManual(ctx context.Context, input ManualBookingInput) (*domain.Booking, error) {
	if !input.StartTime.Before(input.EndTime) {
		return nil, fmt.Errorf("%w: start time must be before end time", domain.ErrValidation)
	}
	if input.CustomerName == "" || input.CustomerPhone == "" {
		return nil, fmt.Errorf("%w: customer name and phone are required", domain.ErrValidation)
	}

	total := input.TotalPrice
	if total == 0 {
		quoted, err := s.pricer.Quote(ctx, input.PitchID, input.StartTime, input.EndTime)
		if err != nil {
			return nil, err
		}
		total = quoted
	}

	booking := &domain.Booking{
		PitchID:       input.PitchID,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		TotalPrice:    total,
		DepositAmount: total * depositPercent / 100,
		Status:        domain.BookingStatusConfirmed,
		CustomerName:  input.CustomerName,
		CustomerPhone: input.CustomerPhone,
		CustomerEmail: input.CustomerEmail,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	metrics.IncBookingCreated(string(booking.Status))
	s.invalidateAvailability(ctx, booking)
	return booking, nil
}

// TransitionStatus moves the booking through the status machine on behalf
// of a staff actor administering the pitch. Confirming a bank-transfer
// booking notifies the customer; notification failure never rolls the
// status change back.
func (s *Service) TransitionStatus(ctx context.Context, bookingID int64, newStatus domain.BookingStatus, actorID int64) (*domain.Booking, error) {
	if !domain.ValidBookingStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, newStatus)
	}

	current, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.bookings.ManagedBy(ctx, bookingID, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: booking %d is not managed by actor %d", domain.ErrUnauthorized, bookingID, actorID)
	}

	if !current.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("%w: cannot move booking %d from %s to %s", domain.ErrState, bookingID, current.Status, newStatus)
	}

	updated, err := s.bookings.UpdateStatus(ctx, bookingID, newStatus)
	if err != nil {
		return nil, err
	}

	if current.Status == domain.BookingStatusPending && newStatus == domain.BookingStatusConfirmed {
		s.invalidateAvailability(ctx, updated)
		if current.PaymentMethod == domain.PaymentMethodBankTransfer {
			s.publish(ctx, kafka.EventBookingConfirmed, updated)
		}
	}
	return updated, nil
}

// Delete removes the booking and its ledger rows, staff only. The
// repository runs the cascade in one transaction.
func (s *Service) Delete(ctx context.Context, bookingID, actorID int64) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}

	allowed, err := s.bookings.ManagedBy(ctx, bookingID, actorID)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: booking %d is not managed by actor %d", domain.ErrUnauthorized, bookingID, actorID)
	}

	if err := s.bookings.Delete(ctx, bookingID); err != nil {
		return err
	}

	s.invalidateAvailability(ctx, booking)
	return nil
}

// ExpirePending fails online Pending bookings whose payment session never
// called back, releases their slot locks and notifies the customers. Run
// periodically by the worker.
func (s *Service) ExpirePending(ctx context.Context) ([]domain.Booking, error) {
	deadline := time.Now().Add(-s.pendingTTL)
	expired, err := s.bookings.FailPendingBefore(ctx, deadline)
	if err != nil {
		return nil, err
	}

	for i := range expired {
		b := &expired[i]
		if b.UserID != nil {
			if _, err := s.locks.Release(ctx, b.PitchID, b.StartTime, *b.UserID); err != nil {
				s.logger.Warn().Err(err).Int64("booking_id", b.ID).Msg("lock release failed for expired booking")
			}
		}
		s.invalidateAvailability(ctx, b)
		s.publish(ctx, kafka.EventBookingExpired, b)
	}
	return expired, nil
}

func (s *Service) publish(ctx context.Context, eventType string, b *domain.Booking) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}

	event := kafka.BookingEvent{
		Type:          eventType,
		BookingID:     b.ID,
		PitchID:       b.PitchID,
		UserID:        b.UserID,
		CustomerEmail: b.CustomerEmail,
		Status:        string(b.Status),
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		TotalPrice:    b.TotalPrice,
		DepositAmount: b.DepositAmount,
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, fmt.Sprintf("booking-%d", b.ID), event); err != nil {
		s.logger.Warn().Err(err).
			Int64("booking_id", b.ID).
			Str("event", eventType).
			Msg("failed to publish booking event")
	}
}

func (s *Service) invalidateAvailability(ctx context.Context, b *domain.Booking) {
	if s.cache == nil {
		return
	}
	date := b.StartTime.Format("2006-01-02")
	if err := s.cache.InvalidateAvailability(ctx, b.PitchID, date); err != nil {
		s.logger.Warn().Err(err).
			Int64("booking_id", b.ID).
			Int64("pitch_id", b.PitchID).
			Str("date", date).
			Msg("availability cache invalidation failed")
	}
}
