package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/pitchbooking/internal/domain"
	"github.com/Domenick1991/pitchbooking/internal/kafka"
	"github.com/Domenick1991/pitchbooking/internal/metrics"
	"github.com/Domenick1991/pitchbooking/internal/payment/iyzico"
	"github.com/Domenick1991/pitchbooking/internal/repository"
	"github.com/rs/zerolog"
)

type Provider interface {
	CreateSession(ctx context.Context, conversationID string, amount int64, buyer iyzico.Buyer, callbackURL string) (*iyzico.Session, error)
	SessionStatus(ctx context.Context, token string) (bool, error)
	Refund(ctx context.Context, providerTransactionID string, amount int64) error
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

type InitResult struct {
	BookingID      int64  `json:"booking_id"`
	PaymentPageURL string `json:"payment_page_url"`
	Token          string `json:"token"`
}

type CallbackResult struct {
	Success   bool   `json:"success"`
	BookingID int64  `json:"booking_id"`
	Reason    string `json:"reason,omitempty"`
}

// Service bridges booking state and the payment provider: it opens deposit
// sessions, consumes the provider's asynchronous confirmation and computes
// time-based refunds on cancellation.
type Service struct {
	bookings           repository.BookingRepository
	transactions       repository.TransactionRepository
	provider           Provider
	locks              LockReleaser
	cache              CacheInvalidator
	producer           Producer
	notificationsTopic string
	callbackURL        string
	logger             zerolog.Logger
}

func NewService(
	bookings repository.BookingRepository,
	transactions repository.TransactionRepository,
	provider Provider,
	locks LockReleaser,
	cache CacheInvalidator,
	producer Producer,
	notificationsTopic string,
	callbackURL string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		bookings:           bookings,
		transactions:       transactions,
		provider:           provider,
		locks:              locks,
		cache:              cache,
		producer:           producer,
		notificationsTopic: notificationsTopic,
		callbackURL:        callbackURL,
		logger:             logger,
	}
}

// Initialize opens a provider session for the booking's deposit and records
// a pending ledger entry holding the provider token. A provider failure
// marks the booking Failed so no ambiguous Pending row is left behind.
func (s *Service) Initialize(ctx context.Context, bookingID int64, buyer iyzico.Buyer) (*InitResult, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking %d is %s, payment requires Pending", domain.ErrState, bookingID, booking.Status)
	}

	session, err := s.provider.CreateSession(ctx, strconv.FormatInt(bookingID, 10), booking.DepositAmount, buyer, s.callbackURL)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("booking_id", bookingID).
			Int64("pitch_id", booking.PitchID).
			Msg("payment initialization failed")
		if _, uerr := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusFailed); uerr != nil {
			s.logger.Error().Err(uerr).Int64("booking_id", bookingID).Msg("failed to mark booking Failed")
		}
		return nil, err
	}

	tx := &domain.Transaction{
		BookingID:             bookingID,
		Amount:                booking.DepositAmount,
		Type:                  domain.TransactionTypeDeposit,
		Provider:              iyzico.ProviderName,
		ProviderTransactionID: session.Token,
		Status:                domain.TransactionStatusPending,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	return &InitResult{
		BookingID:      bookingID,
		PaymentPageURL: session.PaymentPageURL,
		Token:          session.Token,
	}, nil
}

// HandleCallback consumes the provider's asynchronous confirmation for a
// session token. Replays are detected by the ledger entry no longer being
// pending and apply no side effects a second time.
func (s *Service) HandleCallback(ctx context.Context, token string) (*CallbackResult, error) {
	tx, err := s.transactions.GetByProviderToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TransactionStatusPending {
		return &CallbackResult{
			Success:   tx.Status == domain.TransactionStatusSuccess,
			BookingID: tx.BookingID,
			Reason:    "already processed",
		}, nil
	}

	paid, err := s.provider.SessionStatus(ctx, token)
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", tx.BookingID).Msg("payment status check failed")
		return nil, err
	}

	if !paid {
		if err := s.transactions.UpdateStatus(ctx, tx.ID, domain.TransactionStatusFailed); err != nil {
			return nil, err
		}
		if _, err := s.bookings.UpdateStatus(ctx, tx.BookingID, domain.BookingStatusFailed); err != nil {
			return nil, err
		}
		metrics.IncPaymentCallback("failed")
		return &CallbackResult{Success: false, BookingID: tx.BookingID, Reason: "payment failed"}, nil
	}

	// The guarded pending -> success transition is the idempotency gate: a
	// concurrent replay loses here and applies nothing. Any other failure
	// must surface so the provider retries the callback.
	if err := s.transactions.UpdateStatus(ctx, tx.ID, domain.TransactionStatusSuccess); err != nil {
		if errors.Is(err, domain.ErrState) {
			return &CallbackResult{Success: true, BookingID: tx.BookingID, Reason: "already processed"}, nil
		}
		return nil, err
	}

	booking, err := s.bookings.UpdateStatus(ctx, tx.BookingID, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}

	if booking.UserID != nil {
		if _, err := s.locks.Release(ctx, booking.PitchID, booking.StartTime, *booking.UserID); err != nil {
			s.logger.Warn().Err(err).Int64("booking_id", booking.ID).Msg("lock release after confirmation failed")
		}
	}
	s.invalidateAvailability(ctx, booking)
	s.publish(ctx, kafka.EventBookingConfirmed, booking)

	metrics.IncPaymentCallback("success")
	return &CallbackResult{Success: true, BookingID: booking.ID}, nil
}

// Refund returns a percentage of the deposit against the original provider
// transaction and cancels the booking. A provider failure leaves the
// booking Confirmed with no partial state.
func (s *Service) Refund(ctx context.Context, bookingID int64, percentage int) (int64, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return 0, fmt.Errorf("%w: booking %d is %s, refund requires Confirmed", domain.ErrState, bookingID, booking.Status)
	}

	deposit, err := s.transactions.SuccessfulDeposit(ctx, bookingID)
	if err != nil {
		return 0, err
	}

	refundAmount := booking.DepositAmount * int64(percentage) / 100
	if err := s.provider.Refund(ctx, deposit.ProviderTransactionID, refundAmount); err != nil {
		s.logger.Error().Err(err).
			Int64("booking_id", bookingID).
			Int64("refund_amount", refundAmount).
			Msg("provider refund failed")
		return 0, err
	}

	refund := &domain.Transaction{
		BookingID:             bookingID,
		Amount:                refundAmount,
		Type:                  domain.TransactionTypeRefund,
		Provider:              iyzico.ProviderName,
		ProviderTransactionID: deposit.ProviderTransactionID,
		Status:                domain.TransactionStatusSuccess,
	}
	if err := s.transactions.Create(ctx, refund); err != nil {
		return 0, err
	}

	cancelled, err := s.bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusCancelled)
	if err != nil {
		return 0, err
	}

	s.invalidateAvailability(ctx, cancelled)
	s.publish(ctx, kafka.EventBookingCancelled, cancelled)
	metrics.IncRefundIssued()
	return refundAmount, nil
}

// Cancel applies the time-based refund policy for the owning user. The
// comparisons are strict: exactly 24 hours before start refunds 50%,
// exactly 6 hours is refused.
func (s *Service) Cancel(ctx context.Context, bookingID, userID int64) (int64, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if booking.UserID == nil || *booking.UserID != userID {
		return 0, fmt.Errorf("%w: booking %d does not belong to user %d", domain.ErrUnauthorized, bookingID, userID)
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return 0, fmt.Errorf("%w: booking %d is %s, cancellation requires Confirmed", domain.ErrState, bookingID, booking.Status)
	}

	percentage, err := refundPercentage(time.Until(booking.StartTime))
	if err != nil {
		return 0, err
	}
	return s.Refund(ctx, bookingID, percentage)
}

func refundPercentage(untilStart time.Duration) (int, error) {
	hours := untilStart.Hours()
	switch {
	case hours > 24:
		return 100, nil
	case hours > 6:
		return 50, nil
	default:
		return 0, fmt.Errorf("%w: cancellation window passed", domain.ErrState)
	}
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
