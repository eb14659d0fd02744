package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/pitchbooking/internal/kafka"
	"github.com/rs/zerolog"
)

// Sender turns booking events into customer notifications. Delivery is
// best-effort; the booking flow never waits on it.
type Sender struct {
	logger zerolog.Logger
}

func NewSender(logger zerolog.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.CustomerEmail == "" {
		return nil
	}

	var subject string
	switch event.Type {
	case kafka.EventBookingCreated:
		subject = "Rezervasyon alındı"
	case kafka.EventBookingConfirmed:
		subject = "Rezervasyon onaylandı"
	case kafka.EventBookingCancelled:
		subject = "Rezervasyon iptal edildi"
	case kafka.EventBookingExpired:
		subject = "Rezervasyon süresi doldu"
	default:
		subject = fmt.Sprintf("Rezervasyon güncellemesi (%s)", event.Type)
	}

	s.logger.Info().
		Str("email", event.CustomerEmail).
		Str("subject", subject).
		Int64("booking_id", event.BookingID).
		Int64("pitch_id", event.PitchID).
		Time("start_time", event.StartTime).
		Msg("sending booking notification")
	return nil
}
