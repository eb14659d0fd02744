package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "Pending"
	BookingStatusConfirmed BookingStatus = "Confirmed"
	BookingStatusCancelled BookingStatus = "Cancelled"
	BookingStatusFailed    BookingStatus = "Failed"
	BookingStatusSuspended BookingStatus = "Suspended"
	BookingStatusCompleted BookingStatus = "Completed"
	BookingStatusNoShow    BookingStatus = "NoShow"
)

type PaymentMethod string

const (
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

type Booking struct {
	ID            int64
	PitchID       int64
	UserID        *int64
	StartTime     time.Time
	EndTime       time.Time
	TotalPrice    int64
	DepositAmount int64
	Status        BookingStatus
	PaymentMethod PaymentMethod
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// statusTransitions lists the reachable statuses from each status.
// Suspended is a staff hold that can be lifted back to either active state.
var statusTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusFailed, BookingStatusSuspended},
	BookingStatusConfirmed: {BookingStatusCancelled, BookingStatusSuspended, BookingStatusCompleted, BookingStatusNoShow},
	BookingStatusSuspended: {BookingStatusConfirmed, BookingStatusPending},
}

func (b *Booking) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range statusTransitions[b.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled,
		BookingStatusFailed, BookingStatusSuspended, BookingStatusCompleted, BookingStatusNoShow:
		return true
	}
	return false
}

// Overlaps reports whether the half-open intervals of two bookings intersect.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && start.Before(b.EndTime)
}

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusLocked    SlotStatus = "locked"
	SlotStatusBooked    SlotStatus = "booked"
)

type Slot struct {
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SlotStatus `json:"status"`
	Price     int64      `json:"price"`
}
