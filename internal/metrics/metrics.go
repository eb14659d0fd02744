package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	lockAcquire = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pitchbooking",
			Name:      "slot_lock_acquire_total",
			Help:      "Count of slot lock acquisition attempts by result.",
		},
		[]string{"result"},
	)

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pitchbooking",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by initial status.",
		},
		[]string{"status"},
	)

	paymentCallback = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pitchbooking",
			Name:      "payment_callback_total",
			Help:      "Count of payment provider callbacks by result.",
		},
		[]string{"result"},
	)

	refundIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pitchbooking",
			Name:      "refund_issued_total",
			Help:      "Count of refunds issued to customers.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(lockAcquire, bookingCreated, paymentCallback, refundIssued)
	})
}

func IncLockAcquire(result string) {
	lockAcquire.WithLabelValues(result).Inc()
}

func IncBookingCreated(status string) {
	bookingCreated.WithLabelValues(status).Inc()
}

func IncPaymentCallback(result string) {
	paymentCallback.WithLabelValues(result).Inc()
}

func IncRefundIssued() {
	refundIssued.Inc()
}
