package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/pitchbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	ListActiveForDay(ctx context.Context, pitchID int64, day time.Time) ([]domain.Booking, error)
	HasActiveAt(ctx context.Context, pitchID int64, at time.Time) (bool, error)
	ManagedBy(ctx context.Context, bookingID, actorID int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	FailPendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

const bookingColumns = `id, pitch_id, user_id, start_time, end_time, total_price, deposit_amount, status, payment_method, customer_name, customer_phone, customer_email, created_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

// Create inserts the booking after re-checking, inside the same
// transaction, that no Confirmed or Pending booking overlaps the half-open
// interval. The slot lock in redis is only an optimistic pre-check; this
// query is the source of truth for the no-overlap invariant.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Serialize competing creates for the pitch. At read committed two
	// concurrent transactions could otherwise both count zero overlaps and
	// both commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, booking.PitchID); err != nil {
		return err
	}

	var overlapping int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM bookings
		WHERE pitch_id = $1
		AND status IN ('Confirmed', 'Pending')
		AND tsrange(start_time, end_time) && tsrange($2::timestamp, $3::timestamp)`,
		booking.PitchID, booking.StartTime, booking.EndTime).Scan(&overlapping); err != nil {
		return err
	}
	if overlapping > 0 {
		return fmt.Errorf("%w: slot already reserved", domain.ErrConflict)
	}

	if err := tx.QueryRow(ctx, `INSERT INTO bookings (pitch_id, user_id, start_time, end_time, total_price, deposit_amount, status, payment_method, customer_name, customer_phone, customer_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		booking.PitchID, booking.UserID, booking.StartTime, booking.EndTime,
		booking.TotalPrice, booking.DepositAmount, booking.Status, booking.PaymentMethod,
		nullString(booking.CustomerName), nullString(booking.CustomerPhone), nullString(booking.CustomerEmail)).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns, status, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) ListActiveForDay(ctx context.Context, pitchID int64, day time.Time) ([]domain.Booking, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE pitch_id = $1
		AND start_time >= $2 AND start_time < $3
		AND status IN ('Confirmed', 'Pending')
		ORDER BY start_time`,
		pitchID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) HasActiveAt(ctx context.Context, pitchID int64, at time.Time) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings
		WHERE pitch_id = $1
		AND start_time <= $2 AND end_time > $2
		AND status IN ('Confirmed', 'Pending')`, pitchID, at).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ManagedBy reports whether the actor owns the pitch the booking belongs to.
func (r *PGBookingRepository) ManagedBy(ctx context.Context, bookingID, actorID int64) (bool, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings b
		JOIN pitches p ON b.pitch_id = p.id
		WHERE b.id = $1 AND p.owner_id = $2`, bookingID, actorID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes the booking and its ledger transactions in one transaction.
func (r *PGBookingRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE booking_id = $1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
	}

	return tx.Commit(ctx)
}

// FailPendingBefore marks online Pending bookings created before deadline as
// Failed and returns them. Bank-transfer bookings are settled manually by
// staff and are left alone.
func (r *PGBookingRepository) FailPendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings SET status=$1, updated_at=now()
		WHERE status=$2 AND payment_method=$3 AND created_at <= $4
		RETURNING `+bookingColumns,
		domain.BookingStatusFailed, domain.BookingStatusPending, domain.PaymentMethodOnline, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		failed = append(failed, *b)
	}
	return failed, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var method, name, phone, email *string
	if err := row.Scan(&b.ID, &b.PitchID, &b.UserID, &b.StartTime, &b.EndTime,
		&b.TotalPrice, &b.DepositAmount, &b.Status, &method, &name, &phone, &email,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	if method != nil {
		b.PaymentMethod = domain.PaymentMethod(*method)
	}
	if name != nil {
		b.CustomerName = *name
	}
	if phone != nil {
		b.CustomerPhone = *phone
	}
	if email != nil {
		b.CustomerEmail = *email
	}
	return &b, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ BookingRepository = (*PGBookingRepository)(nil)
