package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/pitchbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByProviderToken(ctx context.Context, token string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus) error
	SuccessfulDeposit(ctx context.Context, bookingID int64) (*domain.Transaction, error)
}

const transactionColumns = `id, booking_id, amount, type, provider, provider_transaction_id, status, created_at, updated_at`

type PGTransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &PGTransactionRepository{db: db}
}

func (r *PGTransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	return r.db.QueryRow(ctx, `INSERT INTO transactions (booking_id, amount, type, provider, provider_transaction_id, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		t.BookingID, t.Amount, t.Type, t.Provider, nullString(t.ProviderTransactionID), t.Status).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *PGTransactionRepository) GetByProviderToken(ctx context.Context, token string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE provider_transaction_id=$1`, token)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: transaction for token", domain.ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

// UpdateStatus applies the single allowed pending -> terminal transition.
// Rows already in a terminal status are never touched.
func (r *PGTransactionRepository) UpdateStatus(ctx context.Context, id int64, status domain.TransactionStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE transactions SET status=$1, updated_at=now() WHERE id=$2 AND status=$3`,
		status, id, domain.TransactionStatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %d is not pending", domain.ErrState, id)
	}
	return nil
}

func (r *PGTransactionRepository) SuccessfulDeposit(ctx context.Context, bookingID int64) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE booking_id=$1 AND type=$2 AND status=$3`,
		bookingID, domain.TransactionTypeDeposit, domain.TransactionStatusSuccess)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no successful deposit for booking %d", domain.ErrNotFound, bookingID)
		}
		return nil, err
	}
	return t, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var providerTxID *string
	if err := row.Scan(&t.ID, &t.BookingID, &t.Amount, &t.Type, &t.Provider, &providerTxID, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if providerTxID != nil {
		t.ProviderTransactionID = *providerTxID
	}
	return &t, nil
}

var _ TransactionRepository = (*PGTransactionRepository)(nil)
