package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/pitchbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PitchRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Pitch, error)
}

type PGPitchRepository struct {
	db *pgxpool.Pool
}

func NewPitchRepository(db *pgxpool.Pool) PitchRepository {
	return &PGPitchRepository{db: db}
}

func (r *PGPitchRepository) GetByID(ctx context.Context, id int64) (*domain.Pitch, error) {
	row := r.db.QueryRow(ctx, `SELECT id, owner_id, name, opening_hour, closing_hour, slot_duration_minutes, day_price, night_price, night_start_hour, created_at, updated_at FROM pitches WHERE id=$1`, id)
	var p domain.Pitch
	if err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.OpeningHour, &p.ClosingHour, &p.SlotDurationMinutes, &p.DayPrice, &p.NightPrice, &p.NightStartHour, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: pitch %d", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &p, nil
}

var _ PitchRepository = (*PGPitchRepository)(nil)
