package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sote-minimart/internal/models"
)

const uniqueViolation = "23505"

type shiftRepo struct {
	db *pgxpool.Pool
}

func NewShiftRepository(db *pgxpool.Pool) ShiftRepository {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, s *models.ShiftSession) error {
	if s == nil {
		return fmt.Errorf("%w: session cannot be nil", ErrInvalidInput)
	}
	if s.ID == "" || s.CashierID == "" {
		return fmt.Errorf("%w: session id and cashier id required", ErrInvalidInput)
	}

	sql := `
		INSERT INTO shifts (id, cashier_id, started_at, opening_float)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(ctx, sql, s.ID, s.CashierID, s.StartedAt, s.OpeningFloat)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: cashier %s already has an open shift", ErrDuplicate, s.CashierID)
		}
		return fmt.Errorf("failed to create shift: %w", err)
	}

	return nil
}

func (r *shiftRepo) FindOpen(ctx context.Context, cashierID string) (*models.ShiftSession, error) {
	if cashierID == "" {
		return nil, fmt.Errorf("%w: cashier id cannot be empty", ErrInvalidInput)
	}

	sql := `
		SELECT id::text, cashier_id, started_at, ended_at, opening_float
		FROM shifts
		WHERE cashier_id = $1 AND ended_at IS NULL
		ORDER BY started_at DESC
		LIMIT 1
	`

	var s models.ShiftSession
	err := r.db.QueryRow(ctx, sql, cashierID).Scan(
		&s.ID,
		&s.CashierID,
		&s.StartedAt,
		&s.EndedAt,
		&s.OpeningFloat,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find open shift for %s: %w", cashierID, err)
	}

	return &s, nil
}

func (r *shiftRepo) Close(ctx context.Context, id string, endedAt time.Time) (*models.ShiftSession, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	sql := `
		UPDATE shifts SET ended_at = $1
		WHERE id = $2 AND ended_at IS NULL
		RETURNING id::text, cashier_id, started_at, ended_at, opening_float
	`

	var s models.ShiftSession
	err := r.db.QueryRow(ctx, sql, endedAt, id).Scan(
		&s.ID,
		&s.CashierID,
		&s.StartedAt,
		&s.EndedAt,
		&s.OpeningFloat,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to close shift %s: %w", id, err)
	}

	return &s, nil
}
