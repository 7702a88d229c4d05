package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"sote-minimart/internal/models"
)

type stockAuditRepo struct {
	db *pgxpool.Pool
}

func NewStockAuditRepository(db *pgxpool.Pool) StockAuditRepository {
	return &stockAuditRepo{db: db}
}

func (r *stockAuditRepo) Create(ctx context.Context, e *models.StockAuditEntry) error {
	if e == nil {
		return fmt.Errorf("%w: audit entry cannot be nil", ErrInvalidInput)
	}
	if e.ID == "" || e.ProductID == "" {
		return fmt.Errorf("%w: entry id and product id required", ErrInvalidInput)
	}
	if !e.ChangeType.Valid() {
		return fmt.Errorf("%w: invalid change type '%s'", ErrInvalidInput, e.ChangeType)
	}

	sql := `
		INSERT INTO stock_audit (
			id,
			product_id,
			quantity_before,
			quantity_after,
			delta,
			change_type,
			actor_id,
			notes,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, sql,
		e.ID,
		e.ProductID,
		e.QuantityBefore,
		e.QuantityAfter,
		e.Delta,
		string(e.ChangeType),
		e.ActorID,
		e.Notes,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create stock audit entry: %w", err)
	}

	return nil
}

func (r *stockAuditRepo) List(ctx context.Context, productID *string, limit int) ([]models.StockAuditEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	sql := `
		SELECT
			id::text,
			product_id::text,
			quantity_before,
			quantity_after,
			delta,
			change_type,
			actor_id,
			notes,
			created_at
		FROM stock_audit
		WHERE ($1::uuid IS NULL OR product_id = $1::uuid)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, sql, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock audit: %w", err)
	}
	defer rows.Close()

	entries := []models.StockAuditEntry{}
	for rows.Next() {
		var (
			e          models.StockAuditEntry
			changeType string
		)
		err := rows.Scan(
			&e.ID,
			&e.ProductID,
			&e.QuantityBefore,
			&e.QuantityAfter,
			&e.Delta,
			&changeType,
			&e.ActorID,
			&e.Notes,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock audit entry: %w", err)
		}
		e.ChangeType = models.StockChangeType(changeType)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return entries, nil
}
