package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"sote-minimart/internal/models"
)

type activityRepo struct {
	db *pgxpool.Pool
}

func NewActivityRepository(db *pgxpool.Pool) ActivityRepository {
	return &activityRepo{db: db}
}

func (r *activityRepo) Create(ctx context.Context, a *models.Activity) error {
	if a == nil {
		return fmt.Errorf("%w: activity cannot be nil", ErrInvalidInput)
	}
	if a.ID == "" || a.Action == "" {
		return fmt.Errorf("%w: activity id and action required", ErrInvalidInput)
	}

	sql := `
		INSERT INTO activities (id, actor_id, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, sql,
		a.ID,
		a.ActorID,
		a.Action,
		a.EntityType,
		a.EntityID,
		a.Details,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}
