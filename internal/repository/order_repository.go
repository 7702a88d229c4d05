package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sote-minimart/internal/models"
)

type orderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &orderRepo{db: db}
}

const orderColumns = `id::text, status, customer_name, total, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var (
		o      models.Order
		status string
	)
	if err := row.Scan(&o.ID, &status, &o.CustomerName, &o.Total, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = models.OrderStatus(status)
	return &o, nil
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order ID cannot be empty", ErrInvalidInput)
	}

	order, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order by id %s: %w", id, err)
	}

	return order, nil
}

func (r *orderRepo) GetActive(ctx context.Context) ([]models.Order, error) {
	sql := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ANY($1)
		ORDER BY created_at
	`

	active := []string{
		string(models.OrderPending),
		string(models.OrderConfirmed),
		string(models.OrderProcessing),
	}

	rows, err := r.db.Query(ctx, sql, active)
	if err != nil {
		return nil, fmt.Errorf("failed to get active orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return orders, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: order ID cannot be empty", ErrInvalidInput)
	}

	validStatuses := map[models.OrderStatus]bool{
		models.OrderPending:    true,
		models.OrderConfirmed:  true,
		models.OrderProcessing: true,
		models.OrderCompleted:  true,
		models.OrderCancelled:  true,
	}
	if !validStatuses[status] {
		return nil, fmt.Errorf("%w: invalid status '%s'", ErrInvalidInput, status)
	}

	sql := `
		UPDATE orders SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + orderColumns

	order, err := scanOrder(r.db.QueryRow(ctx, sql, string(status), time.Now(), id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update order status %s: %w", id, err)
	}

	return order, nil
}
