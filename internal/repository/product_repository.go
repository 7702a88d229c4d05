package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sote-minimart/internal/models"
)

type productRepo struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) ProductRepository {
	return &productRepo{db: db}
}

const productColumns = `
	id::text,
	name,
	unit,
	stock_quantity,
	cost,
	price,
	tax_rate,
	category,
	expiry_date,
	reorder_level,
	updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Unit,
		&p.StockQuantity,
		&p.Cost,
		&p.Price,
		&p.TaxRate,
		&p.Category,
		&p.ExpiryDate,
		&p.ReorderLevel,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepo) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: invalid product id %q", ErrInvalidInput, id)
	}

	sql := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by id %s: %w", id, err)
	}

	return product, nil
}

func (r *productRepo) GetAll(ctx context.Context) ([]models.Product, error) {
	sql := `SELECT ` + productColumns + ` FROM products ORDER BY name`

	return r.list(ctx, sql)
}

func (r *productRepo) GetByCategory(ctx context.Context, category string) ([]models.Product, error) {
	if category == "" {
		return nil, fmt.Errorf("%w: category cannot be empty", ErrInvalidInput)
	}

	sql := `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY name`

	return r.list(ctx, sql, category)
}

func (r *productRepo) list(ctx context.Context, sql string, args ...any) ([]models.Product, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan products: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return products, nil
}

func (r *productRepo) AdjustStock(ctx context.Context, id string, change int) (*models.StockMovement, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}
	if change == 0 {
		return nil, fmt.Errorf("%w: stock change cannot be 0", ErrInvalidInput)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	movement, err := adjustStockTx(ctx, tx, id, change)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return movement, nil
}

// adjustStockTx locks the product row, checks the result stays non-negative and
// writes the new quantity.
func adjustStockTx(ctx context.Context, tx pgx.Tx, id string, change int) (*models.StockMovement, error) {
	var (
		name    string
		current *int
	)

	err := tx.QueryRow(ctx,
		`SELECT name, stock_quantity FROM products WHERE id = $1 FOR UPDATE`, id,
	).Scan(&name, &current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock product %s: %w", id, err)
	}

	if current == nil {
		return nil, fmt.Errorf("product %s: %w", id, ErrUntracked)
	}

	after := *current + change
	if after < 0 {
		return nil, fmt.Errorf("%w: insufficient quantity for %s. Current: %d, Requested change: %d",
			ErrNotEnough, name, *current, change)
	}

	_, err = tx.Exec(ctx,
		`UPDATE products SET stock_quantity = $1, updated_at = $2 WHERE id = $3`,
		after, time.Now(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update product quantity %s: %w", id, err)
	}

	return &models.StockMovement{
		ProductID: id,
		Name:      name,
		Before:    *current,
		After:     after,
	}, nil
}
