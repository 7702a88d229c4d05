package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sote-minimart/internal/models"
)

type saleRepo struct {
	db *pgxpool.Pool
}

func NewSaleRepository(db *pgxpool.Pool) SaleRepository {
	return &saleRepo{db: db}
}

func (r *saleRepo) Create(ctx context.Context, sale *models.Sale, items []models.SaleItem) ([]models.StockMovement, error) {
	if sale == nil {
		return nil, fmt.Errorf("%w: sale cannot be nil", ErrInvalidInput)
	}
	if sale.ID == "" || sale.ShiftID == "" {
		return nil, fmt.Errorf("%w: sale id and shift id required", ErrInvalidInput)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: sale items cannot be empty", ErrInvalidInput)
	}

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
		}
		if !item.UnitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
		}
		if item.ProductID == "" {
			return nil, fmt.Errorf("%w: product ID cannot be empty", ErrInvalidInput)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO sales (
			id,
			shift_id,
			cashier_id,
			terminal_id,
			subtotal,
			discount,
			tax,
			total,
			payment_method,
			tendered,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.Exec(ctx, insert,
		sale.ID,
		sale.ShiftID,
		sale.CashierID,
		sale.TerminalID,
		sale.Subtotal,
		sale.Discount,
		sale.Tax,
		sale.Total,
		sale.PaymentMethod,
		sale.Tendered,
		sale.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	insertItemSQL := `
		INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, unit_cost, discount, tax_rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var movements []models.StockMovement
	for _, item := range items {
		_, err = tx.Exec(ctx, insertItemSQL,
			sale.ID,
			item.ProductID,
			item.Quantity,
			item.UnitPrice,
			item.UnitCost,
			item.Discount,
			item.TaxRate,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create sale item: %w", err)
		}

		movement, err := adjustStockTx(ctx, tx, item.ProductID, -item.Quantity)
		if errors.Is(err, ErrUntracked) {
			continue
		}
		if err != nil {
			return nil, err
		}
		movements = append(movements, *movement)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return movements, nil
}

func (r *saleRepo) SummaryForShift(ctx context.Context, shiftID string) (*models.ShiftSummary, error) {
	if shiftID == "" {
		return nil, fmt.Errorf("%w: shift ID cannot be empty", ErrInvalidInput)
	}

	sql := `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM sales WHERE shift_id = $1`

	var summary models.ShiftSummary
	if err := r.db.QueryRow(ctx, sql, shiftID).Scan(&summary.SalesCount, &summary.Total); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &summary, nil
		}
		return nil, fmt.Errorf("failed to summarise shift %s: %w", shiftID, err)
	}

	return &summary, nil
}
