package repository

import (
	"context"
	"time"

	"sote-minimart/internal/models"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByCategory(ctx context.Context, category string) ([]models.Product, error)

	// AdjustStock applies change to a tracked product and reports the quantities
	// on either side of the write.
	AdjustStock(ctx context.Context, id string, change int) (*models.StockMovement, error)
}

type ShiftRepository interface {
	Create(ctx context.Context, session *models.ShiftSession) error
	FindOpen(ctx context.Context, cashierID string) (*models.ShiftSession, error)
	Close(ctx context.Context, id string, endedAt time.Time) (*models.ShiftSession, error)
}

type StockAuditRepository interface {
	Create(ctx context.Context, entry *models.StockAuditEntry) error
	List(ctx context.Context, productID *string, limit int) ([]models.StockAuditEntry, error)
}

type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetActive(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
}

type SaleRepository interface {
	// Create stores the sale with its items and decrements tracked stock in a
	// single transaction.
	Create(ctx context.Context, sale *models.Sale, items []models.SaleItem) ([]models.StockMovement, error)
	SummaryForShift(ctx context.Context, shiftID string) (*models.ShiftSummary, error)
}

type ReportRepository interface {
	Rows(ctx context.Context, query ReportQuery) ([]models.ReportRow, error)
}

type ReportQuery struct {
	Function  string
	From      *time.Time
	To        *time.Time
	AccountID *string
}
