package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sote-minimart/internal/models"
	"sote-minimart/internal/notify"
	"sote-minimart/internal/repository"
	"sote-minimart/internal/session"
)

var (
	ErrNoShift            = errors.New("no active shift")
	ErrNotSignedIn        = errors.New("no cashier signed in")
	ErrInsufficientTender = errors.New("amount tendered is less than total")
	ErrPaymentMethod      = errors.New("unsupported payment method")
)

var paymentMethods = map[string]bool{
	"cash":  true,
	"mpesa": true,
	"card":  true,
}

// StockRecorder receives one call per stock change. Implementations must not block.
type StockRecorder interface {
	LogStockChange(productID string, oldQuantity, newQuantity int, changeType models.StockChangeType, notes string)
}

type ShiftProvider interface {
	CurrentShiftID() (string, bool)
}

// StockPublisher tells other terminals about stock written by this one.
type StockPublisher interface {
	PublishStockMovements(ctx context.Context, movements []models.StockMovement) error
}

type CheckoutRequest struct {
	PaymentMethod string          `json:"payment_method"`
	Tendered      decimal.Decimal `json:"tendered"`
}

type Receipt struct {
	Sale   models.Sale       `json:"sale"`
	Items  []models.CartItem `json:"items"`
	Change decimal.Decimal   `json:"change"`
}

type Checkout struct {
	store      *Store
	sales      repository.SaleRepository
	activities repository.ActivityRepository
	audit      StockRecorder
	shifts     ShiftProvider
	auth       session.Provider
	publisher  StockPublisher
	notifier   notify.Notifier
	terminalID string
	now        func() time.Time
	logger     *slog.Logger
}

type CheckoutConfig struct {
	Sales      repository.SaleRepository
	Activities repository.ActivityRepository
	Audit      StockRecorder
	Shifts     ShiftProvider
	Auth       session.Provider
	Publisher  StockPublisher
	Notifier   notify.Notifier
	TerminalID string
	Clock      func() time.Time
	Logger     *slog.Logger
}

func NewCheckout(store *Store, cfg CheckoutConfig) *Checkout {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Checkout{
		store:      store,
		sales:      cfg.Sales,
		activities: cfg.Activities,
		audit:      cfg.Audit,
		shifts:     cfg.Shifts,
		auth:       cfg.Auth,
		publisher:  cfg.Publisher,
		notifier:   cfg.Notifier,
		terminalID: cfg.TerminalID,
		now:        cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Complete persists the cart as a sale. On success the sold lines leave the
// cart and a sale audit entry is queued per stock movement; on failure the
// cart is kept.
func (c *Checkout) Complete(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	items := c.store.Items()
	if len(items) == 0 {
		notify.Warning(c.notifier, notify.CategoryCart, "Cart is empty")
		return nil, ErrEmptyCart
	}

	if !paymentMethods[req.PaymentMethod] {
		notify.Warning(c.notifier, notify.CategoryValidation, fmt.Sprintf("Unsupported payment method %q", req.PaymentMethod))
		return nil, fmt.Errorf("%w: %s", ErrPaymentMethod, req.PaymentMethod)
	}

	identity, ok := c.auth.Current()
	if !ok {
		notify.Error(c.notifier, notify.CategoryShift, "Sign in before completing a sale")
		return nil, ErrNotSignedIn
	}

	shiftID, ok := c.shifts.CurrentShiftID()
	if !ok {
		notify.Error(c.notifier, notify.CategoryShift, "Start a shift before completing a sale")
		return nil, ErrNoShift
	}

	totals := ComputeTotals(items)
	tendered := req.Tendered
	if req.PaymentMethod != "cash" && tendered.IsZero() {
		tendered = totals.Total
	}
	if tendered.LessThan(totals.Total) {
		notify.Warning(c.notifier, notify.CategoryValidation, "Amount tendered is less than the total")
		return nil, ErrInsufficientTender
	}

	sale := models.Sale{
		ID:            uuid.NewString(),
		ShiftID:       shiftID,
		CashierID:     identity.CashierID,
		TerminalID:    c.terminalID,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Tax:           totals.Tax,
		Total:         totals.Total,
		PaymentMethod: req.PaymentMethod,
		Tendered:      tendered,
		CreatedAt:     c.now(),
	}

	saleItems := make([]models.SaleItem, 0, len(items))
	for _, item := range items {
		saleItems = append(saleItems, models.SaleItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.SellingPrice,
			UnitCost:  item.BuyingPrice,
			Discount:  item.Discount,
			TaxRate:   item.TaxRate,
		})
	}

	movements, err := c.sales.Create(ctx, &sale, saleItems)
	if err != nil {
		c.logger.Error("checkout failed", "operation", "checkout", "sale_id", sale.ID, "error", err)
		if errors.Is(err, repository.ErrNotEnough) {
			notify.Error(c.notifier, notify.CategoryOutOfStock, "Sale not saved: "+err.Error())
		} else {
			notify.Error(c.notifier, notify.CategoryRemote, "Sale not saved, please retry")
		}
		return nil, fmt.Errorf("checkout: %w", err)
	}

	c.store.RemoveSold(items)

	if c.audit != nil {
		for _, m := range movements {
			c.audit.LogStockChange(m.ProductID, m.Before, m.After, models.ChangeSale, "sale "+sale.ID)
		}
	}

	c.recordActivity(ctx, identity.CashierID, sale)

	if c.publisher != nil && len(movements) > 0 {
		if err := c.publisher.PublishStockMovements(ctx, movements); err != nil {
			c.logger.Warn("failed to publish stock movements", "sale_id", sale.ID, "error", err)
		}
	}

	change := tendered.Sub(totals.Total)
	notify.Success(c.notifier, notify.CategoryCart,
		fmt.Sprintf("Sale completed: total %s, change %s", totals.Total.StringFixed(2), change.StringFixed(2)))

	return &Receipt{Sale: sale, Items: items, Change: change}, nil
}

func (c *Checkout) recordActivity(ctx context.Context, actorID string, sale models.Sale) {
	if c.activities == nil {
		return
	}

	err := c.activities.Create(ctx, &models.Activity{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		Action:     "sale_completed",
		EntityType: "sale",
		EntityID:   sale.ID,
		Details: map[string]any{
			"total":          sale.Total.StringFixed(2),
			"payment_method": sale.PaymentMethod,
			"terminal_id":    sale.TerminalID,
		},
		CreatedAt: c.now(),
	})
	if err != nil {
		c.logger.Warn("failed to record sale activity", "sale_id", sale.ID, "error", err)
	}
}
