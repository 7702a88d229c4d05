package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the terminal's cached projection of a catalogue row.
// StockQuantity is nil for items whose stock is not tracked.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	StockQuantity *int            `json:"stock_quantity"`
	Cost          decimal.Decimal `json:"cost"`
	Price         decimal.Decimal `json:"price"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	Category      string          `json:"category"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	ReorderLevel  *int            `json:"reorder_level,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (p Product) Tracked() bool {
	return p.StockQuantity != nil
}

type CartItem struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	BuyingPrice  decimal.Decimal `json:"buying_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Quantity     int             `json:"quantity"`
	Discount     decimal.Decimal `json:"discount"`
	ExpiryDate   *time.Time      `json:"expiry_date,omitempty"`
	ReorderLevel *int            `json:"reorder_level,omitempty"`
}

// Gross is selling price times quantity, before discount and tax.
func (c CartItem) Gross() decimal.Decimal {
	return c.SellingPrice.Mul(decimal.NewFromInt(int64(c.Quantity)))
}

func (c CartItem) LineTotal() decimal.Decimal {
	return c.Gross().Sub(c.Discount)
}

// Tax is charged on the discounted line total; TaxRate is a percentage.
func (c CartItem) Tax() decimal.Decimal {
	return c.LineTotal().Mul(c.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
}

// CartItemFromProduct copies the fields a cart line needs from a product.
func CartItemFromProduct(p Product, quantity int) CartItem {
	return CartItem{
		ProductID:    p.ID,
		Name:         p.Name,
		Unit:         p.Unit,
		BuyingPrice:  p.Cost,
		SellingPrice: p.Price,
		TaxRate:      p.TaxRate,
		Quantity:     quantity,
		ExpiryDate:   p.ExpiryDate,
		ReorderLevel: p.ReorderLevel,
	}
}

type ShiftSession struct {
	ID           string          `json:"id"`
	CashierID    string          `json:"cashier_id"`
	StartedAt    time.Time       `json:"started_at"`
	EndedAt      *time.Time      `json:"ended_at"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

func (s ShiftSession) Open() bool {
	return s.EndedAt == nil
}

type StockChangeType string

const (
	ChangeRestock         StockChangeType = "restock"
	ChangeSale            StockChangeType = "sale"
	ChangeExpired         StockChangeType = "expired"
	ChangeAdjustment      StockChangeType = "adjustment"
	ChangeOrderCompletion StockChangeType = "order_completion"
)

func (t StockChangeType) Valid() bool {
	switch t {
	case ChangeRestock, ChangeSale, ChangeExpired, ChangeAdjustment, ChangeOrderCompletion:
		return true
	}
	return false
}

type StockAuditEntry struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"product_id"`
	QuantityBefore int             `json:"quantity_before"`
	QuantityAfter  int             `json:"quantity_after"`
	Delta          int             `json:"delta"`
	ChangeType     StockChangeType `json:"change_type"`
	ActorID        *string         `json:"actor_id"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// Active reports whether the order still needs attention at the counter.
func (s OrderStatus) Active() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing:
		return true
	}
	return false
}

type Order struct {
	ID           string          `json:"id"`
	Status       OrderStatus     `json:"status"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Activity struct {
	ID         string         `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Sale struct {
	ID            string          `json:"id"`
	ShiftID       string          `json:"shift_id"`
	CashierID     string          `json:"cashier_id"`
	TerminalID    string          `json:"terminal_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Tendered      decimal.Decimal `json:"tendered"`
	CreatedAt     time.Time       `json:"created_at"`
}

type SaleItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	Discount  decimal.Decimal `json:"discount"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

// StockMovement is the before/after stock of one product touched by a write.
type StockMovement struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
}

type ShiftSummary struct {
	SalesCount int             `json:"sales_count"`
	Total      decimal.Decimal `json:"total"`
}

// ReportRow is one line returned by an accounting report function.
type ReportRow struct {
	Section string          `json:"section"`
	Code    string          `json:"code"`
	Label   string          `json:"label"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Amount  decimal.Decimal `json:"amount"`
}
