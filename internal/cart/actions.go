package cart

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sote-minimart/internal/models"
	"sote-minimart/internal/notify"
)

var ErrInvalidDiscount = errors.New("invalid discount")

// ValidationError explains why a product was refused. Category tells the UI
// whether to show it as an out-of-stock warning.
type ValidationError struct {
	Category notify.Category
	Reason   string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

type AddOptions struct {
	SkipValidation bool
	// Silent suppresses the per-item success toast.
	Silent   bool
	Discount decimal.Decimal
}

type Line struct {
	Product  models.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

type Actions struct {
	store    *Store
	notifier notify.Notifier
	debounce *Debouncer
	now      func() time.Time
	logger   *slog.Logger

	debounceMu sync.Mutex
}

type ActionsConfig struct {
	Notifier       notify.Notifier
	DebounceWindow time.Duration
	Clock          func() time.Time
	Logger         *slog.Logger
}

func NewActions(store *Store, cfg ActionsConfig) *Actions {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Actions{
		store:    store,
		notifier: cfg.Notifier,
		debounce: NewDebouncer(cfg.DebounceWindow),
		now:      cfg.Clock,
		logger:   cfg.Logger,
	}
}

func (a *Actions) Store() *Store {
	return a.store
}

// Validate checks a product may be sold now. inCart is the quantity already
// on the cart line for this product.
func Validate(p models.Product, quantity, inCart int, now time.Time) error {
	if quantity <= 0 {
		return &ValidationError{Category: notify.CategoryValidation, Reason: "Quantity must be at least 1"}
	}

	if p.ExpiryDate != nil && dateOf(*p.ExpiryDate).Before(dateOf(now)) {
		return &ValidationError{
			Category: notify.CategoryValidation,
			Reason:   fmt.Sprintf("%s expired on %s and cannot be sold", p.Name, p.ExpiryDate.Format("2006-01-02")),
		}
	}

	if !p.Price.IsPositive() {
		return &ValidationError{
			Category: notify.CategoryValidation,
			Reason:   fmt.Sprintf("%s has no valid selling price", p.Name),
		}
	}

	if p.StockQuantity != nil {
		stock := *p.StockQuantity
		if stock <= 0 {
			return &ValidationError{
				Category: notify.CategoryOutOfStock,
				Reason:   fmt.Sprintf("%s is out of stock", p.Name),
			}
		}
		if inCart+quantity > stock {
			return &ValidationError{
				Category: notify.CategoryOutOfStock,
				Reason:   fmt.Sprintf("Only %d %s of %s in stock", stock, unitOf(p), p.Name),
			}
		}
	}

	return nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func unitOf(p models.Product) string {
	if p.Unit == "" {
		return "units"
	}
	return p.Unit
}

// AddToCart validates the product and admits it. It returns false, with a
// warning toast and no cart change, when the product is refused.
func (a *Actions) AddToCart(p models.Product, quantity int, opts AddOptions) bool {
	if !opts.SkipValidation {
		if err := Validate(p, quantity, a.store.QuantityOf(p.ID), a.now()); err != nil {
			var verr *ValidationError
			category := notify.CategoryValidation
			if errors.As(err, &verr) {
				category = verr.Category
			}
			notify.Warning(a.notifier, category, err.Error())
			a.logger.Debug("product refused", "product_id", p.ID, "reason", err.Error())
			return false
		}
	} else if quantity <= 0 {
		return false
	}

	item := models.CartItemFromProduct(p, quantity)
	item.Discount = opts.Discount
	if err := a.store.AddItem(item); err != nil {
		notify.Warning(a.notifier, notify.CategoryValidation,
			fmt.Sprintf("Discount on %s must be between 0 and the line price", p.Name))
		a.logger.Debug("product refused", "product_id", p.ID, "reason", err.Error())
		return false
	}

	if !opts.Silent {
		notify.Success(a.notifier, notify.CategoryCart, fmt.Sprintf("Added %d x %s", quantity, p.Name))
	}

	return true
}

// AddMultipleToCart adds each line in order and reports how many were admitted.
// Refused lines are skipped.
func (a *Actions) AddMultipleToCart(lines []Line, opts AddOptions) int {
	opts.Silent = true

	added := 0
	for _, line := range lines {
		if a.AddToCart(line.Product, line.Quantity, opts) {
			added++
		}
	}

	msg := fmt.Sprintf("Added %d of %d items to cart", added, len(lines))
	if added > 0 {
		notify.Success(a.notifier, notify.CategoryCart, msg)
	} else if len(lines) > 0 {
		notify.Warning(a.notifier, notify.CategoryCart, msg)
	}

	return added
}

// DebouncedAddToCart ignores repeat calls for the same product inside the
// debounce window that follows an accepted addition, e.g. a scanner firing twice.
func (a *Actions) DebouncedAddToCart(p models.Product, quantity int, opts AddOptions) bool {
	a.debounceMu.Lock()
	defer a.debounceMu.Unlock()

	now := a.now()
	if a.debounce.Suppressed(p.ID, now) {
		a.logger.Debug("duplicate add suppressed", "product_id", p.ID)
		return false
	}

	if !a.AddToCart(p, quantity, opts) {
		return false
	}

	a.debounce.Mark(p.ID, now)
	return true
}

func (a *Actions) RemoveFromCart(productID string) error {
	if err := a.store.Remove(productID); err != nil {
		return err
	}
	notify.Info(a.notifier, notify.CategoryCart, "Item removed from cart")
	return nil
}

// UpdateQuantity changes a line. Increases are checked against the cached
// stock of product when it is given.
func (a *Actions) UpdateQuantity(product *models.Product, productID string, quantity int) error {
	if product != nil && quantity > 0 && product.StockQuantity != nil && quantity > *product.StockQuantity {
		err := &ValidationError{
			Category: notify.CategoryOutOfStock,
			Reason:   fmt.Sprintf("Only %d %s of %s in stock", *product.StockQuantity, unitOf(*product), product.Name),
		}
		notify.Warning(a.notifier, err.Category, err.Reason)
		return err
	}
	return a.store.UpdateQuantity(productID, quantity)
}

func (a *Actions) ClearCart() {
	a.store.Clear()
	notify.Info(a.notifier, notify.CategoryCart, "Cart cleared")
}

func (a *Actions) HoldCart(label string) (HeldCart, error) {
	h, err := a.store.Hold(label, a.now())
	if err != nil {
		notify.Warning(a.notifier, notify.CategoryCart, "Nothing to hold")
		return HeldCart{}, err
	}
	notify.Info(a.notifier, notify.CategoryCart, fmt.Sprintf("Cart held (%d items)", len(h.Items)))
	return h, nil
}

func (a *Actions) RecallCart(id string) (HeldCart, error) {
	h, err := a.store.Recall(id)
	if err != nil {
		notify.Warning(a.notifier, notify.CategoryCart, "Could not recall held cart: "+err.Error())
		return HeldCart{}, err
	}
	notify.Info(a.notifier, notify.CategoryCart, "Held cart recalled")
	return h, nil
}
