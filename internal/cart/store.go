// Package cart holds the active transaction of a terminal and the actions
// that admit products into it.
package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sote-minimart/internal/models"
)

var (
	ErrItemNotFound = errors.New("item not in cart")
	ErrCartNotEmpty = errors.New("cart is not empty")
	ErrHeldNotFound = errors.New("held cart not found")
	ErrEmptyCart    = errors.New("cart is empty")
)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	Items    int             `json:"items"`
	Units    int             `json:"units"`
}

type HeldCart struct {
	ID     string            `json:"id"`
	Label  string            `json:"label"`
	Items  []models.CartItem `json:"items"`
	HeldAt time.Time         `json:"held_at"`
}

// Store is the ordered list of lines for the transaction in progress.
// Insertion order is kept for the receipt.
type Store struct {
	mu    sync.Mutex
	items []models.CartItem
	held  []HeldCart
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) indexOf(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem merges the quantity into an existing line for the same product or
// appends a new line. Non-positive quantities are ignored. The discount of the
// resulting line must stay between zero and its gross, otherwise nothing
// changes and ErrInvalidDiscount is returned.
func (s *Store) AddItem(item models.CartItem) error {
	if item.Quantity <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := item
	i := s.indexOf(item.ProductID)
	if i >= 0 {
		merged = s.items[i]
		merged.Quantity += item.Quantity
		merged.Discount = merged.Discount.Add(item.Discount)
	}
	if merged.Discount.IsNegative() || (merged.Discount.IsPositive() && merged.Discount.GreaterThan(merged.Gross())) {
		return ErrInvalidDiscount
	}

	if i >= 0 {
		s.items[i] = merged
		return nil
	}
	s.items = append(s.items, item)
	return nil
}

// QuantityOf returns the quantity already in the cart for a product.
func (s *Store) QuantityOf(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(productID); i >= 0 {
		return s.items[i].Quantity
	}
	return 0
}

func (s *Store) Remove(productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return ErrItemNotFound
	}

	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// UpdateQuantity sets the line quantity; zero or less removes the line.
func (s *Store) UpdateQuantity(productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return ErrItemNotFound
	}

	if quantity <= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
		return nil
	}

	s.items[i].Quantity = quantity
	return nil
}

func (s *Store) SetDiscount(productID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return ErrItemNotFound
	}
	if amount.IsNegative() || amount.GreaterThan(s.items[i].Gross()) {
		return ErrInvalidDiscount
	}

	s.items[i].Discount = amount
	return nil
}

// RemoveSold takes the sold quantities and discounts off the cart. Lines
// added or grown after the snapshot was taken keep the remainder.
func (s *Store) RemoveSold(sold []models.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range sold {
		i := s.indexOf(item.ProductID)
		if i < 0 {
			continue
		}

		left := s.items[i].Quantity - item.Quantity
		if left <= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
			continue
		}

		s.items[i].Quantity = left
		discount := s.items[i].Discount.Sub(item.Discount)
		if discount.IsNegative() {
			discount = decimal.Zero
		}
		s.items[i].Discount = discount
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
}

func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Totals() Totals {
	return ComputeTotals(s.Items())
}

func ComputeTotals(items []models.CartItem) Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Tax:      decimal.Zero,
	}

	for _, item := range items {
		t.Subtotal = t.Subtotal.Add(item.Gross())
		t.Discount = t.Discount.Add(item.Discount)
		t.Tax = t.Tax.Add(item.Tax())
		t.Units += item.Quantity
	}

	t.Items = len(items)
	t.Total = t.Subtotal.Sub(t.Discount).Add(t.Tax)
	return t
}

// Hold parks the current lines under a new id and empties the cart.
func (s *Store) Hold(label string, now time.Time) (HeldCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return HeldCart{}, ErrEmptyCart
	}

	h := HeldCart{
		ID:     uuid.NewString(),
		Label:  label,
		Items:  s.items,
		HeldAt: now,
	}
	s.held = append(s.held, h)
	s.items = nil

	return h, nil
}

func (s *Store) Held() []HeldCart {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]HeldCart, len(s.held))
	copy(out, s.held)
	return out
}

// Recall restores a held cart. The active cart must be empty.
func (s *Store) Recall(id string) (HeldCart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) > 0 {
		return HeldCart{}, ErrCartNotEmpty
	}

	for i, h := range s.held {
		if h.ID == id {
			s.items = h.Items
			s.held = append(s.held[:i], s.held[i+1:]...)
			return h, nil
		}
	}

	return HeldCart{}, ErrHeldNotFound
}
