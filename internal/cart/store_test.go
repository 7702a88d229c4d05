package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sote-minimart/internal/models"
)

func line(id string, qty int, price int64) models.CartItem {
	return models.CartItem{
		ProductID:    id,
		Name:         id,
		SellingPrice: decimal.NewFromInt(price),
		Quantity:     qty,
	}
}

func TestSubtotalAndMerge(t *testing.T) {
	s := NewStore()
	s.AddItem(line("A", 2, 100))
	s.AddItem(line("B", 1, 50))

	assert.True(t, decimal.NewFromInt(250).Equal(s.Totals().Subtotal))

	s.AddItem(line("A", 1, 100))

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(350).Equal(s.Totals().Subtotal))
}

func TestInsertionOrderKept(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"C", "A", "B"} {
		s.AddItem(line(id, 1, 10))
	}
	s.AddItem(line("A", 4, 10))

	var ids []string
	for _, item := range s.Items() {
		ids = append(ids, item.ProductID)
	}
	assert.Equal(t, []string{"C", "A", "B"}, ids)
}

func TestZeroQuantityRemovesLine(t *testing.T) {
	s := NewStore()
	s.AddItem(line("A", 2, 100))
	s.AddItem(line("B", 0, 100))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.UpdateQuantity("A", 0))
	assert.Equal(t, 0, s.Len())

	assert.ErrorIs(t, s.UpdateQuantity("A", 3), ErrItemNotFound)
	assert.ErrorIs(t, s.Remove("A"), ErrItemNotFound)
}

func TestTotalsWithDiscountAndTax(t *testing.T) {
	s := NewStore()
	item := line("A", 2, 100)
	item.TaxRate = decimal.NewFromInt(16)
	s.AddItem(item)
	s.AddItem(line("B", 1, 50))

	require.NoError(t, s.SetDiscount("A", decimal.NewFromInt(20)))
	assert.ErrorIs(t, s.SetDiscount("B", decimal.NewFromInt(60)), ErrInvalidDiscount)

	totals := s.Totals()
	assert.True(t, decimal.NewFromInt(250).Equal(totals.Subtotal))
	assert.True(t, decimal.NewFromInt(20).Equal(totals.Discount))
	// 16% of (200 - 20)
	assert.True(t, decimal.RequireFromString("28.8").Equal(totals.Tax), totals.Tax.String())
	assert.True(t, decimal.RequireFromString("258.8").Equal(totals.Total), totals.Total.String())
	assert.Equal(t, 3, totals.Units)
	assert.Equal(t, 2, totals.Items)
}

func TestAddItemRejectsBadDiscount(t *testing.T) {
	s := NewStore()

	negative := line("A", 1, 100)
	negative.Discount = decimal.NewFromInt(-50)
	assert.ErrorIs(t, s.AddItem(negative), ErrInvalidDiscount)
	assert.Equal(t, 0, s.Len())

	discounted := line("A", 1, 100)
	discounted.Discount = decimal.NewFromInt(80)
	require.NoError(t, s.AddItem(discounted))

	// 80 + 150 is more than the merged gross of 200
	more := line("A", 1, 100)
	more.Discount = decimal.NewFromInt(150)
	assert.ErrorIs(t, s.AddItem(more), ErrInvalidDiscount)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(80).Equal(items[0].Discount))
	assert.False(t, s.Totals().Total.IsNegative())
}

func TestRemoveSold(t *testing.T) {
	s := NewStore()
	a := line("A", 2, 100)
	a.Discount = decimal.NewFromInt(10)
	require.NoError(t, s.AddItem(a))
	require.NoError(t, s.AddItem(line("B", 1, 50)))
	sold := s.Items()

	extra := line("A", 3, 100)
	extra.Discount = decimal.NewFromInt(5)
	require.NoError(t, s.AddItem(extra))
	require.NoError(t, s.AddItem(line("C", 1, 20)))

	s.RemoveSold(sold)

	items := s.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ProductID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.True(t, decimal.NewFromInt(5).Equal(items[0].Discount))
	assert.Equal(t, "C", items[1].ProductID)
}

func TestHoldAndRecall(t *testing.T) {
	s := NewStore()
	_, err := s.Hold("empty", time.Now())
	assert.ErrorIs(t, err, ErrEmptyCart)

	s.AddItem(line("A", 1, 100))
	held, err := s.Hold("table 4", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Len(t, s.Held(), 1)

	s.AddItem(line("B", 1, 10))
	_, err = s.Recall(held.ID)
	assert.ErrorIs(t, err, ErrCartNotEmpty)

	s.Clear()
	_, err = s.Recall("missing")
	assert.ErrorIs(t, err, ErrHeldNotFound)

	restored, err := s.Recall(held.ID)
	require.NoError(t, err)
	assert.Equal(t, "table 4", restored.Label)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Held())
}

func TestDebouncerWindowPerKey(t *testing.T) {
	d := NewDebouncer(time.Second)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.False(t, d.Suppressed("A", start))
	d.Mark("A", start)

	assert.True(t, d.Suppressed("A", start.Add(500*time.Millisecond)))
	assert.False(t, d.Suppressed("B", start.Add(500*time.Millisecond)))
	assert.False(t, d.Suppressed("A", start.Add(time.Second)))
	assert.Equal(t, 0, d.Len())
}
