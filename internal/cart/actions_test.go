package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sote-minimart/internal/models"
	"sote-minimart/internal/notify"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func intPtr(v int) *int { return &v }

func product(id string, stock *int, price int64) models.Product {
	return models.Product{
		ID:            id,
		Name:          "Product " + id,
		StockQuantity: stock,
		Price:         decimal.NewFromInt(price),
		Cost:          decimal.NewFromInt(price / 2),
	}
}

func newActions(t *testing.T) (*Actions, *notify.Recorder, *fakeClock) {
	t.Helper()
	rec := &notify.Recorder{}
	clock := &fakeClock{t: time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)}
	a := NewActions(NewStore(), ActionsConfig{
		Notifier:       rec,
		DebounceWindow: time.Second,
		Clock:          clock.Now,
	})
	return a, rec, clock
}

func TestAddToCartRejectsNoStock(t *testing.T) {
	for _, stock := range []int{0, -1, -20} {
		a, rec, _ := newActions(t)

		ok := a.AddToCart(product("A", intPtr(stock), 100), 1, AddOptions{})

		assert.False(t, ok)
		assert.Equal(t, 0, a.Store().Len())
		all := rec.All()
		require.Len(t, all, 1)
		assert.Equal(t, notify.LevelWarning, all[0].Level)
		assert.Equal(t, notify.CategoryOutOfStock, all[0].Category)
	}
}

func TestAddToCartRejectsBadDiscount(t *testing.T) {
	for _, discount := range []int64{-50, 500} {
		a, rec, _ := newActions(t)

		ok := a.AddToCart(product("A", intPtr(5), 100), 1, AddOptions{Discount: decimal.NewFromInt(discount)})

		assert.False(t, ok)
		assert.Equal(t, 0, a.Store().Len())
		all := rec.All()
		require.Len(t, all, 1)
		assert.Equal(t, notify.LevelWarning, all[0].Level)
		assert.Equal(t, notify.CategoryValidation, all[0].Category)
	}

	a, _, _ := newActions(t)
	require.True(t, a.AddToCart(product("A", intPtr(5), 100), 2, AddOptions{Discount: decimal.NewFromInt(30)}))
	assert.True(t, decimal.NewFromInt(170).Equal(a.Store().Totals().Total))
}

func TestAddToCartRejectsExpired(t *testing.T) {
	a, rec, clock := newActions(t)
	p := product("A", intPtr(5), 100)
	yesterday := clock.Now().AddDate(0, 0, -1)
	p.ExpiryDate = &yesterday

	assert.False(t, a.AddToCart(p, 1, AddOptions{}))
	assert.Equal(t, 0, a.Store().Len())
	assert.Equal(t, notify.CategoryValidation, rec.All()[0].Category)

	assert.True(t, a.AddToCart(p, 1, AddOptions{SkipValidation: true}))
	assert.Equal(t, 1, a.Store().Len())
}

func TestExpiringTodayStillSellable(t *testing.T) {
	a, _, clock := newActions(t)
	p := product("A", intPtr(5), 100)
	midnight := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	p.ExpiryDate = &midnight
	require.True(t, midnight.Before(clock.Now()))

	assert.True(t, a.AddToCart(p, 1, AddOptions{}))
}

func TestAddToCartRejectsBadPriceAndQuantity(t *testing.T) {
	a, _, _ := newActions(t)

	assert.False(t, a.AddToCart(product("A", intPtr(5), 0), 1, AddOptions{}))
	assert.False(t, a.AddToCart(product("B", intPtr(5), -10), 1, AddOptions{}))
	assert.False(t, a.AddToCart(product("C", intPtr(5), 10), 0, AddOptions{}))
	assert.False(t, a.AddToCart(product("D", intPtr(5), 10), 0, AddOptions{SkipValidation: true}))
	assert.Equal(t, 0, a.Store().Len())
}

func TestUntrackedStockIsAdmitted(t *testing.T) {
	a, rec, _ := newActions(t)

	assert.True(t, a.AddToCart(product("bag", nil, 5), 3, AddOptions{}))
	assert.Equal(t, notify.LevelSuccess, rec.All()[0].Level)
}

func TestAddToCartMergesSameProduct(t *testing.T) {
	a, _, _ := newActions(t)
	p := product("A", intPtr(10), 100)

	require.True(t, a.AddToCart(p, 2, AddOptions{}))
	require.True(t, a.AddToCart(p, 3, AddOptions{}))

	items := a.Store().Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestAddToCartCannotExceedStock(t *testing.T) {
	a, rec, _ := newActions(t)
	p := product("A", intPtr(3), 100)

	require.True(t, a.AddToCart(p, 2, AddOptions{}))
	assert.False(t, a.AddToCart(p, 2, AddOptions{}))
	assert.Equal(t, 2, a.Store().QuantityOf("A"))
	assert.Equal(t, notify.CategoryOutOfStock, rec.All()[1].Category)
}

func TestSilentAdd(t *testing.T) {
	a, rec, _ := newActions(t)
	require.True(t, a.AddToCart(product("A", intPtr(3), 100), 1, AddOptions{Silent: true}))
	assert.Empty(t, rec.All())
}

func TestAddMultipleToCart(t *testing.T) {
	a, rec, _ := newActions(t)

	added := a.AddMultipleToCart([]Line{
		{Product: product("A", intPtr(5), 100), Quantity: 1},
		{Product: product("B", intPtr(0), 100), Quantity: 1},
		{Product: product("C", nil, 20), Quantity: 2},
	}, AddOptions{})

	assert.Equal(t, 2, added)
	assert.Equal(t, 2, a.Store().Len())

	// one refusal warning and one batch summary; no per-item success toasts
	assert.Equal(t, 1, rec.Count(notify.LevelSuccess))
	assert.Equal(t, "Added 2 of 3 items to cart", rec.All()[1].Message)
}

func TestAddMultipleNoneAdded(t *testing.T) {
	a, rec, _ := newActions(t)

	added := a.AddMultipleToCart([]Line{{Product: product("B", intPtr(0), 100), Quantity: 1}}, AddOptions{})

	assert.Equal(t, 0, added)
	assert.Equal(t, 0, rec.Count(notify.LevelSuccess))
	assert.Equal(t, 2, rec.Count(notify.LevelWarning))
}

func TestDebouncedAddToCart(t *testing.T) {
	a, _, clock := newActions(t)
	p := product("A", intPtr(10), 100)
	other := product("B", intPtr(10), 100)

	assert.True(t, a.DebouncedAddToCart(p, 1, AddOptions{}))
	clock.Advance(300 * time.Millisecond)
	assert.False(t, a.DebouncedAddToCart(p, 1, AddOptions{}))
	assert.True(t, a.DebouncedAddToCart(other, 1, AddOptions{}))

	clock.Advance(700 * time.Millisecond)
	assert.True(t, a.DebouncedAddToCart(p, 1, AddOptions{}))

	assert.Equal(t, 2, a.Store().QuantityOf("A"))
}

func TestDebounceStartsAtAcceptance(t *testing.T) {
	a, _, clock := newActions(t)
	empty := product("A", intPtr(0), 100)

	assert.False(t, a.DebouncedAddToCart(empty, 1, AddOptions{}))

	restocked := product("A", intPtr(4), 100)
	clock.Advance(100 * time.Millisecond)
	assert.True(t, a.DebouncedAddToCart(restocked, 1, AddOptions{}))
}

func TestUpdateQuantityChecksStock(t *testing.T) {
	a, _, _ := newActions(t)
	p := product("A", intPtr(4), 100)
	require.True(t, a.AddToCart(p, 1, AddOptions{}))

	err := a.UpdateQuantity(&p, "A", 9)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, notify.CategoryOutOfStock, verr.Category)

	require.NoError(t, a.UpdateQuantity(&p, "A", 3))
	assert.Equal(t, 3, a.Store().QuantityOf("A"))

	require.NoError(t, a.UpdateQuantity(nil, "A", 0))
	assert.Equal(t, 0, a.Store().Len())
}
