package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sote-minimart/internal/models"
	"sote-minimart/internal/notify"
	"sote-minimart/internal/repository"
	"sote-minimart/internal/session"
)

type fakeSales struct {
	err error
	// during runs inside Create, before the sale is recorded.
	during func()
	sales []models.Sale
	items [][]models.SaleItem
	stock map[string]int
}

func (f *fakeSales) Create(ctx context.Context, sale *models.Sale, items []models.SaleItem) ([]models.StockMovement, error) {
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	f.sales = append(f.sales, *sale)
	f.items = append(f.items, items)

	var movements []models.StockMovement
	for _, item := range items {
		before, tracked := f.stock[item.ProductID]
		if !tracked {
			continue
		}
		f.stock[item.ProductID] = before - item.Quantity
		movements = append(movements, models.StockMovement{ProductID: item.ProductID, Before: before, After: before - item.Quantity})
	}
	return movements, nil
}

func (f *fakeSales) SummaryForShift(ctx context.Context, shiftID string) (*models.ShiftSummary, error) {
	return &models.ShiftSummary{SalesCount: len(f.sales)}, nil
}

type recordedChange struct {
	productID string
	old, new  int
	kind      models.StockChangeType
}

type fakeAudit struct {
	changes []recordedChange
}

func (f *fakeAudit) LogStockChange(productID string, oldQuantity, newQuantity int, changeType models.StockChangeType, notes string) {
	f.changes = append(f.changes, recordedChange{productID, oldQuantity, newQuantity, changeType})
}

type fixedShift struct{ id string }

func (s fixedShift) CurrentShiftID() (string, bool) { return s.id, s.id != "" }

type fakeActivities struct{ created []models.Activity }

func (f *fakeActivities) Create(ctx context.Context, a *models.Activity) error {
	f.created = append(f.created, *a)
	return nil
}

type fakePublisher struct{ published []models.StockMovement }

func (f *fakePublisher) PublishStockMovements(ctx context.Context, m []models.StockMovement) error {
	f.published = append(f.published, m...)
	return nil
}

type checkoutFixture struct {
	store      *Store
	sales      *fakeSales
	audit      *fakeAudit
	activities *fakeActivities
	publisher  *fakePublisher
	rec        *notify.Recorder
	checkout   *Checkout
}

func newCheckoutFixture(shiftID string, auth *session.Context) *checkoutFixture {
	f := &checkoutFixture{
		store:      NewStore(),
		sales:      &fakeSales{stock: map[string]int{"A": 10}},
		audit:      &fakeAudit{},
		activities: &fakeActivities{},
		publisher:  &fakePublisher{},
		rec:        &notify.Recorder{},
	}
	f.checkout = NewCheckout(f.store, CheckoutConfig{
		Sales:      f.sales,
		Activities: f.activities,
		Audit:      f.audit,
		Shifts:     fixedShift{id: shiftID},
		Auth:       auth,
		Publisher:  f.publisher,
		Notifier:   f.rec,
		TerminalID: "till-1",
		Clock:      func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) },
	})
	return f
}

func signedIn() *session.Context {
	return session.NewContext(&session.Identity{CashierID: "cashier-7"})
}

func TestCheckoutPersistsAndClears(t *testing.T) {
	f := newCheckoutFixture("shift-1", signedIn())
	f.store.AddItem(line("A", 2, 100))
	f.store.AddItem(line("bag", 1, 5))

	receipt, err := f.checkout.Complete(context.Background(), CheckoutRequest{
		PaymentMethod: "cash",
		Tendered:      decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, f.store.Len())
	require.Len(t, f.sales.sales, 1)
	sale := f.sales.sales[0]
	assert.Equal(t, "shift-1", sale.ShiftID)
	assert.Equal(t, "cashier-7", sale.CashierID)
	assert.True(t, decimal.NewFromInt(205).Equal(sale.Total))
	assert.True(t, decimal.NewFromInt(95).Equal(receipt.Change))
	assert.Len(t, receipt.Items, 2)

	require.Len(t, f.audit.changes, 1)
	assert.Equal(t, recordedChange{"A", 10, 8, models.ChangeSale}, f.audit.changes[0])
	assert.Len(t, f.publisher.published, 1)
	require.Len(t, f.activities.created, 1)
	assert.Equal(t, "sale_completed", f.activities.created[0].Action)
	assert.Equal(t, 1, f.rec.Count(notify.LevelSuccess))
}

func TestCheckoutKeepsLinesAddedDuringSave(t *testing.T) {
	f := newCheckoutFixture("shift-1", signedIn())
	f.store.AddItem(line("A", 2, 100))
	f.sales.during = func() {
		f.store.AddItem(line("A", 1, 100))
		f.store.AddItem(line("C", 1, 30))
	}

	receipt, err := f.checkout.Complete(context.Background(), CheckoutRequest{PaymentMethod: "card"})
	require.NoError(t, err)
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, 2, receipt.Items[0].Quantity)

	items := f.store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ProductID)
	assert.Equal(t, 1, items[0].Quantity)
	assert.Equal(t, "C", items[1].ProductID)
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	f := newCheckoutFixture("shift-1", signedIn())
	f.sales.err = fmt.Errorf("%w: insufficient quantity", repository.ErrNotEnough)
	f.store.AddItem(line("A", 2, 100))

	_, err := f.checkout.Complete(context.Background(), CheckoutRequest{PaymentMethod: "card"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrNotEnough))

	assert.Equal(t, 1, f.store.Len())
	assert.Empty(t, f.audit.changes)
	all := f.rec.All()
	require.Len(t, all, 1)
	assert.Equal(t, notify.LevelError, all[0].Level)
	assert.Equal(t, notify.CategoryOutOfStock, all[0].Category)
}

func TestCheckoutPreconditions(t *testing.T) {
	ctx := context.Background()

	f := newCheckoutFixture("shift-1", signedIn())
	_, err := f.checkout.Complete(ctx, CheckoutRequest{PaymentMethod: "cash"})
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.store.AddItem(line("A", 1, 100))
	_, err = f.checkout.Complete(ctx, CheckoutRequest{PaymentMethod: "cheque"})
	assert.ErrorIs(t, err, ErrPaymentMethod)

	_, err = f.checkout.Complete(ctx, CheckoutRequest{PaymentMethod: "cash", Tendered: decimal.NewFromInt(50)})
	assert.ErrorIs(t, err, ErrInsufficientTender)

	noShift := newCheckoutFixture("", signedIn())
	noShift.store.AddItem(line("A", 1, 100))
	_, err = noShift.checkout.Complete(ctx, CheckoutRequest{PaymentMethod: "mpesa"})
	assert.ErrorIs(t, err, ErrNoShift)

	signedOut := newCheckoutFixture("shift-1", session.NewContext(nil))
	signedOut.store.AddItem(line("A", 1, 100))
	_, err = signedOut.checkout.Complete(ctx, CheckoutRequest{PaymentMethod: "mpesa"})
	assert.ErrorIs(t, err, ErrNotSignedIn)

	assert.Empty(t, f.sales.sales)
	assert.Equal(t, 1, f.store.Len())
}
