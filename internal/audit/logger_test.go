package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sote-minimart/internal/models"
	"sote-minimart/internal/notify"
	"sote-minimart/internal/session"
)

type fakeRepo struct {
	mu        sync.Mutex
	entries   []models.StockAuditEntry
	createErr error
	listErr   error
	block     chan struct{}
	lastLimit int
}

func (f *fakeRepo) Create(ctx context.Context, e *models.StockAuditEntry) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeRepo) List(ctx context.Context, productID *string, limit int) ([]models.StockAuditEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.StockAuditEntry
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if productID == nil || f.entries[i].ProductID == *productID {
			out = append(out, f.entries[i])
		}
	}
	return out, nil
}

func (f *fakeRepo) all() []models.StockAuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.StockAuditEntry(nil), f.entries...)
}

func TestLogStockChangeWritesDelta(t *testing.T) {
	repo := &fakeRepo{}
	auth := session.NewContext(&session.Identity{CashierID: "cashier-3"})
	l := NewLogger(Config{Repo: repo, Auth: auth})

	l.LogStockChange("p-1", 10, 7, models.ChangeSale, "sale s-1")
	l.LogStockChange("p-2", 0, 24, models.ChangeRestock, "")
	l.Close()

	entries := repo.all()
	require.Len(t, entries, 2)

	assert.Equal(t, -3, entries[0].Delta)
	assert.Equal(t, 10, entries[0].QuantityBefore)
	assert.Equal(t, 7, entries[0].QuantityAfter)
	assert.Equal(t, models.ChangeSale, entries[0].ChangeType)
	require.NotNil(t, entries[0].ActorID)
	assert.Equal(t, "cashier-3", *entries[0].ActorID)
	assert.NotEmpty(t, entries[0].ID)

	assert.Equal(t, 24, entries[1].Delta)
}

func TestActorResolvedAtCallTime(t *testing.T) {
	repo := &fakeRepo{}
	auth := session.NewContext(nil)
	l := NewLogger(Config{Repo: repo, Auth: auth})

	l.LogStockChange("p-1", 5, 4, models.ChangeAdjustment, "")
	auth.SignIn(session.Identity{CashierID: "late"})
	l.LogStockChange("p-1", 4, 3, models.ChangeAdjustment, "")
	l.Close()

	entries := repo.all()
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].ActorID)
	require.NotNil(t, entries[1].ActorID)
	assert.Equal(t, "late", *entries[1].ActorID)
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("permission denied for table stock_audit")}
	rec := &notify.Recorder{}
	l := NewLogger(Config{Repo: repo, Notifier: rec})

	assert.NotPanics(t, func() {
		l.LogStockChange("p-1", 3, 2, models.ChangeExpired, "binned")
	})
	l.Close()

	assert.Empty(t, repo.all())
	assert.Empty(t, rec.All())
}

func TestLogDoesNotBlockWhenQueueFull(t *testing.T) {
	repo := &fakeRepo{block: make(chan struct{})}
	l := NewLogger(Config{Repo: repo, QueueSize: 1})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			l.LogStockChange("p-1", i, i+1, models.ChangeRestock, "")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LogStockChange blocked")
	}

	close(repo.block)
	l.Close()
	assert.LessOrEqual(t, len(repo.all()), 2)
}

func TestInvalidAndClosedAreDropped(t *testing.T) {
	repo := &fakeRepo{}
	l := NewLogger(Config{Repo: repo})

	l.LogStockChange("p-1", 1, 2, "theft", "")
	l.LogStockChange("", 1, 2, models.ChangeRestock, "")
	l.Close()
	l.Close()

	assert.NotPanics(t, func() {
		l.LogStockChange("p-1", 1, 2, models.ChangeRestock, "")
	})
	assert.Empty(t, repo.all())
}

func TestGetStockAudit(t *testing.T) {
	repo := &fakeRepo{}
	l := NewLogger(Config{Repo: repo})
	l.LogStockChange("a", 1, 2, models.ChangeRestock, "")
	l.LogStockChange("b", 5, 4, models.ChangeSale, "")
	l.LogStockChange("a", 2, 1, models.ChangeSale, "")
	l.Close()

	ctx := context.Background()

	all := l.GetStockAudit(ctx, nil, 0)
	assert.Equal(t, DefaultLimit, repo.lastLimit)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].QuantityAfter)

	a := "a"
	onlyA := l.GetStockAudit(ctx, &a, 1)
	require.Len(t, onlyA, 1)
	assert.Equal(t, "a", onlyA[0].ProductID)
	assert.Equal(t, -1, onlyA[0].Delta)
}

func TestGetStockAuditFailure(t *testing.T) {
	repo := &fakeRepo{listErr: errors.New("timeout")}
	rec := &notify.Recorder{}
	l := NewLogger(Config{Repo: repo, Notifier: rec})
	defer l.Close()

	entries := l.GetStockAudit(context.Background(), nil, 10)

	assert.NotNil(t, entries)
	assert.Empty(t, entries)
	assert.Equal(t, 1, rec.Count(notify.LevelWarning))
}
