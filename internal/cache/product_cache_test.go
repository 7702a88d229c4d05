package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sote-minimart/internal/models"
	"sote-minimart/internal/repository"
)

type fakeProducts struct {
	mu       sync.Mutex
	products map[string]models.Product
	reads    int
}

func (f *fakeProducts) GetByID(ctx context.Context, id string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProducts) GetAll(ctx context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	var out []models.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProducts) GetByCategory(ctx context.Context, category string) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	var out []models.Product
	for _, p := range f.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) AdjustStock(ctx context.Context, id string, change int) (*models.StockMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	before := *p.StockQuantity
	after := before + change
	p.StockQuantity = &after
	f.products[id] = p
	return &models.StockMovement{ProductID: id, Name: p.Name, Before: before, After: after}, nil
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return mr, client
}

func newFake() *fakeProducts {
	stock := 10
	return &fakeProducts{products: map[string]models.Product{
		"milk": {ID: "milk", Name: "Milk 500ml", Category: "dairy", StockQuantity: &stock, Price: decimal.NewFromInt(60)},
	}}
}

func TestGetByIDReadsThrough(t *testing.T) {
	_, client := setupTestRedis(t)
	fake := newFake()
	repo := NewCachedProductRepository(fake, client, time.Minute, nil)
	ctx := context.Background()

	p, err := repo.GetByID(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, "Milk 500ml", p.Name)

	p, err = repo.GetByID(ctx, "milk")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(p.Price))
	assert.Equal(t, 1, fake.reads)
}

func TestGetByIDCachesNotFound(t *testing.T) {
	mr, client := setupTestRedis(t)
	fake := newFake()
	repo := NewCachedProductRepository(fake, client, time.Minute, nil)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "bread")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByID(ctx, "bread")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 1, fake.reads)

	mr.FastForward(2 * time.Minute)
	_, err = repo.GetByID(ctx, "bread")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 2, fake.reads)
}

func TestAdjustStockInvalidates(t *testing.T) {
	mr, client := setupTestRedis(t)
	fake := newFake()
	repo := NewCachedProductRepository(fake, client, time.Minute, nil)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "milk")
	require.NoError(t, err)
	_, err = repo.GetByCategory(ctx, "dairy")
	require.NoError(t, err)
	_, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("products:category:dairy"))

	movement, err := repo.AdjustStock(ctx, "milk", -3)
	require.NoError(t, err)
	assert.Equal(t, 10, movement.Before)
	assert.Equal(t, 7, movement.After)

	assert.False(t, mr.Exists("product:milk"))
	assert.False(t, mr.Exists("products:all"))
	assert.False(t, mr.Exists("products:category:dairy"))

	p, err := repo.GetByID(ctx, "milk")
	require.NoError(t, err)
	assert.Equal(t, 7, *p.StockQuantity)
}

func TestRedisDownFallsBackToRepository(t *testing.T) {
	mr, client := setupTestRedis(t)
	fake := newFake()
	repo := NewCachedProductRepository(fake, client, time.Minute, nil)
	mr.Close()

	p, err := repo.GetByID(context.Background(), "milk")
	require.NoError(t, err)
	assert.Equal(t, "milk", p.ID)
}
