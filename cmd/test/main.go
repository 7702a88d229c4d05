package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sote-minimart/internal/config"
	"sote-minimart/internal/database"
	"sote-minimart/internal/models"
	"sote-minimart/internal/repository"
)

// Smoke check against a live database: migrations, then a read through each
// repository the terminal depends on.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, nil); err != nil {
		log.Fatal("migrations failed: ", err)
	}

	var now time.Time
	if err := pool.QueryRow(ctx, "SELECT NOW()").Scan(&now); err != nil {
		log.Fatal("query failed: ", err)
	}
	fmt.Println("Current database time:", now)

	testProductRepository(ctx, pool)
	testStockAuditRepository(ctx, pool)
	testOrderRepository(ctx, pool)
}

func testProductRepository(ctx context.Context, pool *pgxpool.Pool) {
	fmt.Println("\n=== Testing ProductRepository ===")

	repo := repository.NewProductRepository(pool)

	products, err := repo.GetAll(ctx)
	if err != nil {
		log.Fatal("❌ GetAll failed: ", err)
	}
	fmt.Printf("✅ GetAll found %d products\n", len(products))

	_, err = repo.GetByID(ctx, "00000000-0000-4000-8000-000000000000")
	if !errors.Is(err, repository.ErrNotFound) {
		log.Fatal("❌ GetByID should return ErrNotFound for a missing product, got: ", err)
	}
	fmt.Println("✅ GetByID correctly returns ErrNotFound")

	_, err = repo.GetByID(ctx, "not-a-uuid")
	if !errors.Is(err, repository.ErrInvalidInput) {
		log.Fatal("❌ GetByID should validate the id, got: ", err)
	}
	fmt.Println("✅ GetByID validates id")
}

func testStockAuditRepository(ctx context.Context, pool *pgxpool.Pool) {
	fmt.Println("\n=== Testing StockAuditRepository ===")

	repo := repository.NewStockAuditRepository(pool)

	entries, err := repo.List(ctx, nil, 5)
	if err != nil {
		log.Fatal("❌ List failed: ", err)
	}
	fmt.Printf("✅ List returned %d entries\n", len(entries))

	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.After(entries[i-1].CreatedAt) {
			log.Fatal("❌ entries should be newest first")
		}
	}

	err = repo.Create(ctx, &models.StockAuditEntry{ProductID: "p", ChangeType: "theft"})
	if !errors.Is(err, repository.ErrInvalidInput) {
		log.Fatal("❌ Create should reject unknown change types, got: ", err)
	}
	fmt.Println("✅ Create validates change type")
}

func testOrderRepository(ctx context.Context, pool *pgxpool.Pool) {
	fmt.Println("\n=== Testing OrderRepository ===")

	repo := repository.NewOrderRepository(pool)

	active, err := repo.GetActive(ctx)
	if err != nil {
		log.Fatal("❌ GetActive failed: ", err)
	}
	for _, o := range active {
		if !o.Status.Active() {
			log.Fatal("❌ GetActive returned order ", o.ID, " with status ", o.Status)
		}
	}
	fmt.Printf("✅ GetActive found %d active orders\n", len(active))
}
