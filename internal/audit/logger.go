// Package audit records every stock quantity change on a side channel that
// never fails or blocks the operation that caused it.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sote-minimart/internal/models"
	"sote-minimart/internal/notify"
	"sote-minimart/internal/repository"
	"sote-minimart/internal/session"
)

const DefaultLimit = 100

type Config struct {
	Repo         repository.StockAuditRepository
	Auth         session.Provider
	Notifier     notify.Notifier
	QueueSize    int
	WriteTimeout time.Duration
	Clock        func() time.Time
	Logger       *slog.Logger
}

// Logger queues audit entries for a single background writer. Callers never
// see a write error.
type Logger struct {
	repo         repository.StockAuditRepository
	auth         session.Provider
	notifier     notify.Notifier
	writeTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan models.StockAuditEntry
	wg     sync.WaitGroup
}

// NewLogger starts the writer goroutine immediately.
func NewLogger(cfg Config) *Logger {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	l := &Logger{
		repo:         cfg.Repo,
		auth:         cfg.Auth,
		notifier:     cfg.Notifier,
		writeTimeout: cfg.WriteTimeout,
		now:          cfg.Clock,
		logger:       cfg.Logger,
		queue:        make(chan models.StockAuditEntry, cfg.QueueSize),
	}

	l.wg.Add(1)
	go l.run()

	return l
}

// LogStockChange queues one entry. The actor is whoever is signed in right now.
// A full queue, an invalid change type or a closed logger drops the entry.
func (l *Logger) LogStockChange(productID string, oldQuantity, newQuantity int, changeType models.StockChangeType, notes string) {
	if productID == "" || !changeType.Valid() {
		l.logger.Warn("stock audit entry dropped: invalid input",
			"product_id", productID, "change_type", string(changeType))
		return
	}

	entry := models.StockAuditEntry{
		ID:             uuid.NewString(),
		ProductID:      productID,
		QuantityBefore: oldQuantity,
		QuantityAfter:  newQuantity,
		Delta:          newQuantity - oldQuantity,
		ChangeType:     changeType,
		ActorID:        session.ActorID(l.auth),
		Notes:          notes,
		CreatedAt:      l.now(),
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		l.logger.Warn("stock audit entry dropped: logger closed", "product_id", productID)
		return
	}

	select {
	case l.queue <- entry:
	default:
		l.logger.Warn("stock audit entry dropped: queue full", "product_id", productID, "delta", entry.Delta)
	}
}

func (l *Logger) run() {
	defer l.wg.Done()

	for entry := range l.queue {
		l.write(entry)
	}
}

func (l *Logger) write(entry models.StockAuditEntry) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("stock audit write panicked", "product_id", entry.ProductID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), l.writeTimeout)
	defer cancel()

	if err := l.repo.Create(ctx, &entry); err != nil {
		l.logger.Warn("failed to write stock audit entry",
			"operation", "stock_audit_write",
			"product_id", entry.ProductID,
			"change_type", string(entry.ChangeType),
			"delta", entry.Delta,
			"error", err,
		)
	}
}

// GetStockAudit returns the newest entries first, optionally for one product.
// On failure it warns the user and returns an empty list.
func (l *Logger) GetStockAudit(ctx context.Context, productID *string, limit int) []models.StockAuditEntry {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if productID != nil && *productID == "" {
		productID = nil
	}

	entries, err := l.repo.List(ctx, productID, limit)
	if err != nil {
		l.logger.Error("failed to load stock audit", "operation", "stock_audit_list", "error", err)
		notify.Warning(l.notifier, notify.CategoryStock, "Could not load stock history")
		return []models.StockAuditEntry{}
	}

	if entries == nil {
		return []models.StockAuditEntry{}
	}
	return entries
}

// Close stops accepting entries and waits for the queued ones to be written.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
}
