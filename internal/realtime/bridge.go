package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"sote-minimart/internal/models"
	"sote-minimart/internal/notify"
	"sote-minimart/internal/repository"
)

// Source delivers envelopes until unsubscribe is called or ctx ends.
type Source interface {
	Subscribe(ctx context.Context) (<-chan Envelope, func(), error)
}

type BridgeConfig struct {
	Source   Source
	Notifier notify.Notifier
	// Orders seeds the active list when a subscription starts. Optional.
	Orders repository.OrderRepository
	// Callbacks run on the delivery goroutine and must not call Close or Watch.
	OnProductUpdate func(models.Product)
	OnOrdersChanged func([]models.Order)
	Logger          *slog.Logger
}

// Bridge keeps the terminal's view of watched products and active orders in
// step with remote writes.
type Bridge struct {
	source          Source
	notifier        notify.Notifier
	orders          repository.OrderRepository
	onProductUpdate func(models.Product)
	onOrdersChanged func([]models.Order)
	logger          *slog.Logger

	// opMu serializes Watch and Close.
	opMu sync.Mutex

	mu      sync.Mutex
	active  []models.Order
	watched map[string]struct{}
	gen     uint64
	closed  bool

	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}
}

func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bridge{
		source:          cfg.Source,
		notifier:        cfg.Notifier,
		orders:          cfg.Orders,
		onProductUpdate: cfg.OnProductUpdate,
		onOrdersChanged: cfg.OnOrdersChanged,
		logger:          cfg.Logger,
	}
}

var ErrBridgeClosed = errors.New("realtime bridge closed")

// Watch replaces the current subscription with one scoped to products. An
// empty list leaves the bridge unsubscribed.
func (b *Bridge) Watch(ctx context.Context, products []models.Product) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.stop()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBridgeClosed
	}
	b.mu.Unlock()

	if len(products) == 0 {
		return nil
	}

	watched := make(map[string]struct{}, len(products))
	for _, p := range products {
		watched[p.ID] = struct{}{}
	}

	var seed []models.Order
	if b.orders != nil {
		orders, err := b.orders.GetActive(ctx)
		if err != nil {
			b.logger.Warn("failed to load active orders", "error", err)
			notify.Error(b.notifier, notify.CategoryOrder, "Could not load active orders")
		} else {
			seed = orders
		}
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ch, unsubscribe, err := b.source.Subscribe(subCtx)
	if err != nil {
		cancel()
		b.logger.Error("realtime subscribe failed", "error", err)
		notify.Error(b.notifier, notify.CategoryRemote, "Live updates are unavailable")
		return err
	}

	done := make(chan struct{})

	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.watched = watched
	b.active = seed
	b.cancel = cancel
	b.unsubscribe = unsubscribe
	b.done = done
	b.mu.Unlock()

	if b.onOrdersChanged != nil {
		b.onOrdersChanged(append([]models.Order(nil), seed...))
	}

	go b.loop(subCtx, gen, ch, done)

	b.logger.Info("realtime subscription started", "products", len(watched))
	return nil
}

func (b *Bridge) loop(ctx context.Context, gen uint64, ch <-chan Envelope, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-ch:
			if !ok {
				return
			}
			ev, err := Decode(env)
			if err != nil {
				b.logger.Debug("ignoring realtime envelope", "table", env.Table, "type", env.Type, "error", err)
				continue
			}
			b.apply(gen, ev)
		}
	}
}

// Apply handles one event against the current subscription.
func (b *Bridge) Apply(ev Event) {
	b.mu.Lock()
	gen := b.gen
	b.mu.Unlock()
	b.apply(gen, ev)
}

func (b *Bridge) apply(gen uint64, ev Event) {
	b.mu.Lock()
	if b.closed || gen != b.gen {
		b.mu.Unlock()
		return
	}

	switch e := ev.(type) {
	case ProductUpdated:
		if _, ok := b.watched[e.New.ID]; !ok {
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()

		product, changes := ProductChange(e)
		if b.onProductUpdate != nil {
			b.onProductUpdate(product)
		}
		for _, c := range changes {
			notify.Info(b.notifier, notify.CategoryStock, c.Message(product.Name))
		}

	case OrderInserted, OrderUpdated:
		before := len(b.active)
		b.active = ReduceOrders(b.active, ev)
		snapshot := append([]models.Order(nil), b.active...)
		b.mu.Unlock()

		if before != len(snapshot) {
			b.logger.Debug("active orders changed", "count", len(snapshot))
		}
		if b.onOrdersChanged != nil {
			b.onOrdersChanged(snapshot)
		}

	default:
		b.mu.Unlock()
	}
}

func (b *Bridge) ActiveOrders() []models.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Order(nil), b.active...)
}

func (b *Bridge) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.active)
}

// stop releases the current subscription and waits for its loop to exit.
// Caller must hold opMu.
func (b *Bridge) stop() {
	b.mu.Lock()
	cancel, unsubscribe, done := b.cancel, b.unsubscribe, b.done
	b.cancel, b.unsubscribe, b.done = nil, nil, nil
	b.gen++
	b.watched = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
	<-done
	b.logger.Info("realtime subscription released")
}

// Close releases the subscription. Events delivered afterwards are ignored.
func (b *Bridge) Close() {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	b.stop()

	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}
