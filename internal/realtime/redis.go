package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"sote-minimart/internal/models"
	"sote-minimart/internal/repository"
)

func channelFor(prefix, table string) string {
	return fmt.Sprintf("%s:changes:%s", prefix, table)
}

// RedisFeed is a Source backed by redis pub/sub, one channel per table.
type RedisFeed struct {
	client *redis.Client
	prefix string
	buffer int
	logger *slog.Logger
}

func NewRedisFeed(client *redis.Client, prefix string, logger *slog.Logger) *RedisFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisFeed{client: client, prefix: prefix, buffer: 64, logger: logger}
}

func (f *RedisFeed) Subscribe(ctx context.Context) (<-chan Envelope, func(), error) {
	pubsub := f.client.Subscribe(ctx,
		channelFor(f.prefix, TableProducts),
		channelFor(f.prefix, TableOrders),
	)

	// Wait for the subscription to be confirmed so no message published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Envelope, f.buffer)
	msgs := pubsub.Channel()

	go func() {
		defer close(out)
		for msg := range msgs {
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				f.logger.Warn("malformed realtime message", "channel", msg.Channel, "error", err)
				continue
			}
			if env.Table == "" {
				env.Table = msg.Channel[strings.LastIndex(msg.Channel, ":")+1:]
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()

	unsubscribe := func() {
		if err := pubsub.Close(); err != nil {
			f.logger.Debug("pubsub close", "error", err)
		}
	}

	return out, unsubscribe, nil
}

// RedisPublisher announces local writes so other terminals pick them up.
type RedisPublisher struct {
	client   *redis.Client
	prefix   string
	products repository.ProductRepository
	logger   *slog.Logger
}

func NewRedisPublisher(client *redis.Client, prefix string, products repository.ProductRepository, logger *slog.Logger) *RedisPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisPublisher{client: client, prefix: prefix, products: products, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := p.client.Publish(ctx, channelFor(p.prefix, env.Table), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", env.Table, err)
	}
	return nil
}

// PublishStockMovements sends a product update per movement with the stock
// before and after the write.
func (p *RedisPublisher) PublishStockMovements(ctx context.Context, movements []models.StockMovement) error {
	var errs []error

	for _, m := range movements {
		product, err := p.products.GetByID(ctx, m.ProductID)
		if err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", m.ProductID, err))
			continue
		}

		before, after := *product, *product
		qtyBefore, qtyAfter := m.Before, m.After
		before.StockQuantity = &qtyBefore
		after.StockQuantity = &qtyAfter

		env, err := Encode(TableProducts, TypeUpdate, before, after)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.Publish(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (p *RedisPublisher) PublishOrderUpdate(ctx context.Context, before, after models.Order) error {
	env, err := Encode(TableOrders, TypeUpdate, before, after)
	if err != nil {
		return err
	}
	return p.Publish(ctx, env)
}
