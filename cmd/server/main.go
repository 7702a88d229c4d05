package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sote-minimart/internal/api"
	"sote-minimart/internal/audit"
	"sote-minimart/internal/cache"
	"sote-minimart/internal/cart"
	"sote-minimart/internal/config"
	"sote-minimart/internal/database"
	"sote-minimart/internal/export"
	"sote-minimart/internal/models"
	"sote-minimart/internal/notify"
	"sote-minimart/internal/realtime"
	"sote-minimart/internal/repository"
	"sote-minimart/internal/session"
	"sote-minimart/internal/shift"
	"sote-minimart/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := config.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("terminal service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "sote-minimart", cfg.OTELEnabled, os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	rdb, err := cache.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()

	products := cache.NewCachedProductRepository(repository.NewProductRepository(pool), rdb, cfg.ProductCacheTTL, logger)
	orders := repository.NewOrderRepository(pool)
	activities := repository.NewActivityRepository(pool)
	sales := repository.NewSaleRepository(pool)

	hub := notify.NewHub(cfg.AllowedOrigins, logger)
	defer hub.Close()
	toasts := notify.Multi{hub, notify.Log{Logger: logger}}

	auth := session.NewContext(nil)

	auditLog := audit.NewLogger(audit.Config{
		Repo:         repository.NewStockAuditRepository(pool),
		Auth:         auth,
		Notifier:     toasts,
		QueueSize:    cfg.AuditQueueSize,
		WriteTimeout: cfg.AuditWriteTimeout,
		Logger:       logger.With("component", "audit"),
	})
	defer auditLog.Close()

	timer := shift.NewTimer(shift.Config{
		Auth:       auth,
		Shifts:     repository.NewShiftRepository(pool),
		Activities: activities,
		Sales:      sales,
		Notifier:   toasts,
		OnTick: func(elapsed time.Duration) {
			hub.Broadcast("shift_tick", shift.FormatElapsed(elapsed))
		},
		Logger: logger.With("component", "shift"),
	})
	defer timer.Close()

	publisher := realtime.NewRedisPublisher(rdb, cfg.ChannelPrefix, products, logger)

	store := cart.NewStore()
	actions := cart.NewActions(store, cart.ActionsConfig{
		Notifier:       toasts,
		DebounceWindow: cfg.DebounceWindow,
		Logger:         logger.With("component", "cart"),
	})
	checkout := cart.NewCheckout(store, cart.CheckoutConfig{
		Sales:      sales,
		Activities: activities,
		Audit:      auditLog,
		Shifts:     timer,
		Auth:       auth,
		Publisher:  publisher,
		Notifier:   toasts,
		TerminalID: cfg.TerminalID,
		Logger:     logger.With("component", "checkout"),
	})

	bridge := realtime.NewBridge(realtime.BridgeConfig{
		Source:   realtime.NewRedisFeed(rdb, cfg.ChannelPrefix, logger),
		Notifier: toasts,
		Orders:   orders,
		OnProductUpdate: func(p models.Product) {
			products.Invalidate(context.Background(), p.ID)
			hub.Broadcast("product_updated", p)
		},
		OnOrdersChanged: func(active []models.Order) {
			hub.Broadcast("active_orders", active)
		},
		Logger: logger.With("component", "realtime"),
	})
	defer bridge.Close()

	catalogue, err := products.GetAll(ctx)
	if err != nil {
		logger.Warn("catalogue unavailable, live updates disabled", "error", err)
	} else if err := bridge.Watch(ctx, catalogue); err != nil {
		logger.Warn("live updates unavailable", "error", err)
	}

	var remote export.Exporter
	if cfg.ExportFunctionURL != "" {
		remote = export.NewRemoteExporter(cfg.ExportFunctionURL, cfg.ExportTimeout, logger)
	}
	exporter := export.NewService(remote, export.NewExcelRenderer(repository.NewReportRepository(pool)), toasts, logger)

	router := api.NewRouter(api.Deps{
		Session:   auth,
		Products:  products,
		Orders:    orders,
		Cart:      actions,
		Checkout:  checkout,
		Shift:     timer,
		Audit:     auditLog,
		Recorder:  auditLog,
		Active:    bridge,
		Stock:     publisher,
		OrderPub:  publisher,
		Exporter:  exporter,
		Websocket: hub,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("terminal service listening", "addr", cfg.HTTPAddr, "terminal_id", cfg.TerminalID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
