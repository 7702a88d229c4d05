// Package api exposes the terminal over HTTP and a websocket.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sote-minimart/internal/api/handlers"
	"sote-minimart/internal/cart"
	"sote-minimart/internal/export"
	"sote-minimart/internal/repository"
	"sote-minimart/internal/session"
	"sote-minimart/internal/shift"
	"sote-minimart/internal/telemetry"
)

type Deps struct {
	Session   *session.Context
	Products  repository.ProductRepository
	Orders    repository.OrderRepository
	Cart      *cart.Actions
	Checkout  *cart.Checkout
	Shift     *shift.Timer
	Audit     handlers.StockAuditReader
	Recorder  handlers.StockRecorder
	Active    handlers.ActiveOrders
	Stock     handlers.StockPublisher
	OrderPub  handlers.OrderPublisher
	Exporter  *export.Service
	Websocket http.Handler
	Logger    *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	products := handlers.NewProductHandler(d.Products, d.Recorder, d.Stock, d.Logger)
	carts := handlers.NewCartHandler(d.Cart, d.Checkout, d.Products, d.Logger)
	shifts := handlers.NewShiftHandler(d.Shift)
	audit := handlers.NewAuditHandler(d.Audit)
	orders := handlers.NewOrderHandler(d.Orders, d.Active, d.OrderPub, d.Logger)
	reports := handlers.NewExportHandler(d.Exporter)
	sessions := handlers.NewSessionHandler(d.Session, d.Shift)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(telemetry.Middleware("sote-minimart", "/healthz", "/ws"))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if d.Websocket != nil {
		r.Handle("/ws", d.Websocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(CashierMiddleware(d.Session))

		r.Get("/session", sessions.Get)
		r.Post("/session", sessions.SignIn)
		r.Delete("/session", sessions.SignOut)

		r.Get("/products", products.List)
		r.Get("/products/{id}", products.GetByID)
		r.Post("/products/{id}/stock", products.AdjustStock)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.Get)
			r.Delete("/", carts.Clear)
			r.Post("/items", carts.Add)
			r.Post("/items/batch", carts.AddBatch)
			r.Patch("/items/{id}", carts.UpdateQuantity)
			r.Delete("/items/{id}", carts.Remove)
			r.Post("/hold", carts.Hold)
			r.Get("/held", carts.Held)
			r.Post("/held/{id}/recall", carts.Recall)
			r.Post("/checkout", carts.Checkout)
		})

		r.Get("/shift", shifts.Get)
		r.Post("/shift/start", shifts.Start)
		r.Post("/shift/end", shifts.End)

		r.Get("/stock-audit", audit.List)

		r.Get("/orders/active", orders.Active)
		r.Patch("/orders/{id}/status", orders.UpdateStatus)

		r.Post("/reports/export", reports.Export)
	})

	return r
}
