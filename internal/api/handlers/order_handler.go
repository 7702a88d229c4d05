package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sote-minimart/internal/models"
	"sote-minimart/internal/repository"
)

type ActiveOrders interface {
	ActiveOrders() []models.Order
}

type OrderPublisher interface {
	PublishOrderUpdate(ctx context.Context, before, after models.Order) error
}

type OrderHandler struct {
	repo      repository.OrderRepository
	active    ActiveOrders
	publisher OrderPublisher
	logger    *slog.Logger
}

func NewOrderHandler(repo repository.OrderRepository, active ActiveOrders, publisher OrderPublisher, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{repo: repo, active: active, publisher: publisher, logger: logger}
}

type OrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed processing completed cancelled"`
}

type activeOrdersView struct {
	Count  int            `json:"count"`
	Orders []models.Order `json:"orders"`
}

func (h *OrderHandler) Active(w http.ResponseWriter, r *http.Request) {
	orders := h.active.ActiveOrders()
	if orders == nil {
		orders = []models.Order{}
	}
	writeJSON(w, http.StatusOK, activeOrdersView{Count: len(orders), Orders: orders})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req OrderStatusRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	before, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		orderError(w, err)
		return
	}

	after, err := h.repo.UpdateStatus(r.Context(), id, models.OrderStatus(req.Status))
	if err != nil {
		orderError(w, err)
		return
	}

	if h.publisher != nil {
		if err := h.publisher.PublishOrderUpdate(r.Context(), *before, *after); err != nil {
			h.logger.Warn("failed to publish order update", "order_id", id, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, after)
}

func orderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "order not found", nil)
	case errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	default:
		writeError(w, http.StatusBadGateway, "remote_error", "failed to update order", nil)
	}
}
