package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sote-minimart/internal/models"
	"sote-minimart/internal/repository"
)

type StockRecorder interface {
	LogStockChange(productID string, oldQuantity, newQuantity int, changeType models.StockChangeType, notes string)
}

type StockPublisher interface {
	PublishStockMovements(ctx context.Context, movements []models.StockMovement) error
}

type ProductHandler struct {
	repo      repository.ProductRepository
	audit     StockRecorder
	publisher StockPublisher
	logger    *slog.Logger
}

func NewProductHandler(repo repository.ProductRepository, audit StockRecorder, publisher StockPublisher, logger *slog.Logger) *ProductHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductHandler{repo: repo, audit: audit, publisher: publisher, logger: logger}
}

type StockAdjustRequest struct {
	Change     int    `json:"change" validate:"required"`
	ChangeType string `json:"change_type" validate:"required,oneof=restock expired adjustment"`
	Notes      string `json:"notes" validate:"max=500"`
}

func productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "invalid product id", nil)
		return "", false
	}
	return id, true
}

func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "product not found", nil)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to get product", nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// List returns the whole catalogue, or one category with ?category=.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		products []models.Product
		err      error
	)

	if category := r.URL.Query().Get("category"); category != "" {
		products, err = h.repo.GetByCategory(r.Context(), category)
	} else {
		products, err = h.repo.GetAll(r.Context())
	}

	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to get products", nil)
		}
		return
	}

	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// AdjustStock applies a manual stock change, audits it and tells the other
// terminals.
func (h *ProductHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req StockAdjustRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	movement, err := h.repo.AdjustStock(r.Context(), id, req.Change)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "product not found", nil)
		case errors.Is(err, repository.ErrNotEnough):
			writeError(w, http.StatusConflict, "not_enough_stock", err.Error(), nil)
		case errors.Is(err, repository.ErrUntracked):
			writeError(w, http.StatusConflict, "untracked", "stock is not tracked for this product", nil)
		default:
			h.logger.Error("stock adjustment failed", "product_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to adjust stock", nil)
		}
		return
	}

	if h.audit != nil {
		h.audit.LogStockChange(movement.ProductID, movement.Before, movement.After, models.StockChangeType(req.ChangeType), req.Notes)
	}
	if h.publisher != nil {
		if err := h.publisher.PublishStockMovements(r.Context(), []models.StockMovement{*movement}); err != nil {
			h.logger.Warn("failed to publish stock movement", "product_id", id, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, movement)
}
