package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"sote-minimart/internal/cart"
	"sote-minimart/internal/models"
	"sote-minimart/internal/repository"
)

type CartHandler struct {
	actions  *cart.Actions
	checkout *cart.Checkout
	products repository.ProductRepository
	logger   *slog.Logger
}

func NewCartHandler(actions *cart.Actions, checkout *cart.Checkout, products repository.ProductRepository, logger *slog.Logger) *CartHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartHandler{actions: actions, checkout: checkout, products: products, logger: logger}
}

type CartAddRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	Discount  decimal.Decimal `json:"discount"`
	// Scanned adds go through the debouncer.
	Scanned bool `json:"scanned"`
}

type CartBatchRequest struct {
	Items []CartBatchLine `json:"items" validate:"required,min=1,dive"`
}

type CartBatchLine struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type CartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

type CartHoldRequest struct {
	Label string `json:"label" validate:"max=80"`
}

type CheckoutRequest struct {
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash mpesa card"`
	Tendered      decimal.Decimal `json:"tendered"`
}

type cartView struct {
	Items  []models.CartItem `json:"items"`
	Totals cart.Totals       `json:"totals"`
}

type addResult struct {
	Added int      `json:"added"`
	Cart  cartView `json:"cart"`
}

func (h *CartHandler) view() cartView {
	store := h.actions.Store()
	items := store.Items()
	return cartView{Items: items, Totals: cart.ComputeTotals(items)}
}

func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.view())
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req CartAddRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	product, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		h.productError(w, err)
		return
	}

	opts := cart.AddOptions{Discount: req.Discount}

	var added bool
	if req.Scanned {
		added = h.actions.DebouncedAddToCart(*product, req.Quantity, opts)
	} else {
		added = h.actions.AddToCart(*product, req.Quantity, opts)
	}

	if !added {
		writeError(w, http.StatusUnprocessableEntity, "not_added", "product was not added to the cart", h.view())
		return
	}

	writeJSON(w, http.StatusOK, addResult{Added: 1, Cart: h.view()})
}

func (h *CartHandler) AddBatch(w http.ResponseWriter, r *http.Request) {
	var req CartBatchRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	lines := make([]cart.Line, 0, len(req.Items))
	for _, item := range req.Items {
		product, err := h.products.GetByID(r.Context(), item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			h.productError(w, err)
			return
		}
		lines = append(lines, cart.Line{Product: *product, Quantity: item.Quantity})
	}

	added := h.actions.AddMultipleToCart(lines, cart.AddOptions{})
	writeJSON(w, http.StatusOK, addResult{Added: added, Cart: h.view()})
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CartQuantityRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	var product *models.Product
	if req.Quantity > 0 {
		p, err := h.products.GetByID(r.Context(), id)
		if err != nil {
			h.logger.Warn("quantity update without stock check", "product_id", id, "error", err)
		} else {
			product = p
		}
	}

	if err := h.actions.UpdateQuantity(product, id, req.Quantity); err != nil {
		h.cartError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.view())
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.actions.RemoveFromCart(chi.URLParam(r, "id")); err != nil {
		h.cartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view())
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.actions.ClearCart()
	writeJSON(w, http.StatusOK, h.view())
}

func (h *CartHandler) Hold(w http.ResponseWriter, r *http.Request) {
	var req CartHoldRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	held, err := h.actions.HoldCart(req.Label)
	if err != nil {
		h.cartError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, held)
}

func (h *CartHandler) Held(w http.ResponseWriter, r *http.Request) {
	held := h.actions.Store().Held()
	if held == nil {
		held = []cart.HeldCart{}
	}
	writeJSON(w, http.StatusOK, held)
}

func (h *CartHandler) Recall(w http.ResponseWriter, r *http.Request) {
	if _, err := h.actions.RecallCart(chi.URLParam(r, "id")); err != nil {
		h.cartError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view())
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	receipt, err := h.checkout.Complete(r.Context(), cart.CheckoutRequest{
		PaymentMethod: req.PaymentMethod,
		Tendered:      req.Tendered,
	})
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrEmptyCart):
			writeError(w, http.StatusConflict, "empty_cart", err.Error(), nil)
		case errors.Is(err, cart.ErrNotSignedIn):
			writeError(w, http.StatusUnauthorized, "not_signed_in", err.Error(), nil)
		case errors.Is(err, cart.ErrNoShift):
			writeError(w, http.StatusConflict, "no_shift", err.Error(), nil)
		case errors.Is(err, cart.ErrInsufficientTender):
			writeError(w, http.StatusUnprocessableEntity, "insufficient_tender", err.Error(), nil)
		case errors.Is(err, cart.ErrPaymentMethod):
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		case errors.Is(err, repository.ErrNotEnough):
			writeError(w, http.StatusConflict, "not_enough_stock", err.Error(), nil)
		default:
			writeError(w, http.StatusBadGateway, "remote_error", "failed to save sale", nil)
		}
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

func (h *CartHandler) productError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "product not found", nil)
		return
	}
	h.logger.Error("product lookup failed", "error", err)
	writeError(w, http.StatusBadGateway, "remote_error", "failed to load product", nil)
}

func (h *CartHandler) cartError(w http.ResponseWriter, err error) {
	var verr *cart.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, string(verr.Category), verr.Reason, nil)
	case errors.Is(err, cart.ErrItemNotFound), errors.Is(err, cart.ErrHeldNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, cart.ErrEmptyCart):
		writeError(w, http.StatusConflict, "empty_cart", err.Error(), nil)
	case errors.Is(err, cart.ErrCartNotEmpty):
		writeError(w, http.StatusConflict, "cart_not_empty", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	}
}
