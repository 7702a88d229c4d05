package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"sote-minimart/internal/models"
)

type StockAuditReader interface {
	GetStockAudit(ctx context.Context, productID *string, limit int) []models.StockAuditEntry
}

type AuditHandler struct {
	audit StockAuditReader
}

func NewAuditHandler(audit StockAuditReader) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List serves GET /stock-audit?product_id=&limit=.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var productID *string
	if id := q.Get("product_id"); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "invalid product id", nil)
			return
		}
		productID = &id
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > 1000 {
			writeError(w, http.StatusBadRequest, "invalid_input", "limit must be between 0 and 1000", nil)
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, h.audit.GetStockAudit(r.Context(), productID, limit))
}
