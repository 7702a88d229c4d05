package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"sote-minimart/internal/export"
)

type ExportHandler struct {
	service *export.Service
}

func NewExportHandler(service *export.Service) *ExportHandler {
	return &ExportHandler{service: service}
}

type ExportRequest struct {
	ReportType string  `json:"report_type" validate:"required,oneof=trial_balance income_statement balance_sheet vat_return cashbook"`
	Format     string  `json:"format" validate:"required,oneof=pdf excel"`
	StartDate  string  `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string  `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	AccountID  *string `json:"account_id" validate:"omitempty,uuid"`
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}

// Export streams the rendered report back as a file download.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if ok := decodeJSON(w, r, &req); !ok {
		return
	}

	payload, err := h.service.Export(r.Context(), export.Request{
		Type:   export.ReportType(req.ReportType),
		Format: export.Format(req.Format),
		Params: export.Params{
			From:      parseDate(req.StartDate),
			To:        parseDate(req.EndDate),
			AccountID: req.AccountID,
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, export.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)
		case errors.Is(err, export.ErrUnsupportedFormat):
			writeError(w, http.StatusNotImplemented, "unsupported_format", err.Error(), nil)
		default:
			writeError(w, http.StatusBadGateway, "export_failed", "failed to export report", nil)
		}
		return
	}

	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload.Data)
}
