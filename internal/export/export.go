// Package export produces accounting report files for download.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sote-minimart/internal/notify"
)

var (
	ErrInvalidRequest    = errors.New("invalid export request")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrExportFailed      = errors.New("report export failed")
)

type ReportType string

const (
	TrialBalance    ReportType = "trial_balance"
	IncomeStatement ReportType = "income_statement"
	BalanceSheet    ReportType = "balance_sheet"
	VATReturn       ReportType = "vat_return"
	Cashbook        ReportType = "cashbook"
)

func (t ReportType) Valid() bool {
	switch t {
	case TrialBalance, IncomeStatement, BalanceSheet, VATReturn, Cashbook:
		return true
	}
	return false
}

type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
)

func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Params narrows a report. Every field is optional.
type Params struct {
	From      *time.Time
	To        *time.Time
	AccountID *string
}

type Request struct {
	Type   ReportType
	Format Format
	Params
}

func (r Request) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown report type %q", ErrInvalidRequest, r.Type)
	}
	if r.Format != FormatPDF && r.Format != FormatExcel {
		return fmt.Errorf("%w: unknown format %q", ErrInvalidRequest, r.Format)
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return fmt.Errorf("%w: start date is after end date", ErrInvalidRequest)
	}
	return nil
}

// Filename is <report>_<from>_<to>.<ext>; open ends are written as "start"
// and "today".
func (r Request) Filename() string {
	from, to := "start", "today"
	if r.From != nil {
		from = r.From.Format(time.DateOnly)
	}
	if r.To != nil {
		to = r.To.Format(time.DateOnly)
	}
	return fmt.Sprintf("%s_%s_%s.%s", r.Type, from, to, r.Format.Extension())
}

type Payload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Exporter interface {
	Export(ctx context.Context, req Request) (*Payload, error)
}

// Service sends requests to the remote export function when one is
// configured and renders spreadsheets locally otherwise.
type Service struct {
	remote   Exporter
	local    Exporter
	notifier notify.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewService accepts a nil remote.
func NewService(remote, local Exporter, notifier notify.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		remote:   remote,
		local:    local,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("sote-minimart/export"),
	}
}

func (s *Service) Export(ctx context.Context, req Request) (*Payload, error) {
	if err := req.Validate(); err != nil {
		notify.Error(s.notifier, notify.CategoryValidation, "Invalid report request")
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "export.report", trace.WithAttributes(
		attribute.String("report.type", string(req.Type)),
		attribute.String("report.format", string(req.Format)),
	))
	defer span.End()

	exporter := s.local
	if s.remote != nil {
		exporter = s.remote
	}
	if exporter == nil {
		return nil, ErrUnsupportedFormat
	}

	payload, err := exporter.Export(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("report export failed",
			"report", string(req.Type), "format", string(req.Format), "error", err)
		notify.Error(s.notifier, notify.CategoryRemote, "Failed to export report")
		return nil, err
	}

	span.SetAttributes(attribute.Int("report.bytes", len(payload.Data)))
	notify.Success(s.notifier, notify.CategoryGeneral, "Report exported: "+payload.Filename)
	return payload, nil
}
