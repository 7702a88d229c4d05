package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"sote-minimart/internal/repository"
)

var excelHeader = []any{"Section", "Code", "Account", "Debit", "Credit", "Amount"}

// ExcelRenderer builds spreadsheets from the report functions in the
// database. It cannot produce PDFs.
type ExcelRenderer struct {
	reports repository.ReportRepository
}

func NewExcelRenderer(reports repository.ReportRepository) *ExcelRenderer {
	return &ExcelRenderer{reports: reports}
}

func (r *ExcelRenderer) Export(ctx context.Context, req Request) (*Payload, error) {
	if req.Format != FormatExcel {
		return nil, fmt.Errorf("%w: %s needs the export function", ErrUnsupportedFormat, req.Format)
	}

	rows, err := r.reports.Rows(ctx, repository.ReportQuery{
		Function:  "report_" + string(req.Type),
		From:      req.From,
		To:        req.To,
		AccountID: req.AccountID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s rows: %w", req.Type, err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetTitle(req.Type)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(sheet, "A1", &excelHeader); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{
			row.Section,
			row.Code,
			row.Label,
			row.Debit.InexactFloat64(),
			row.Credit.InexactFloat64(),
			row.Amount.InexactFloat64(),
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(sheet, "A", "C", 28); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return &Payload{
		Filename:    req.Filename(),
		ContentType: FormatExcel.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

func sheetTitle(t ReportType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "vat" {
			words[i] = "VAT"
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
