package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sote-minimart/internal/models"
)

// Report functions live in the database; only their names are known here.
var reportFunction = regexp.MustCompile(`^report_[a-z_]+$`)

type reportRepo struct {
	db *pgxpool.Pool
}

func NewReportRepository(db *pgxpool.Pool) ReportRepository {
	return &reportRepo{db: db}
}

func (r *reportRepo) Rows(ctx context.Context, q ReportQuery) ([]models.ReportRow, error) {
	if !reportFunction.MatchString(q.Function) {
		return nil, fmt.Errorf("%w: unknown report function '%s'", ErrInvalidInput, q.Function)
	}

	sql := fmt.Sprintf(
		`SELECT section, code, label, debit, credit, amount FROM %s($1, $2, $3)`,
		pgx.Identifier{q.Function}.Sanitize(),
	)

	rows, err := r.db.Query(ctx, sql, q.From, q.To, q.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", q.Function, err)
	}
	defer rows.Close()

	var result []models.ReportRow
	for rows.Next() {
		var row models.ReportRow
		if err := rows.Scan(&row.Section, &row.Code, &row.Label, &row.Debit, &row.Credit, &row.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", q.Function, err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return result, nil
}
