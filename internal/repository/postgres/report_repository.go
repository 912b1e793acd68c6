package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/andresuchdata/shelflife/backend-go/internal/ops"
)

// reportRepository stores every finished report as a JSON document.
type reportRepository struct {
	db *DB
}

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Write(ctx context.Context, report *ops.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO operation_reports (run_id, store_id, run_date, status, payload)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (run_id)
			DO UPDATE SET status = EXCLUDED.status, payload = EXCLUDED.payload
		`
		if _, err := tx.ExecContext(ctx, query, report.RunID, report.StoreID, report.RunDate, report.Status, string(payload)); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		return nil
	})
}
