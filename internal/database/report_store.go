package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/davidkell/replay-audit/internal/models"
)

// DatabasePool defines the pool operations the report store needs. The
// interface allows both the real pool and a mock pool in tests.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ReportStore persists aggregate reports for later review.
type ReportStore struct {
	pool DatabasePool
}

// NewReportStore creates a report store on the given pool.
func NewReportStore(pool DatabasePool) *ReportStore {
	return &ReportStore{pool: pool}
}

const insertReportSQL = `
	INSERT INTO audit_reports (
		run_id, generated_at, total_captures,
		premature_count, premature_percentage,
		avg_seconds_premature, max_seconds_premature,
		young_bar_count,
		avg_bar_age_seconds, min_bar_age_seconds, max_bar_age_seconds,
		bar_interval_seconds
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// SaveReport inserts one aggregate report row.
func (s *ReportStore) SaveReport(ctx context.Context, report models.AggregateReport) error {
	_, err := s.pool.Exec(ctx, insertReportSQL,
		report.RunID,
		report.GeneratedAt,
		report.TotalCaptures,
		report.PrematureCount,
		report.PrematurePercentage,
		report.AvgSecondsPremature,
		report.MaxSecondsPremature,
		report.YoungBarCount,
		report.AvgBarAgeSeconds,
		report.MinBarAgeSeconds,
		report.MaxBarAgeSeconds,
		report.BarIntervalSeconds,
	)
	if err != nil {
		return fmt.Errorf("insert audit report %s: %w", report.RunID, err)
	}
	return nil
}

// LatestReport fetches the most recently generated report, if any.
func (s *ReportStore) LatestReport(ctx context.Context) (*models.AggregateReport, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, generated_at, total_captures,
		       premature_count, premature_percentage,
		       avg_seconds_premature, max_seconds_premature,
		       young_bar_count,
		       avg_bar_age_seconds, min_bar_age_seconds, max_bar_age_seconds,
		       bar_interval_seconds
		FROM audit_reports
		ORDER BY generated_at DESC
		LIMIT 1
	`)

	var report models.AggregateReport
	err := row.Scan(
		&report.RunID,
		&report.GeneratedAt,
		&report.TotalCaptures,
		&report.PrematureCount,
		&report.PrematurePercentage,
		&report.AvgSecondsPremature,
		&report.MaxSecondsPremature,
		&report.YoungBarCount,
		&report.AvgBarAgeSeconds,
		&report.MinBarAgeSeconds,
		&report.MaxBarAgeSeconds,
		&report.BarIntervalSeconds,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch latest audit report: %w", err)
	}
	return &report, nil
}
