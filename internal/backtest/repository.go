package backtest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunRecord is one persisted backtest run summary.
type RunRecord struct {
	ID      int64     `json:"id"`
	Symbol  string    `json:"symbol"`
	Bars    int       `json:"bars"`
	Trades  int       `json:"trades"`
	Metrics Metrics   `json:"metrics"`
	CostBps float64   `json:"cost_bps"`
	RanAt   time.Time `json:"ran_at"`
}

// Repository persists backtest run summaries
// ⭐ SSOT: 백테스트 실행 기록은 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new backtest run repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun appends one run summary. costBps is the flat fee for single
// runs and zero for batch runs where costs are per bar.
func (r *Repository) SaveRun(ctx context.Context, result *Result, costBps float64) error {
	query := `
		INSERT INTO data.backtest_runs (symbol, bars, trades, cagr, sharpe, mdd, vol, cost_bps, ran_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		result.Symbol, result.Bars, len(result.Trades),
		result.Metrics.CAGR, result.Metrics.Sharpe, result.Metrics.MDD, result.Metrics.Vol,
		costBps, time.Now(),
	)
	return err
}

// GetRecentRuns retrieves run summaries, newest first
func (r *Repository) GetRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, symbol, bars, trades, cagr, sharpe, mdd, vol, cost_bps, ran_at
		FROM data.backtest_runs
		ORDER BY ran_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.ID, &rec.Symbol, &rec.Bars, &rec.Trades,
			&rec.Metrics.CAGR, &rec.Metrics.Sharpe, &rec.Metrics.MDD, &rec.Metrics.Vol,
			&rec.CostBps, &rec.RanAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetBestRun retrieves the highest-Sharpe run for a symbol
func (r *Repository) GetBestRun(ctx context.Context, symbol string) (*RunRecord, error) {
	query := `
		SELECT id, symbol, bars, trades, cagr, sharpe, mdd, vol, cost_bps, ran_at
		FROM data.backtest_runs
		WHERE symbol = $1
		ORDER BY sharpe DESC
		LIMIT 1
	`

	var rec RunRecord
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&rec.ID, &rec.Symbol, &rec.Bars, &rec.Trades,
		&rec.Metrics.CAGR, &rec.Metrics.Sharpe, &rec.Metrics.MDD, &rec.Metrics.Vol,
		&rec.CostBps, &rec.RanAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
