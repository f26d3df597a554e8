package voter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/futuquant/internal/contracts"
)

// Repository persists vote snapshots
// ⭐ SSOT: 투표 스냅샷 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new vote repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save appends one vote snapshot
func (r *Repository) Save(ctx context.Context, vote *contracts.Vote) error {
	query := `
		INSERT INTO data.votes (symbol, score, signal, rules_evaluated, rules_passed, fundamentals_missing, unrealized_pnl, voted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		vote.Symbol, vote.Score, int(vote.Signal), vote.RulesEvaluated,
		vote.RulesPassed, vote.FundamentalsMissing, vote.UnrealizedPnL, vote.At,
	)
	return err
}

// GetLatest retrieves the most recent vote for a symbol
func (r *Repository) GetLatest(ctx context.Context, symbol string) (*contracts.Vote, error) {
	query := `
		SELECT symbol, score, signal, rules_evaluated, rules_passed, fundamentals_missing, unrealized_pnl, voted_at
		FROM data.votes
		WHERE symbol = $1
		ORDER BY voted_at DESC
		LIMIT 1
	`

	var v contracts.Vote
	var signal int
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&v.Symbol, &v.Score, &signal, &v.RulesEvaluated,
		&v.RulesPassed, &v.FundamentalsMissing, &v.UnrealizedPnL, &v.At,
	)
	if err != nil {
		return nil, err
	}
	v.Signal = contracts.Signal(signal)
	return &v, nil
}

// GetLatestAll retrieves the most recent vote per symbol
func (r *Repository) GetLatestAll(ctx context.Context) ([]contracts.Vote, error) {
	query := `
		SELECT DISTINCT ON (symbol)
			symbol, score, signal, rules_evaluated, rules_passed, fundamentals_missing, unrealized_pnl, voted_at
		FROM data.votes
		ORDER BY symbol, voted_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []contracts.Vote
	for rows.Next() {
		var v contracts.Vote
		var signal int
		if err := rows.Scan(
			&v.Symbol, &v.Score, &signal, &v.RulesEvaluated,
			&v.RulesPassed, &v.FundamentalsMissing, &v.UnrealizedPnL, &v.At,
		); err != nil {
			return nil, err
		}
		v.Signal = contracts.Signal(signal)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// PruneBefore deletes vote snapshots older than cutoff and returns the
// count removed
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM data.votes WHERE voted_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetHistory retrieves recent votes for a symbol, newest first
func (r *Repository) GetHistory(ctx context.Context, symbol string, limit int) ([]contracts.Vote, error) {
	query := `
		SELECT symbol, score, signal, rules_evaluated, rules_passed, fundamentals_missing, unrealized_pnl, voted_at
		FROM data.votes
		WHERE symbol = $1
		ORDER BY voted_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []contracts.Vote
	for rows.Next() {
		var v contracts.Vote
		var signal int
		if err := rows.Scan(
			&v.Symbol, &v.Score, &signal, &v.RulesEvaluated,
			&v.RulesPassed, &v.FundamentalsMissing, &v.UnrealizedPnL, &v.At,
		); err != nil {
			return nil, err
		}
		v.Signal = contracts.Signal(signal)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
