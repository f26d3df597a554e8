package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/futuquant/internal/contracts"
)

// Repository persists candles
// ⭐ SSOT: 캔들 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new candle repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts a single candle
func (r *Repository) Save(ctx context.Context, ktype string, c contracts.Candle) error {
	query := `
		INSERT INTO data.candles (symbol, ktype, bar_time, open_price, high_price, low_price, close_price, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, ktype, bar_time) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			volume = EXCLUDED.volume
	`

	_, err := r.pool.Exec(ctx, query,
		c.Symbol, ktype, c.Time, c.Open, c.High, c.Low, c.Close, c.Volume,
	)
	return err
}

// SaveBatch upserts multiple candles
func (r *Repository) SaveBatch(ctx context.Context, ktype string, candles []contracts.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	for _, c := range candles {
		if err := r.Save(ctx, ktype, c); err != nil {
			return err
		}
	}
	return nil
}

// GetLatest retrieves the most recent bars for a symbol, oldest first
func (r *Repository) GetLatest(ctx context.Context, symbol, ktype string, limit int) ([]contracts.Candle, error) {
	query := `
		SELECT symbol, bar_time, open_price, high_price, low_price, close_price, volume
		FROM data.candles
		WHERE symbol = $1 AND ktype = $2
		ORDER BY bar_time DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, symbol, ktype, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []contracts.Candle
	for rows.Next() {
		var c contracts.Candle
		if err := rows.Scan(&c.Symbol, &c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Query runs newest first for the LIMIT, callers expect oldest first.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// PruneBefore deletes bars older than cutoff and returns the count removed
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM data.candles WHERE bar_time < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetRange retrieves bars within a time range, oldest first
func (r *Repository) GetRange(ctx context.Context, symbol, ktype string, from, to time.Time) ([]contracts.Candle, error) {
	query := `
		SELECT symbol, bar_time, open_price, high_price, low_price, close_price, volume
		FROM data.candles
		WHERE symbol = $1 AND ktype = $2 AND bar_time BETWEEN $3 AND $4
		ORDER BY bar_time ASC
	`

	rows, err := r.pool.Query(ctx, query, symbol, ktype, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []contracts.Candle
	for rows.Next() {
		var c contracts.Candle
		if err := rows.Scan(&c.Symbol, &c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, rows.Err()
}
