package screener

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/futuquant/internal/external/fundamentals"
	"github.com/wonny/futuquant/internal/marketdata"
	"github.com/wonny/futuquant/internal/rules"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/logger"
)

// ResultsFile is the CSV the screener writes and explain reads.
const ResultsFile = "screen_results.csv"

// ResultRow is one rule evaluated against one symbol.
type ResultRow struct {
	Symbol string `json:"symbol"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rule   string `json:"rule"`
	Pass   bool   `json:"pass"`
}

// FundamentalsSource supplies valuation fields for rule contexts.
type FundamentalsSource interface {
	Fetch(ctx context.Context, symbol string) (*fundamentals.Snapshot, error)
}

// Screener evaluates the full rule set against every configured symbol
// ⭐ SSOT: 스크리닝 실행은 여기서만
type Screener struct {
	source       marketdata.Source
	ruleSet      []strategyconfig.Rule
	fundamentals FundamentalsSource
	cfg          *strategyconfig.Config
	logger       *logger.Logger
}

// New creates a screener. fundamentals is optional.
func New(source marketdata.Source, ruleSet []strategyconfig.Rule,
	funds FundamentalsSource, cfg *strategyconfig.Config, log *logger.Logger) *Screener {
	return &Screener{
		source:       source,
		ruleSet:      ruleSet,
		fundamentals: funds,
		cfg:          cfg,
		logger:       log,
	}
}

// Screen evaluates every rule for every configured symbol. Symbols
// whose data cannot be fetched are skipped with a warning so one dead
// ticker never sinks the whole screen.
func (s *Screener) Screen(ctx context.Context) ([]ResultRow, error) {
	symbols := s.cfg.ActiveSymbols()
	rows := make([]ResultRow, 0, len(symbols)*len(s.ruleSet))

	for _, symbol := range symbols {
		rctx, err := s.buildContext(ctx, symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Context build failed, skipping symbol")
			continue
		}

		for _, res := range rules.EvaluateAll(s.ruleSet, rctx) {
			rows = append(rows, ResultRow{
				Symbol: symbol,
				ID:     res.Rule.ID,
				Name:   res.Rule.Name,
				Rule:   res.Rule.Rule,
				Pass:   res.Pass,
			})
		}
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no symbol produced screen results")
	}

	s.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"rows":    len(rows),
	}).Info("Screen completed")

	return rows, nil
}

// WriteResults writes screen rows to outDir/screen_results.csv.
func (s *Screener) WriteResults(outDir string, rows []ResultRow) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(outDir, ResultsFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", ResultsFile, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"symbol", "id", "name", "rule", "pass"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{
			row.Symbol, row.ID, row.Name, row.Rule, strconv.FormatBool(row.Pass),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	s.logger.WithField("path", path).Info("Screen results written")
	return nil
}

// ReadResults loads a previously written screen_results.csv.
func ReadResults(outDir string) ([]ResultRow, error) {
	path := filepath.Join(outDir, ResultsFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s (run screen first): %w", ResultsFile, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ResultsFile, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s is empty", ResultsFile)
	}

	rows := make([]ResultRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != 5 {
			return nil, fmt.Errorf("%s: expected 5 fields, got %d", ResultsFile, len(rec))
		}
		pass, err := strconv.ParseBool(rec[4])
		if err != nil {
			return nil, fmt.Errorf("%s: bad pass value %q: %w", ResultsFile, rec[4], err)
		}
		rows = append(rows, ResultRow{
			Symbol: rec[0], ID: rec[1], Name: rec[2], Rule: rec[3], Pass: pass,
		})
	}
	return rows, nil
}

// buildContext fetches a symbol's history and fundamentals and binds
// them into a rule context.
func (s *Screener) buildContext(ctx context.Context, symbol string) (*rules.Context, error) {
	candles, err := s.source.Klines(ctx, symbol, s.cfg.Futu.KType, s.cfg.Futu.KNum)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}

	var fields map[string]float64
	if s.fundamentals != nil {
		snap, err := s.fundamentals.Fetch(ctx, symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Warn("Fundamentals unavailable")
		} else {
			fields = snap.Fields
		}
	}

	return rules.BuildContext(candles, fields, symbol)
}
