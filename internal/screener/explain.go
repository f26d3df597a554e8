package screener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wonny/futuquant/internal/rules"
)

// ExplainFile is the markdown report Explain writes.
const ExplainFile = "screener_explain.md"

// helper names the rule grammar exposes; they are callable, not
// context bindings, so the values section skips them.
var helperNames = map[string]bool{"pct": true, "cross_up": true}

// Explain renders a markdown report for the top symbols of the last
// screen: per symbol, every passed rule with the current values of the
// identifiers it references.
func (s *Screener) Explain(ctx context.Context, outDir string, top int) error {
	rows, err := ReadResults(outDir)
	if err != nil {
		return err
	}

	symbols := topSymbols(rows, top)
	if len(symbols) == 0 {
		return fmt.Errorf("no passed rules in %s", ResultsFile)
	}

	lines := []string{"# Screener Explanation", ""}
	for _, entry := range symbols {
		rctx, err := s.buildContext(ctx, entry.symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", entry.symbol).Warn("Context build failed, skipping symbol")
			continue
		}

		lines = append(lines, fmt.Sprintf("## %s  (rules passed: %d)", entry.symbol, entry.passed))
		for _, row := range rows {
			if row.Symbol != entry.symbol || !row.Pass {
				continue
			}
			lines = append(lines, fmt.Sprintf("- **%s %s**: `%s`", row.ID, row.Name, row.Rule))
			if vals := ruleValues(row.Rule, rctx); vals != "" {
				lines = append(lines, "  - values: "+vals)
			}
		}
		lines = append(lines, "")
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(outDir, ExplainFile)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ExplainFile, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"path":    path,
		"symbols": len(symbols),
	}).Info("Screener explanation written")
	return nil
}

type symbolCount struct {
	symbol string
	passed int
}

// topSymbols ranks symbols by passed-rule count, ties broken by name
// so the report order is stable.
func topSymbols(rows []ResultRow, top int) []symbolCount {
	counts := map[string]int{}
	for _, row := range rows {
		if row.Pass {
			counts[row.Symbol]++
		}
	}

	ranked := make([]symbolCount, 0, len(counts))
	for sym, n := range counts {
		ranked = append(ranked, symbolCount{symbol: sym, passed: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].passed != ranked[j].passed {
			return ranked[i].passed > ranked[j].passed
		}
		return ranked[i].symbol < ranked[j].symbol
	})

	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	return ranked
}

// ruleValues renders "name=value" pairs for every context binding the
// rule expression references.
func ruleValues(expr string, rctx *rules.Context) string {
	names, err := rules.NamesRequired(expr)
	if err != nil {
		return ""
	}

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if helperNames[name] {
			continue
		}
		if v, ok := rctx.Value(name); ok {
			parts = append(parts, fmt.Sprintf("%s=%.4g", name, v))
		} else {
			parts = append(parts, name+"=?")
		}
	}
	return strings.Join(parts, ", ")
}
