package backtest

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"

	"github.com/wonny/futuquant/pkg/logger"
)

const (
	timeLayout       = "2006-01-02 15:04:05"
	recentTradeCount = 100
	bootstrapSamples = 1000
)

// Reporter writes backtest outputs under one directory.
// ⭐ SSOT: 백테스트 리포트 파일은 여기서만 생성
type Reporter struct {
	dir    string
	logger *logger.Logger
}

// NewReporter creates a reporter rooted at dir. The directory is
// created on the first write.
func NewReporter(dir string, log *logger.Logger) *Reporter {
	return &Reporter{dir: dir, logger: log}
}

// WriteSingle writes backtest_trades.csv, backtest_equity.csv,
// backtest_summary.md and the equity and drawdown charts.
func (r *Reporter) WriteSingle(result *Result) error {
	if err := os.MkdirAll(filepath.Join(r.dir, "images"), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	if err := r.writeTrades(filepath.Join(r.dir, "backtest_trades.csv"), result.Trades, false); err != nil {
		return err
	}
	if err := r.writeEquity(filepath.Join(r.dir, "backtest_equity.csv"), result.Equity); err != nil {
		return err
	}

	md := []string{
		"# Backtest Summary",
		"",
		fmt.Sprintf("- Symbol: **%s**", result.Symbol),
		fmt.Sprintf("- Bars: %d", result.Bars),
		fmt.Sprintf("- Trades: %d", len(result.Trades)),
		fmt.Sprintf("- CAGR: %.2f%%", result.Metrics.CAGR*100),
		fmt.Sprintf("- Sharpe: %.2f", result.Metrics.Sharpe),
		fmt.Sprintf("- Max Drawdown: %.2f%%", result.Metrics.MDD*100),
	}
	summaryPath := filepath.Join(r.dir, "backtest_summary.md")
	if err := os.WriteFile(summaryPath, []byte(strings.Join(md, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	curvePath := filepath.Join(r.dir, "images", "equity_curve.svg")
	curve := lineSVG(result.Equity, fmt.Sprintf("Equity Curve (%s)", result.Symbol))
	if err := os.WriteFile(curvePath, []byte(curve), 0644); err != nil {
		return fmt.Errorf("write equity chart: %w", err)
	}
	ddPath := filepath.Join(r.dir, "images", "drawdown.svg")
	dd := lineSVG(Drawdown(result.Equity), fmt.Sprintf("Drawdown (%s)", result.Symbol))
	if err := os.WriteFile(ddPath, []byte(dd), 0644); err != nil {
		return fmt.Errorf("write drawdown chart: %w", err)
	}

	r.logger.WithField("dir", r.dir).Info("Backtest report written")
	return nil
}

type batchRow struct {
	Symbol string
	CAGR   string
	Sharpe string
	MDD    string
}

type batchChart struct {
	Symbol string
	SVG    template.HTML
}

type batchPageData struct {
	Symbols           string
	Rows              []batchRow
	PortfolioCAGR     string
	PortfolioSharpe   string
	PortfolioMDD      string
	PortfolioEquity   template.HTML
	PortfolioDrawdown template.HTML
	Charts            []batchChart
}

var batchPage = template.Must(template.New("batch").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Batch Backtest Report</title></head>
<body>
<h1>Batch Backtest Report</h1>
<p>Symbols: {{.Symbols}}</p>
<h2>Per-Symbol Metrics</h2>
<table border="1" cellspacing="0" cellpadding="6">
<tr><th>Symbol</th><th>CAGR</th><th>Sharpe</th><th>Max Drawdown</th></tr>
{{range .Rows}}<tr><td>{{.Symbol}}</td><td>{{.CAGR}}</td><td>{{.Sharpe}}</td><td>{{.MDD}}</td></tr>
{{end}}</table>
<h2>Portfolio (Equal-weight)</h2>
<p>CAGR {{.PortfolioCAGR}} | Sharpe {{.PortfolioSharpe}} | MDD {{.PortfolioMDD}}</p>
{{.PortfolioEquity}}
{{.PortfolioDrawdown}}
<h2>Recent Trades (Charts)</h2>
{{range .Charts}}<h3>{{.Symbol}}</h3>
{{.SVG}}
{{end}}</body></html>
`))

// WriteBatch writes per-symbol trade and equity CSVs plus the
// backtest_summary.html report with inline charts.
func (r *Reporter) WriteBatch(batch *BatchResult) error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	data := batchPageData{
		PortfolioCAGR:     fmt.Sprintf("%.2f%%", batch.PortfolioMetrics.CAGR*100),
		PortfolioSharpe:   fmt.Sprintf("%.2f", batch.PortfolioMetrics.Sharpe),
		PortfolioMDD:      fmt.Sprintf("%.2f%%", batch.PortfolioMetrics.MDD*100),
		PortfolioEquity:   template.HTML(lineSVG(batch.Portfolio, "Portfolio Equity")),
		PortfolioDrawdown: template.HTML(lineSVG(Drawdown(batch.Portfolio), "Portfolio Drawdown")),
	}

	symbols := make([]string, 0, len(batch.Results))
	for _, result := range batch.Results {
		sym := result.Symbol
		symbols = append(symbols, sym)

		if err := r.writeTrades(filepath.Join(r.dir, sym+"_trades.csv"), result.Trades, true); err != nil {
			return err
		}
		if err := r.writeEquity(filepath.Join(r.dir, sym+"_equity.csv"), result.Equity); err != nil {
			return err
		}

		data.Rows = append(data.Rows, batchRow{
			Symbol: sym,
			CAGR:   fmt.Sprintf("%.2f%%", result.Metrics.CAGR*100),
			Sharpe: fmt.Sprintf("%.2f", result.Metrics.Sharpe),
			MDD:    fmt.Sprintf("%.2f%%", result.Metrics.MDD*100),
		})

		trades := tail(result.Trades, recentTradeCount)
		window := tail(batch.Candles[sym], len(trades)*2+120)
		data.Charts = append(data.Charts, batchChart{
			Symbol: sym,
			SVG:    template.HTML(priceSVG(window, trades, fmt.Sprintf("%s price & trades", sym))),
		})
	}
	data.Symbols = strings.Join(symbols, ", ")

	f, err := os.Create(filepath.Join(r.dir, "backtest_summary.html"))
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	defer f.Close()
	if err := batchPage.Execute(f, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"dir":     r.dir,
		"symbols": len(batch.Results),
	}).Info("Batch report written")
	return nil
}

// PrintSummary prints the run summary table, the daily-returns
// histogram and a bootstrap confidence interval for the mean return.
func (r *Reporter) PrintSummary(w io.Writer, result *Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Bars", "Trades", "CAGR", "Sharpe", "Vol", "Max Drawdown"})
	table.Append(summaryRow(result))
	table.Render()

	rets := simpleReturns(result.Equity)
	if len(rets) < 2 {
		return
	}

	returnsPercent := make([]float64, len(rets))
	for i, p := range rets {
		returnsPercent[i] = p * 100
	}
	fmt.Fprintln(w, "------ DAILY RETURNS (%) ------")
	hist := histogram.Hist(15, returnsPercent)
	if err := histogram.Fprint(w, hist, histogram.Linear(10)); err != nil {
		r.logger.Warnf("print histogram fail: %v", err)
	}
	fmt.Fprintln(w)

	ci := Bootstrap(rets, Mean, bootstrapSamples, 0.95)
	fmt.Fprintln(w, "------ CONFIDENCE INTERVAL (95%) ------")
	fmt.Fprintf(w, "MEAN RETURN: %.4f%% (%.4f%% ~ %.4f%%)\n", ci.Mean*100, ci.Lower*100, ci.Upper*100)
}

// PrintBatchSummary prints the per-symbol table with the portfolio as
// the footer row.
func (r *Reporter) PrintBatchSummary(w io.Writer, batch *BatchResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Bars", "Trades", "CAGR", "Sharpe", "Vol", "Max Drawdown"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	for _, result := range batch.Results {
		table.Append(summaryRow(result))
	}
	table.SetFooter([]string{
		"PORTFOLIO",
		"",
		"",
		fmt.Sprintf("%.2f%%", batch.PortfolioMetrics.CAGR*100),
		fmt.Sprintf("%.2f", batch.PortfolioMetrics.Sharpe),
		fmt.Sprintf("%.2f%%", batch.PortfolioMetrics.Vol*100),
		fmt.Sprintf("%.2f%%", batch.PortfolioMetrics.MDD*100),
	})
	table.Render()
}

func summaryRow(result *Result) []string {
	return []string{
		result.Symbol,
		strconv.Itoa(result.Bars),
		strconv.Itoa(len(result.Trades)),
		fmt.Sprintf("%.2f%%", result.Metrics.CAGR*100),
		fmt.Sprintf("%.2f", result.Metrics.Sharpe),
		fmt.Sprintf("%.2f%%", result.Metrics.Vol*100),
		fmt.Sprintf("%.2f%%", result.Metrics.MDD*100),
	}
}

func (r *Reporter) writeTrades(path string, trades []Trade, withBps bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"time", "side", "price", "qty", "score"}
	if withBps {
		header = []string{"time", "side", "price", "qty", "bps", "score"}
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	for _, t := range trades {
		rec := make([]string, 0, len(header))
		rec = append(rec, t.Time.Format(timeLayout), t.Side, formatFloat(t.Price), formatFloat(t.Qty))
		if withBps {
			rec = append(rec, formatFloat(t.Bps))
		}
		rec = append(rec, formatFloat(t.Score))
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	w.Flush()
	return w.Error()
}

func (r *Reporter) writeEquity(path string, curve []EquityPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "equity"}); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	for _, p := range curve {
		if err := w.Write([]string{p.Time.Format(timeLayout), formatFloat(p.Equity)}); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func tail[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
