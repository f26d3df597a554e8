package backtest

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/wonny/futuquant/internal/contracts"
)

// Inline SVG rendering for the reports. Curves become a polyline
// scaled into the viewport, trades become triangle markers.

const (
	chartWidth  = 900
	chartHeight = 300
	chartPad    = 40
)

func lineSVG(curve []EquityPoint, title string) string {
	var b strings.Builder
	openSVG(&b, title)
	if len(curve) > 1 {
		values := make([]float64, len(curve))
		for i, p := range curve {
			values[i] = p.Equity
		}
		writePolyline(&b, values, "#1f77b4")
		writeAxisLabels(&b, values, curve[0].Time.Format("2006-01-02"), curve[len(curve)-1].Time.Format("2006-01-02"))
	}
	b.WriteString("</svg>\n")
	return b.String()
}

func priceSVG(candles []contracts.Candle, trades []Trade, title string) string {
	var b strings.Builder
	openSVG(&b, title)
	if len(candles) > 1 {
		values := make([]float64, len(candles))
		index := make(map[int64]int, len(candles))
		for i, c := range candles {
			values[i] = c.Close
			index[c.Time.Unix()] = i
		}
		writePolyline(&b, values, "#1f77b4")
		writeAxisLabels(&b, values, candles[0].Time.Format("2006-01-02"), candles[len(candles)-1].Time.Format("2006-01-02"))

		lo, hi := valueRange(values)
		for _, t := range trades {
			i, ok := index[t.Time.Unix()]
			if !ok {
				continue
			}
			x := xAt(i, len(values))
			y := yAt(t.Price, lo, hi)
			if t.Side == "BUY" {
				fmt.Fprintf(&b, `<polygon points="%.1f,%.1f %.1f,%.1f %.1f,%.1f" fill="green"/>`,
					x, y-6, x-4, y+2, x+4, y+2)
			} else {
				fmt.Fprintf(&b, `<polygon points="%.1f,%.1f %.1f,%.1f %.1f,%.1f" fill="red"/>`,
					x, y+6, x-4, y-2, x+4, y-2)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("</svg>\n")
	return b.String()
}

func openSVG(b *strings.Builder, title string) {
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		chartWidth, chartHeight, chartWidth, chartHeight)
	b.WriteString("\n")
	fmt.Fprintf(b, `<text x="%d" y="20" font-family="sans-serif" font-size="14">%s</text>`,
		chartPad, template.HTMLEscapeString(title))
	b.WriteString("\n")
}

func writePolyline(b *strings.Builder, values []float64, stroke string) {
	lo, hi := valueRange(values)
	points := make([]string, len(values))
	for i, v := range values {
		points[i] = fmt.Sprintf("%.1f,%.1f", xAt(i, len(values)), yAt(v, lo, hi))
	}
	fmt.Fprintf(b, `<polyline fill="none" stroke="%s" stroke-width="1.5" points="%s"/>`,
		stroke, strings.Join(points, " "))
	b.WriteString("\n")
}

func writeAxisLabels(b *strings.Builder, values []float64, first, last string) {
	lo, hi := valueRange(values)
	fmt.Fprintf(b, `<text x="2" y="%d" font-family="sans-serif" font-size="10">%.4g</text>`, chartPad+4, hi)
	b.WriteString("\n")
	fmt.Fprintf(b, `<text x="2" y="%d" font-family="sans-serif" font-size="10">%.4g</text>`, chartHeight-chartPad, lo)
	b.WriteString("\n")
	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="10">%s</text>`,
		chartPad, chartHeight-chartPad+14, first)
	b.WriteString("\n")
	fmt.Fprintf(b, `<text x="%d" y="%d" font-family="sans-serif" font-size="10" text-anchor="end">%s</text>`,
		chartWidth-chartPad, chartHeight-chartPad+14, last)
	b.WriteString("\n")
}

func valueRange(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func xAt(i, n int) float64 {
	if n < 2 {
		return chartPad
	}
	return chartPad + float64(i)*float64(chartWidth-2*chartPad)/float64(n-1)
}

func yAt(v, lo, hi float64) float64 {
	if hi == lo {
		return chartHeight / 2
	}
	return chartPad + (hi-v)/(hi-lo)*float64(chartHeight-2*chartPad)
}
