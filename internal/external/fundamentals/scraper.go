package fundamentals

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/futuquant/pkg/httputil"
	"github.com/wonny/futuquant/pkg/logger"
	"github.com/wonny/futuquant/pkg/redis"
)

const cachePrefix = "quant"

// Snapshot holds the valuation fields scraped for one symbol.
// Fields carries only what the page actually exposed, so callers can
// tell a missing ratio from a zero one.
type Snapshot struct {
	Symbol    string             `json:"symbol"`
	Fields    map[string]float64 `json:"fields"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Scraper fetches fundamentals from public quote pages
// ⭐ SSOT: 펀더멘털 수집은 이 스크레이퍼에서만
type Scraper struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cache      *redis.Cache
	limiter    *redis.RateLimiter
	baseURL    string
}

// NewScraper creates a new fundamentals scraper
func NewScraper(httpClient *httputil.Client, rdb *redis.Client, log *logger.Logger) *Scraper {
	return &Scraper{
		httpClient: httpClient,
		logger:     log,
		cache:      redis.NewCache(rdb, cachePrefix),
		limiter:    redis.NewRateLimiter(rdb, cachePrefix),
		baseURL:    "https://www.futunn.com",
	}
}

// Fetch returns fundamentals for a symbol, serving from cache when warm.
// ⭐ SSOT: 펀더멘털 조회는 이 함수에서만
func (s *Scraper) Fetch(ctx context.Context, symbol string) (*Snapshot, error) {
	var cached Snapshot
	found, err := s.cache.Get(ctx, redis.FundamentalsKey(symbol), &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Fundamentals cache read failed")
	}
	if found {
		return &cached, nil
	}

	if err := s.limiter.Wait(ctx, redis.FundamentalsRateLimit); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	pageURL := fmt.Sprintf("%s/en/stock/%s", s.baseURL, symbolPath(symbol))
	resp, err := s.httpClient.Get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("quote page request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse quote page: %w", err)
	}

	snapshot := parseQuotePage(doc, symbol)

	if err := s.cache.Set(ctx, redis.FundamentalsKey(symbol), snapshot, redis.TTLLong); err != nil {
		s.logger.WithError(err).Warn("Fundamentals cache write failed")
	}

	s.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"fields": len(snapshot.Fields),
	}).Debug("Fetched fundamentals")

	return snapshot, nil
}

// parseQuotePage extracts valuation ratios from the factor table.
// Rows are label/value pairs; unknown labels are skipped.
func parseQuotePage(doc *goquery.Document, symbol string) *Snapshot {
	fields := make(map[string]float64)

	doc.Find("table.quote-factors tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		label := strings.TrimSpace(cells.Eq(0).Text())
		name, isPercent := factorName(label)
		if name == "" {
			return
		}

		value, ok := parseFactor(cells.Eq(1).Text(), isPercent)
		if !ok {
			return
		}
		fields[name] = value
	})

	return &Snapshot{
		Symbol:    symbol,
		Fields:    fields,
		FetchedAt: time.Now(),
	}
}

// factorName maps a page label to a rule context name.
// The second return reports whether the value is quoted in percent.
func factorName(label string) (string, bool) {
	switch {
	case strings.HasPrefix(label, "P/E"), strings.HasPrefix(label, "PER"):
		return "pe", false
	case strings.HasPrefix(label, "P/B"), strings.HasPrefix(label, "PBR"):
		return "pb", false
	case strings.HasPrefix(label, "ROE"):
		return "roe", true
	case strings.HasPrefix(label, "EPS"):
		return "eps", false
	case strings.HasPrefix(label, "Dividend Yield"):
		return "dividend_yield", true
	default:
		return "", false
	}
}

// parseFactor parses a factor cell. Percent values come back as
// fractions so rules like "roe > 0.1" read naturally.
func parseFactor(text string, isPercent bool) (float64, bool) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "-" || s == "--" || s == "N/A" {
		return 0, false
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if isPercent {
		value /= 100
	}
	return value, true
}

// symbolPath converts "HK.00700" to the quote page path segment "00700-HK".
func symbolPath(symbol string) string {
	parts := strings.SplitN(symbol, ".", 2)
	if len(parts) != 2 {
		return symbol
	}
	return fmt.Sprintf("%s-%s", parts[1], parts[0])
}
