package futu

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/httputil"
	"github.com/wonny/futuquant/pkg/logger"
)

// OpenD throttles per-connection request bursts, so we pace ourselves
// below its quota.
const requestsPerSecond = 10

// Client handles communication with the Futu OpenD gateway
// ⭐ SSOT: OpenD API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a new OpenD gateway client
func NewClient(cfg strategyconfig.Futu, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log,
		baseURL:    fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// GetKlines fetches up to num historical bars for a symbol, oldest first.
// ktype and autype follow the OpenD naming (K_DAY, qfq, ...).
func (c *Client) GetKlines(ctx context.Context, symbol, ktype string, num int, autype string) ([]contracts.Candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("code", symbol)
	params.Set("ktype", ktype)
	params.Set("num", strconv.Itoa(num))
	params.Set("autype", autype)

	var resp klineResponse
	reqURL := fmt.Sprintf("%s/api/v1/kline?%s", c.baseURL, params.Encode())
	if err := c.httpClient.GetJSON(ctx, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("kline request: %w", err)
	}

	if resp.RetCode != retOK {
		return nil, fmt.Errorf("kline request rejected: ret_code=%d msg=%s", resp.RetCode, resp.RetMsg)
	}

	candles := make([]contracts.Candle, 0, len(resp.Data.KLineList))
	for _, k := range resp.Data.KLineList {
		candle, ok := k.toCandle(symbol)
		if !ok {
			c.logger.WithFields(map[string]interface{}{
				"symbol":   symbol,
				"time_key": k.TimeKey,
			}).Warn("Skipping kline with unparseable time_key")
			continue
		}
		candles = append(candles, candle)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"ktype":  ktype,
		"bars":   len(candles),
	}).Debug("Fetched klines")

	return candles, nil
}

// GetQuote fetches the latest traded state for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*contracts.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("code", symbol)

	var resp quoteResponse
	reqURL := fmt.Sprintf("%s/api/v1/quote?%s", c.baseURL, params.Encode())
	if err := c.httpClient.GetJSON(ctx, reqURL, &resp); err != nil {
		return nil, fmt.Errorf("quote request: %w", err)
	}

	if resp.RetCode != retOK {
		return nil, fmt.Errorf("quote request rejected: ret_code=%d msg=%s", resp.RetCode, resp.RetMsg)
	}

	return resp.Data.toQuote(), nil
}
