package marketdata

import (
	"context"

	"github.com/wonny/futuquant/internal/contracts"
	"github.com/wonny/futuquant/internal/external/futu"
	"github.com/wonny/futuquant/internal/features"
	"github.com/wonny/futuquant/internal/strategyconfig"
)

// GatewaySource serves market data from a live OpenD gateway.
type GatewaySource struct {
	client *futu.Client
	cfg    strategyconfig.Futu
}

var _ Source = (*GatewaySource)(nil)

// NewGatewaySource creates a gateway-backed source
func NewGatewaySource(client *futu.Client, cfg strategyconfig.Futu) *GatewaySource {
	return &GatewaySource{client: client, cfg: cfg}
}

// Klines fetches bars through the gateway.
func (s *GatewaySource) Klines(ctx context.Context, symbol, ktype string, num int) ([]contracts.Candle, error) {
	return s.client.GetKlines(ctx, symbol, ktype, num, s.cfg.AuType)
}

// LatestFrame fetches the configured symbol's history and reduces it to
// the latest feature row. An empty fetch yields an empty frame so the
// caller surfaces the condition.
func (s *GatewaySource) LatestFrame(ctx context.Context) (*features.Frame, error) {
	candles, err := s.Klines(ctx, s.cfg.Symbol, s.cfg.KType, s.cfg.KNum)
	if err != nil {
		return nil, err
	}
	return latestFrame(candles)
}
