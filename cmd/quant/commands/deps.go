package commands

import (
	"fmt"

	"github.com/wonny/futuquant/internal/external/futu"
	"github.com/wonny/futuquant/internal/marketdata"
	"github.com/wonny/futuquant/internal/metrics"
	"github.com/wonny/futuquant/internal/strategyconfig"
	"github.com/wonny/futuquant/pkg/config"
	"github.com/wonny/futuquant/pkg/database"
	"github.com/wonny/futuquant/pkg/httputil"
	"github.com/wonny/futuquant/pkg/logger"
)

// deps bundles what every command wires first: env config, logger,
// strategy config and the rule set.
type deps struct {
	cfg      *config.Config
	strategy *strategyconfig.Config
	rules    []strategyconfig.Rule
	log      *logger.Logger
}

// initDeps loads configuration in the fixed order the pipeline
// expects: .env for infrastructure, config.yaml for strategy,
// rules.yaml for the rule set. Global flags override the file paths.
func initDeps() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}
	if rulesFile != "" {
		cfg.RulesFile = rulesFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	strategy, _, err := strategyconfig.Load(cfg.StrategyFile)
	if err != nil {
		log.WithError(err).WithField("path", cfg.StrategyFile).Warn("Strategy file unavailable, using defaults")
		strategy = strategyconfig.Default()
	} else if hash, err := strategyconfig.Hash(strategy); err == nil {
		log.WithFields(map[string]interface{}{
			"path": cfg.StrategyFile,
			"hash": hash[:12],
		}).Info("Strategy loaded")
	}

	ruleSet, err := strategyconfig.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}

	return &deps{
		cfg:      cfg,
		strategy: strategy,
		rules:    ruleSet,
		log:      log,
	}, nil
}

// newSource builds the market data source a command asked for.
// kind "db" needs an open database handle.
func (d *deps) newSource(kind string, db *database.DB) (marketdata.Source, error) {
	switch kind {
	case "gateway":
		httpClient := httputil.New(d.log)
		client := futu.NewClient(d.strategy.Futu, httpClient, d.log)
		return marketdata.NewGatewaySource(client, d.strategy.Futu), nil
	case "synthetic":
		return marketdata.NewSynthetic(d.strategy.Futu.Symbol), nil
	case "db":
		if db == nil {
			return nil, fmt.Errorf("source db requires DATABASE_URL")
		}
		return marketdata.NewDBSource(marketdata.NewRepository(db.Pool), d.strategy.Futu), nil
	default:
		return nil, fmt.Errorf("unknown source: %s (valid: gateway, synthetic, db)", kind)
	}
}

// newMetricsServer returns the exposition server, or nil when metrics
// are disabled.
func (d *deps) newMetricsServer(m *metrics.Metrics) *metrics.Server {
	if !d.cfg.MetricsEnabled {
		return nil
	}
	return metrics.NewServer(m, d.cfg.MetricsPort, d.log)
}
