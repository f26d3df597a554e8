package strategyconfig

import "fmt"

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var validKTypes = map[string]bool{
	"K_1M":   true,
	"K_5M":   true,
	"K_15M":  true,
	"K_30M":  true,
	"K_60M":  true,
	"K_DAY":  true,
	"K_WEEK": true,
	"K_MON":  true,
}

var validAuTypes = map[string]bool{
	"None": true,
	"qfq":  true,
	"hfq":  true,
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Features ===
	if len(cfg.Features.Cols) == 0 {
		return ValidationError{"features.cols", "required"}
	}
	seen := map[string]bool{}
	for i, col := range cfg.Features.Cols {
		if col == "" {
			return ValidationError{fmt.Sprintf("features.cols[%d]", i), "must not be empty"}
		}
		if seen[col] {
			return ValidationError{fmt.Sprintf("features.cols[%d]", i), fmt.Sprintf("duplicate column '%s'", col)}
		}
		seen[col] = true
	}

	// === Futu ===
	if cfg.Futu.Port < 1 || cfg.Futu.Port > 65535 {
		return ValidationError{"futu.port", "must be in [1, 65535]"}
	}
	if !validKTypes[cfg.Futu.KType] {
		return ValidationError{"futu.ktype", fmt.Sprintf("unknown ktype '%s'", cfg.Futu.KType)}
	}
	if !validAuTypes[cfg.Futu.AuType] {
		return ValidationError{"futu.autype", "must be None, qfq or hfq"}
	}
	if cfg.Futu.KNum <= 0 {
		return ValidationError{"futu.k_num", "must be > 0"}
	}
	if len(cfg.Symbols) == 0 && cfg.Futu.Symbol == "" {
		return ValidationError{"futu.symbol", "required when symbols list is empty"}
	}
	for i, sym := range cfg.Symbols {
		if sym == "" {
			return ValidationError{fmt.Sprintf("symbols[%d]", i), "must not be empty"}
		}
	}

	// === Voter ===
	if cfg.Voter.IntervalSeconds <= 0 {
		return ValidationError{"voter.interval_seconds", "must be > 0"}
	}

	// === Backtest ===
	b := cfg.Backtest
	if b.Warmup < 0 {
		return ValidationError{"backtest.warmup", "must be >= 0"}
	}
	if b.Bars <= b.Warmup {
		return ValidationError{"backtest.bars", fmt.Sprintf("must exceed warmup=%d", b.Warmup)}
	}
	if b.CostBps < 0 {
		return ValidationError{"backtest.cost_bps", "must be >= 0"}
	}
	if b.SpreadBps < 0 {
		return ValidationError{"backtest.spread_bps", "must be >= 0"}
	}
	if b.SlipBps < 0 {
		return ValidationError{"backtest.slip_bps", "must be >= 0"}
	}
	if b.SlipATRMult < 0 {
		return ValidationError{"backtest.slip_atr_mult", "must be >= 0"}
	}

	// === Alerts ===
	if cfg.Alerts.ThrottleSeconds < 0 {
		return ValidationError{"alerts.throttle_seconds", "must be >= 0"}
	}
	if cfg.Alerts.Email.SMTPHost != "" {
		if cfg.Alerts.Email.SMTPPort < 1 || cfg.Alerts.Email.SMTPPort > 65535 {
			return ValidationError{"alerts.email.smtp_port", "must be in [1, 65535]"}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 알림 켜졌는데 채널 없음
	if cfg.Alerts.Enabled && !cfg.Alerts.Telegram.Configured() && !cfg.Alerts.Email.Configured() {
		warnings = append(warnings, Warning{
			Code:    "NO_ALERT_CHANNEL",
			Message: "알림 활성화됐지만 채널 미설정: 알림 발송 불가",
		})
	}

	// 비용 0 백테스트 경고
	if cfg.Backtest.CostBps == 0 && cfg.Backtest.SpreadBps == 0 && cfg.Backtest.SlipBps == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_COST",
			Message: "거래 비용 0: 백테스트 결과 낙관적일 수 있음",
		})
	}

	// 짧은 워밍업 경고
	if cfg.Backtest.Warmup < 60 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_WARMUP",
			Message: "워밍업 60봉 미만: 장기 지표(sma_50, ema_50) 불안정",
		})
	}

	// 봉 수 부족 경고
	if cfg.Backtest.Bars < 252 {
		warnings = append(warnings, Warning{
			Code:    "LOW_BARS",
			Message: "봉 수 252 미만: 연환산 지표 신뢰도 낮음",
		})
	}

	return warnings
}
