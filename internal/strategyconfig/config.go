package strategyconfig

import "time"

// Config는 트레이딩 전략의 전체 설정 (config.yaml)
type Config struct {
	Features Features `yaml:"features" json:"features"`
	Futu     Futu     `yaml:"futu" json:"futu"`
	Symbols  []string `yaml:"symbols" json:"symbols"`
	Voter    Voter    `yaml:"voter" json:"voter"`
	Backtest Backtest `yaml:"backtest" json:"backtest"`
	Alerts   Alerts   `yaml:"alerts" json:"alerts"`
}

// Features 모델 입력 피처
type Features struct {
	Cols []string `yaml:"cols" json:"cols"` // 순서 보장, 브릿지가 이 순서로 행 구성
}

// Futu OpenD 게이트웨이 연결 설정
type Futu struct {
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Symbol string `yaml:"symbol" json:"symbol"`
	KType  string `yaml:"ktype" json:"ktype"`   // K_DAY, K_60M, ...
	KNum   int    `yaml:"k_num" json:"k_num"`   // 조회 봉 수
	AuType string `yaml:"autype" json:"autype"` // None | qfq | hfq
}

// Voter 투표 루프 설정
type Voter struct {
	IntervalSeconds int `yaml:"interval_seconds" json:"interval_seconds"`
}

// Interval returns the voter cycle interval as a duration.
func (v Voter) Interval() time.Duration {
	return time.Duration(v.IntervalSeconds) * time.Second
}

// Backtest 백테스트 설정
type Backtest struct {
	Bars        int     `yaml:"bars" json:"bars"`
	Warmup      int     `yaml:"warmup" json:"warmup"`
	CostBps     float64 `yaml:"cost_bps" json:"cost_bps"`
	SpreadBps   float64 `yaml:"spread_bps" json:"spread_bps"`
	SlipBps     float64 `yaml:"slip_bps" json:"slip_bps"`
	SlipATRMult float64 `yaml:"slip_atr_mult" json:"slip_atr_mult"`
}

// Alerts 알림 설정. 임계값도 여기 속한다 (voter가 참조).
type Alerts struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	ThrottleSeconds  int      `yaml:"throttle_seconds" json:"throttle_seconds"`
	MinUnrealizedPnL float64  `yaml:"min_unrealized_pnl" json:"min_unrealized_pnl"`
	MinVoterScore    float64  `yaml:"min_voter_score" json:"min_voter_score"`
	Telegram         Telegram `yaml:"telegram" json:"telegram"`
	Email            Email    `yaml:"email" json:"email"`
}

// Throttle returns the per-event minimum interval.
func (a Alerts) Throttle() time.Duration {
	return time.Duration(a.ThrottleSeconds) * time.Second
}

type Telegram struct {
	BotToken string `yaml:"bot_token" json:"bot_token"`
	ChatID   string `yaml:"chat_id" json:"chat_id"`
}

// Configured reports whether the telegram channel is usable.
func (t Telegram) Configured() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type Email struct {
	SMTPHost string   `yaml:"smtp_host" json:"smtp_host"`
	SMTPPort int      `yaml:"smtp_port" json:"smtp_port"`
	Username string   `yaml:"username" json:"username"`
	Password string   `yaml:"password" json:"password"`
	FromAddr string   `yaml:"from_addr" json:"from_addr"`
	ToAddrs  []string `yaml:"to_addrs" json:"to_addrs"`
}

// Configured reports whether the email channel has everything it needs.
func (e Email) Configured() bool {
	return e.SMTPHost != "" && e.Username != "" && e.Password != "" &&
		e.FromAddr != "" && len(e.ToAddrs) > 0
}

// ActiveSymbols returns the symbol universe: the symbols list when set,
// otherwise the single futu symbol.
func (c *Config) ActiveSymbols() []string {
	if len(c.Symbols) > 0 {
		return c.Symbols
	}
	return []string{c.Futu.Symbol}
}

// applyDefaults fills zero values the way the loaders always have.
func applyDefaults(cfg *Config) {
	if len(cfg.Features.Cols) == 0 {
		cfg.Features.Cols = []string{"price", "volume", "macd", "bbands"}
	}
	if cfg.Futu.Host == "" {
		cfg.Futu.Host = "127.0.0.1"
	}
	if cfg.Futu.Port == 0 {
		cfg.Futu.Port = 11111
	}
	if cfg.Futu.Symbol == "" {
		cfg.Futu.Symbol = "HK.00700"
	}
	if cfg.Futu.KType == "" {
		cfg.Futu.KType = "K_DAY"
	}
	if cfg.Futu.KNum == 0 {
		cfg.Futu.KNum = 2000
	}
	if cfg.Futu.AuType == "" {
		cfg.Futu.AuType = "qfq"
	}
	if cfg.Voter.IntervalSeconds == 0 {
		cfg.Voter.IntervalSeconds = 60
	}
	if cfg.Backtest.Bars == 0 {
		cfg.Backtest.Bars = 2000
	}
	if cfg.Backtest.Warmup == 0 {
		cfg.Backtest.Warmup = 60
	}
	if cfg.Backtest.CostBps == 0 {
		cfg.Backtest.CostBps = 5.0
	}
	if cfg.Backtest.SpreadBps == 0 {
		cfg.Backtest.SpreadBps = 1.0
	}
	if cfg.Backtest.SlipBps == 0 {
		cfg.Backtest.SlipBps = 1.0
	}
	if cfg.Backtest.SlipATRMult == 0 {
		cfg.Backtest.SlipATRMult = 0.1
	}
	if cfg.Alerts.ThrottleSeconds == 0 {
		cfg.Alerts.ThrottleSeconds = 60
	}
	if cfg.Alerts.MinUnrealizedPnL == 0 {
		cfg.Alerts.MinUnrealizedPnL = -999999
	}
	if cfg.Alerts.MinVoterScore == 0 {
		cfg.Alerts.MinVoterScore = -9e9
	}
	if cfg.Alerts.Email.SMTPPort == 0 {
		cfg.Alerts.Email.SMTPPort = 587
	}
}
