package strategyconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule은 투표 규칙 하나. 표현식이 참이면 weight만큼 점수 가산.
type Rule struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Rule   string  `yaml:"rule" json:"rule"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// ruleFile mirrors rules.yaml. Weight는 생략 시 1.0이라 포인터로 받는다.
type ruleFile struct {
	Rules []struct {
		ID     string   `yaml:"id"`
		Name   string   `yaml:"name"`
		Rule   string   `yaml:"rule"`
		Weight *float64 `yaml:"weight"`
	} `yaml:"rules"`
}

// DefaultRules returns the built-in voter rule set used when no
// rules.yaml is present.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "R1", Name: "EMA trend", Rule: "ema_20 > ema_50", Weight: 1.0},
		{ID: "R2", Name: "MACD momentum", Rule: "macd_hist > 0", Weight: 0.5},
		{ID: "R3", Name: "RSI not overbought", Rule: "rsi_14 < 70", Weight: 0.2},
		{ID: "R4", Name: "Above SMA50", Rule: "close > sma_50", Weight: 0.3},
	}
}

// DefaultBatchRules returns the wider rule set the batch backtest falls
// back to, including fundamentals filters.
func DefaultBatchRules() []Rule {
	return []Rule{
		{ID: "B1", Name: "EMA trend", Rule: "ema_20 > ema_50", Weight: 1.0},
		{ID: "B2", Name: "MACD and RSI", Rule: "macd_hist > 0 and rsi_14 < 70", Weight: 0.6},
		{ID: "B3", Name: "Above SMA50", Rule: "close > sma_50", Weight: 0.3},
		{ID: "B4", Name: "PE under 30", Rule: "pe < 30", Weight: 0.2},
		{ID: "B5", Name: "Positive ROE", Rule: "roe > 0.1", Weight: 0.2},
	}
}

// LoadRules reads rules.yaml. A missing file or missing rules key falls
// back to the built-in defaults, matching the scripts this replaces.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), nil
		}
		return nil, err
	}

	var file ruleFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if len(file.Rules) == 0 {
		return DefaultRules(), nil
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, r := range file.Rules {
		if r.Rule == "" {
			return nil, ValidationError{fmt.Sprintf("rules[%d].rule", i), "required"}
		}
		weight := 1.0
		if r.Weight != nil {
			weight = *r.Weight
		}
		rules = append(rules, Rule{ID: r.ID, Name: r.Name, Rule: r.Rule, Weight: weight})
	}
	return rules, nil
}
