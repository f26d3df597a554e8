package strategyconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRulesMissingFile(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "rules.yaml"))
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}

	// 파일 없으면 기본 규칙
	defaults := DefaultRules()
	if len(rules) != len(defaults) {
		t.Fatalf("expected %d default rules, got %d", len(defaults), len(rules))
	}
	if rules[0].Rule != "ema_20 > ema_50" || rules[0].Weight != 1.0 {
		t.Errorf("rules[0] = %+v", rules[0])
	}
}

func TestLoadRulesEmptyPath(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != len(DefaultRules()) {
		t.Errorf("expected defaults for empty path, got %d rules", len(rules))
	}
}

func TestLoadRulesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
rules:
  - id: T1
    name: Golden cross
    rule: cross_up(ema_20, ema_50)
    weight: 2.0
  - id: T2
    name: Cheap
    rule: pe < 15
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}

	if rules[0].ID != "T1" || rules[0].Weight != 2.0 {
		t.Errorf("rules[0] = %+v", rules[0])
	}

	// weight 생략 시 1.0
	if rules[1].Weight != 1.0 {
		t.Errorf("expected default weight 1.0, got %v", rules[1].Weight)
	}
}

func TestLoadRulesEmptyRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
rules:
  - id: T1
    weight: 1.0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	if _, err := LoadRules(path); err == nil {
		t.Error("expected error for rule without expression")
	}
}

func TestDefaultBatchRules(t *testing.T) {
	rules := DefaultBatchRules()
	if len(rules) != 5 {
		t.Fatalf("expected 5 batch rules, got %d", len(rules))
	}

	// 펀더멘털 규칙 포함 확인
	hasPE := false
	for _, r := range rules {
		if r.Rule == "pe < 30" {
			hasPE = true
		}
	}
	if !hasPE {
		t.Error("batch rules must include PE filter")
	}
}
