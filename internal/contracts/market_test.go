package contracts

import (
	"testing"
	"time"
)

func sampleCandles() []Candle {
	base := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	return []Candle{
		{Symbol: "HK.00700", Time: base, Open: 370, High: 375, Low: 368, Close: 373, Volume: 1200000},
		{Symbol: "HK.00700", Time: base.AddDate(0, 0, 1), Open: 373, High: 380, Low: 372, Close: 379, Volume: 980000},
		{Symbol: "HK.00700", Time: base.AddDate(0, 0, 2), Open: 379, High: 381, Low: 374, Close: 375, Volume: 1100000},
	}
}

func TestSeriesExtractors(t *testing.T) {
	candles := sampleCandles()

	tests := []struct {
		name    string
		extract func([]Candle) []float64
		want    []float64
	}{
		{"closes", Closes, []float64{373, 379, 375}},
		{"highs", Highs, []float64{375, 380, 381}},
		{"lows", Lows, []float64{368, 372, 374}},
		{"volumes", Volumes, []float64{1200000, 980000, 1100000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.extract(candles)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSeriesExtractorsEmpty(t *testing.T) {
	if got := Closes(nil); len(got) != 0 {
		t.Errorf("Closes(nil) len = %d, want 0", len(got))
	}
	if got := Volumes([]Candle{}); len(got) != 0 {
		t.Errorf("Volumes(empty) len = %d, want 0", len(got))
	}
}

func TestKTypeConstants(t *testing.T) {
	tests := []struct {
		ktype string
		want  string
	}{
		{KTypeDay, "K_DAY"},
		{KTypeWeek, "K_WEEK"},
		{KTypeMonth, "K_MON"},
		{KType1Min, "K_1M"},
		{KType60Min, "K_60M"},
	}

	for _, tt := range tests {
		if tt.ktype != tt.want {
			t.Errorf("ktype = %q, want %q", tt.ktype, tt.want)
		}
	}
}

func TestAuTypeConstants(t *testing.T) {
	if AuTypeForward != "qfq" {
		t.Errorf("AuTypeForward = %q, want qfq", AuTypeForward)
	}
	if AuTypeBackward != "hfq" {
		t.Errorf("AuTypeBackward = %q, want hfq", AuTypeBackward)
	}
	if AuTypeNone != "None" {
		t.Errorf("AuTypeNone = %q, want None", AuTypeNone)
	}
}
