package model

import (
	"errors"
	"math"
	"testing"
)

func TestLogisticPredict(t *testing.T) {
	p := NewLogistic()

	tests := []struct {
		name     string
		features []float32
		want     float64
	}{
		{"zero sum", []float32{0, 0, 0}, 0.5},
		{"positive sum", []float32{1, 2, 3, 4}, 1 / (1 + math.Exp(-10))},
		{"negative sum", []float32{-2, -3}, 1 / (1 + math.Exp(5))},
		{"cancelling", []float32{1.5, -1.5}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Predict(tt.features)
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Predict(%v) = %v, want %v", tt.features, got, tt.want)
			}
		})
	}
}

func TestLogisticPredictBounds(t *testing.T) {
	p := NewLogistic()

	prob, err := p.Predict([]float32{1000})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if prob < 0 || prob > 1 {
		t.Errorf("probability out of range: %v", prob)
	}

	prob, err = p.Predict([]float32{-1000})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if prob < 0 || prob > 1 {
		t.Errorf("probability out of range: %v", prob)
	}
}

func TestLogisticPredictEmpty(t *testing.T) {
	p := NewLogistic()

	if _, err := p.Predict(nil); !errors.Is(err, ErrEmptyRow) {
		t.Errorf("err = %v, want ErrEmptyRow", err)
	}
}
