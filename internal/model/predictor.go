package model

import (
	"errors"
	"math"
)

// ErrEmptyRow is returned when a predictor receives no features.
var ErrEmptyRow = errors.New("empty feature row")

// Predictor scores one sanitised feature row.
type Predictor interface {
	// Predict returns a probability in [0, 1] for the given features.
	Predict(features []float32) (float64, error)
}

// Logistic is the demo predictor: a sigmoid over the feature sum.
// It stands in for a trained model while keeping the full pipeline
// exercisable end to end.
type Logistic struct{}

// NewLogistic creates the demo predictor.
func NewLogistic() *Logistic {
	return &Logistic{}
}

// Predict returns sigmoid(sum(features)).
func (l *Logistic) Predict(features []float32) (float64, error) {
	if len(features) == 0 {
		return 0, ErrEmptyRow
	}
	sum := 0.0
	for _, f := range features {
		sum += float64(f)
	}
	return 1 / (1 + math.Exp(-sum)), nil
}
