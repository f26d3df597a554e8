package contracts

import "time"

// FeatureRow is the sanitised model input built by the feature bridge:
// one value per expected column, in column order, float32 like the
// model consumes.
// ⭐ SSOT: 모델 입력은 이 타입으로만 전달
type FeatureRow struct {
	Columns []string  `json:"columns"`
	Values  []float32 `json:"values"`
	BuiltAt time.Time `json:"built_at"`
}

// Dim returns the number of features in the row.
func (r *FeatureRow) Dim() int {
	return len(r.Values)
}

// Get returns the value for a named column.
func (r *FeatureRow) Get(col string) (float32, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return 0, false
}

// Map returns the row as a column → value mapping.
func (r *FeatureRow) Map() map[string]float32 {
	m := make(map[string]float32, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}
