package features

import (
	"fmt"

	"github.com/wonny/futuquant/internal/contracts"
)

// Frame is a row-major table with ordered columns and raw cells.
// Cells keep whatever the upstream source produced (floats, ints,
// strings, bools, nil) so the probe can detect type problems before
// the bridge sanitises them.
type Frame struct {
	columns []string
	index   map[string]int
	rows    [][]interface{}
}

// NewFrame creates an empty frame with the given column order.
func NewFrame(columns []string) *Frame {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}
	return &Frame{
		columns: append([]string(nil), columns...),
		index:   index,
	}
}

// FrameFromCandles builds an OHLCV frame from candle history, newest last.
func FrameFromCandles(candles []contracts.Candle) *Frame {
	f := NewFrame([]string{"open", "high", "low", "close", "volume"})
	for _, c := range candles {
		f.rows = append(f.rows, []interface{}{c.Open, c.High, c.Low, c.Close, c.Volume})
	}
	return f
}

// AppendRow adds one row. The cell count must match the column count.
func (f *Frame) AppendRow(cells ...interface{}) error {
	if len(cells) != len(f.columns) {
		return fmt.Errorf("row has %d cells, frame has %d columns", len(cells), len(f.columns))
	}
	row := append([]interface{}(nil), cells...)
	f.rows = append(f.rows, row)
	return nil
}

// Columns returns the column order.
func (f *Frame) Columns() []string {
	return f.columns
}

// NumRows returns the row count.
func (f *Frame) NumRows() int {
	return len(f.rows)
}

// HasColumn reports whether the frame carries the named column.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Row returns the cells of row i, oldest first.
func (f *Frame) Row(i int) []interface{} {
	return f.rows[i]
}

// Cell returns the raw cell at (row, column).
func (f *Frame) Cell(row int, column string) (interface{}, bool) {
	j, ok := f.index[column]
	if !ok || row < 0 || row >= len(f.rows) {
		return nil, false
	}
	return f.rows[row][j], true
}

// Column returns all cells of the named column, oldest first.
func (f *Frame) Column(name string) ([]interface{}, bool) {
	j, ok := f.index[name]
	if !ok {
		return nil, false
	}
	out := make([]interface{}, len(f.rows))
	for i, row := range f.rows {
		out[i] = row[j]
	}
	return out, true
}

// Tail returns a frame holding the last n rows (all rows when n exceeds
// the row count).
func (f *Frame) Tail(n int) *Frame {
	if n > len(f.rows) {
		n = len(f.rows)
	}
	out := NewFrame(f.columns)
	out.rows = f.rows[len(f.rows)-n:]
	return out
}
