package data

import (
	"math"
	"strconv"
	"strings"
)

// FeatureTable is the numeric part of a task: one row per file.
type FeatureTable struct {
	Columns []string
	Rows    [][]float64
}

func (t *FeatureTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

func (t *FeatureTable) filter(mask []bool) *FeatureTable {
	out := &FeatureTable{Columns: t.Columns, Rows: make([][]float64, 0, len(t.Rows))}
	for i, keep := range mask {
		if keep {
			out.Rows = append(out.Rows, t.Rows[i])
		}
	}
	return out
}

func (t *FeatureTable) permute(order []int) *FeatureTable {
	out := &FeatureTable{Columns: t.Columns, Rows: make([][]float64, len(order))}
	for i, idx := range order {
		out.Rows[i] = t.Rows[idx]
	}
	return out
}

var missingValues = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

func parseCell(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if _, ok := missingValues[cell]; ok {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// numericTable keeps the columns whose every cell is a number or a missing
// value. Other columns are dropped.
func numericTable(f *Frame) *FeatureTable {
	numeric := make([]bool, len(f.Columns))
	for j := range f.Columns {
		numeric[j] = true
		for _, row := range f.Rows {
			if _, ok := parseCell(row[j]); !ok {
				numeric[j] = false
				break
			}
		}
	}

	table := &FeatureTable{Rows: make([][]float64, len(f.Rows))}
	for j, col := range f.Columns {
		if numeric[j] {
			table.Columns = append(table.Columns, col)
		}
	}
	for i, row := range f.Rows {
		values := make([]float64, 0, len(table.Columns))
		for j, cell := range row {
			if !numeric[j] {
				continue
			}
			v, _ := parseCell(cell)
			values = append(values, v)
		}
		table.Rows[i] = values
	}
	return table
}
