package data

import "fmt"

// Frame is a raw CSV table: every cell is kept as text. Index holds the
// position of each row in the source file. Frames are never modified in
// place; every operation returns a new Frame that may share row slices.
type Frame struct {
	Columns []string
	Rows    [][]string
	Index   []int
}

func NewFrame(columns []string, rows [][]string) *Frame {
	index := make([]int, len(rows))
	for i := range index {
		index[i] = i
	}
	return &Frame{Columns: columns, Rows: rows, Index: index}
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

// ColumnIndex returns the position of name, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, col := range f.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

func (f *Frame) Column(name string) ([]string, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found: %w", name, ErrDataIntegrity)
	}
	values := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// Filter keeps the rows whose mask entry is true.
func (f *Frame) Filter(mask []bool) *Frame {
	out := &Frame{Columns: f.Columns}
	for i, keep := range mask {
		if keep {
			out.Rows = append(out.Rows, f.Rows[i])
			out.Index = append(out.Index, f.Index[i])
		}
	}
	return out
}

// Drop removes the named columns. Every name must exist.
func (f *Frame) Drop(names ...string) (*Frame, error) {
	drop := make(map[int]struct{}, len(names))
	for _, name := range names {
		idx := f.ColumnIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("cannot drop column %q: %w", name, ErrDataIntegrity)
		}
		drop[idx] = struct{}{}
	}
	return f.dropIndexes(drop), nil
}

// DropFunc removes every column for which match returns true.
func (f *Frame) DropFunc(match func(column string) bool) *Frame {
	drop := make(map[int]struct{})
	for i, col := range f.Columns {
		if match(col) {
			drop[i] = struct{}{}
		}
	}
	return f.dropIndexes(drop)
}

func (f *Frame) dropIndexes(drop map[int]struct{}) *Frame {
	if len(drop) == 0 {
		return f
	}
	keep := make([]int, 0, len(f.Columns)-len(drop))
	columns := make([]string, 0, len(f.Columns)-len(drop))
	for i, col := range f.Columns {
		if _, ok := drop[i]; ok {
			continue
		}
		keep = append(keep, i)
		columns = append(columns, col)
	}

	rows := make([][]string, len(f.Rows))
	for r, row := range f.Rows {
		out := make([]string, len(keep))
		for j, idx := range keep {
			out[j] = row[idx]
		}
		rows[r] = out
	}
	return &Frame{Columns: columns, Rows: rows, Index: f.Index}
}
