package frame

import "fmt"

// Frame is an immutable, column-oriented table.
type Frame struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New builds a frame from the given columns. All columns must have the same
// length and distinct names.
func New(columns ...Column) (*Frame, error) {
	f := &Frame{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if err := col.validate(); err != nil {
			return nil, err
		}
		if _, exists := f.index[col.Name]; exists {
			return nil, columnError(col.Name, ErrDuplicateColumn)
		}
		if i == 0 {
			f.rows = col.Len()
		} else if col.Len() != f.rows {
			return nil, columnError(col.Name, fmt.Errorf("%w: has %d rows, frame has %d", ErrColumnLength, col.Len(), f.rows))
		}
		f.index[col.Name] = len(f.columns)
		f.columns = append(f.columns, col)
	}
	return f, nil
}

// Empty returns a frame with no columns and no rows.
func Empty() *Frame {
	return &Frame{index: map[string]int{}}
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	return f.rows
}

// NumColumns returns the number of columns.
func (f *Frame) NumColumns() int {
	return len(f.columns)
}

// Schema returns the ordered list of fields.
func (f *Frame) Schema() []Field {
	fields := make([]Field, len(f.columns))
	for i, col := range f.columns {
		fields[i] = col.Field()
	}
	return fields
}

// Columns returns the frame's columns in order. The returned slice is a copy,
// the value slices are shared and must not be modified.
func (f *Frame) Columns() []Column {
	out := make([]Column, len(f.columns))
	copy(out, f.columns)
	return out
}

// HasColumn reports whether the frame has a column with the given name.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column.
func (f *Frame) Column(name string) (Column, error) {
	i, ok := f.index[name]
	if !ok {
		return Column{}, columnError(name, ErrColumnNotFound)
	}
	return f.columns[i], nil
}

// Strings returns the values of a string column. Nulls become empty strings.
func (f *Frame) Strings(name string) ([]string, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != KindString {
		return nil, columnError(name, fmt.Errorf("%w: is %s, want %s", ErrColumnType, col.Kind, KindString))
	}
	out := make([]string, len(col.Values))
	for i, v := range col.Values {
		if s, ok := v.(string); ok {
			out[i] = s
		}
	}
	return out, nil
}

// Vectors returns the values of a vector column. Nulls stay nil.
func (f *Frame) Vectors(name string) ([][]float32, error) {
	col, err := f.Column(name)
	if err != nil {
		return nil, err
	}
	if col.Kind != KindVector {
		return nil, columnError(name, fmt.Errorf("%w: is %s, want %s", ErrColumnType, col.Kind, KindVector))
	}
	out := make([][]float32, len(col.Values))
	for i, v := range col.Values {
		if vec, ok := v.([]float32); ok {
			out[i] = vec
		}
	}
	return out, nil
}

// WithColumn returns a new frame with col appended. A column with the same
// name is replaced in place so the column order is preserved.
func (f *Frame) WithColumn(col Column) (*Frame, error) {
	if err := col.validate(); err != nil {
		return nil, err
	}
	if len(f.columns) > 0 && col.Len() != f.rows {
		return nil, columnError(col.Name, fmt.Errorf("%w: has %d rows, frame has %d", ErrColumnLength, col.Len(), f.rows))
	}

	columns := f.Columns()
	if i, ok := f.index[col.Name]; ok {
		columns[i] = col
	} else {
		columns = append(columns, col)
	}
	return New(columns...)
}

// Slice returns rows [start, end) as a new frame.
func (f *Frame) Slice(start, end int) (*Frame, error) {
	if start < 0 || end > f.rows || start > end {
		return nil, fmt.Errorf("slice [%d:%d] out of range for %d rows", start, end, f.rows)
	}
	columns := make([]Column, len(f.columns))
	for i, col := range f.columns {
		columns[i] = Column{Name: col.Name, Kind: col.Kind, Values: col.Values[start:end:end]}
	}
	return New(columns...)
}

// Row returns row i as a map keyed by column name.
func (f *Frame) Row(i int) (map[string]any, error) {
	if i < 0 || i >= f.rows {
		return nil, fmt.Errorf("row %d out of range for %d rows", i, f.rows)
	}
	row := make(map[string]any, len(f.columns))
	for _, col := range f.columns {
		row[col.Name] = col.Values[i]
	}
	return row, nil
}
