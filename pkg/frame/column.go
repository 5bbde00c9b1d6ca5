package frame

import "fmt"

// Kind identifies the value type stored in a column.
type Kind string

const (
	KindString  Kind = "string"
	KindInt64   Kind = "int64"
	KindFloat64 Kind = "float64"
	KindBool    Kind = "bool"
	KindVector  Kind = "vector"
)

// Field describes one column of a frame schema.
type Field struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Column is a named, typed sequence of values. Values holds one entry per
// row; a nil entry is a null. Non-nil entries must match Kind:
// string, int64, float64, bool or []float32.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// StringColumn builds a KindString column.
func StringColumn(name string, values ...string) Column {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return Column{Name: name, Kind: KindString, Values: out}
}

// Int64Column builds a KindInt64 column.
func Int64Column(name string, values ...int64) Column {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return Column{Name: name, Kind: KindInt64, Values: out}
}

// Float64Column builds a KindFloat64 column.
func Float64Column(name string, values ...float64) Column {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return Column{Name: name, Kind: KindFloat64, Values: out}
}

// BoolColumn builds a KindBool column.
func BoolColumn(name string, values ...bool) Column {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return Column{Name: name, Kind: KindBool, Values: out}
}

// VectorColumn builds a KindVector column.
func VectorColumn(name string, values ...[]float32) Column {
	out := make([]any, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = v
		}
	}
	return Column{Name: name, Kind: KindVector, Values: out}
}

// Len returns the number of rows in the column.
func (c Column) Len() int {
	return len(c.Values)
}

// Field returns the schema entry for the column.
func (c Column) Field() Field {
	return Field{Name: c.Name, Kind: c.Kind}
}

func (c Column) validate() error {
	if c.Name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	for i, v := range c.Values {
		if v == nil {
			continue
		}
		if !kindMatches(c.Kind, v) {
			return columnError(c.Name, fmt.Errorf("%w: row %d holds %T, want %s", ErrColumnType, i, v, c.Kind))
		}
	}
	return nil
}

func kindMatches(kind Kind, v any) bool {
	switch kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInt64:
		_, ok := v.(int64)
		return ok
	case KindFloat64:
		_, ok := v.(float64)
		return ok
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindVector:
		_, ok := v.([]float32)
		return ok
	default:
		return false
	}
}
