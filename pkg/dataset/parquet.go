package dataset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/soundprediction/textencode/pkg/frame"
	"github.com/soundprediction/textencode/pkg/session"
)

// ErrUnsupportedParquetColumn is returned for nested or non-numeric repeated columns.
var ErrUnsupportedParquetColumn = errors.New("unsupported parquet column")

const readBatchSize = 256

const vectorElementName = "element"

// parquetSchema maps frame columns to a parquet schema. Scalars are optional
// leaves. Vectors are optional groups holding a repeated FLOAT "element" leaf,
// so a null vector and an empty vector stay distinct.
func parquetSchema(fields []frame.Field) (*parquet.Schema, error) {
	group := parquet.Group{}
	for _, field := range fields {
		var node parquet.Node
		switch field.Kind {
		case frame.KindString:
			node = parquet.Optional(parquet.String())
		case frame.KindInt64:
			node = parquet.Optional(parquet.Int(64))
		case frame.KindFloat64:
			node = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		case frame.KindBool:
			node = parquet.Optional(parquet.Leaf(parquet.BooleanType))
		case frame.KindVector:
			node = parquet.Optional(parquet.Group{
				vectorElementName: parquet.Repeated(parquet.Leaf(parquet.FloatType)),
			})
		default:
			return nil, fmt.Errorf("%w: %s has kind %q", ErrUnsupportedParquetColumn, field.Name, field.Kind)
		}
		group[field.Name] = node
	}
	return parquet.NewSchema("dataset", group), nil
}

// WriteParquet writes ds to path, creating parent directories as needed.
func WriteParquet(path string, ds *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeParquet(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeParquet writes ds as a parquet file to w.
func EncodeParquet(w io.Writer, ds *Dataset) error {
	fr := ds.Frame()
	schema, err := parquetSchema(fr.Schema())
	if err != nil {
		return err
	}

	// Group fields are sorted by name, so leaf order differs from frame order.
	leafIndex := make(map[string]int)
	for i, path := range schema.Columns() {
		leafIndex[path[0]] = i
	}
	ordered := make([]frame.Column, len(leafIndex))
	for _, col := range fr.Columns() {
		ordered[leafIndex[col.Name]] = col
	}

	rows := make([]parquet.Row, fr.NumRows())
	for r := range rows {
		row := make(parquet.Row, 0, len(ordered))
		for c, col := range ordered {
			row = appendParquetValue(row, col, col.Values[r], c)
		}
		rows[r] = row
	}

	writer := parquet.NewWriter(w, schema)
	if _, err := writer.WriteRows(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func appendParquetValue(row parquet.Row, col frame.Column, v any, columnIndex int) parquet.Row {
	if col.Kind == frame.KindVector {
		vec, _ := v.([]float32)
		switch {
		case vec == nil:
			return append(row, parquet.Value{}.Level(0, 0, columnIndex))
		case len(vec) == 0:
			return append(row, parquet.Value{}.Level(0, 1, columnIndex))
		}
		for i, x := range vec {
			rep := 1
			if i == 0 {
				rep = 0
			}
			row = append(row, parquet.ValueOf(x).Level(rep, 2, columnIndex))
		}
		return row
	}
	if v == nil {
		return append(row, parquet.Value{}.Level(0, 0, columnIndex))
	}
	return append(row, parquet.ValueOf(v).Level(0, 1, columnIndex))
}

type parquetLeaf struct {
	name     string
	kind     frame.Kind
	repeated bool
	maxDef   int
}

func leafKind(t parquet.Type) (frame.Kind, bool) {
	switch t.Kind() {
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return frame.KindString, true
	case parquet.Int32, parquet.Int64:
		return frame.KindInt64, true
	case parquet.Float, parquet.Double:
		return frame.KindFloat64, true
	case parquet.Boolean:
		return frame.KindBool, true
	default:
		return "", false
	}
}

// ReadParquet reads a parquet file into a dataset bound to sess.
func ReadParquet(path string, sess *session.Session) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return DecodeParquet(f, info.Size(), sess)
}

// DecodeParquet reads parquet data from r. Top-level scalar columns and
// repeated numeric columns (read as vectors) are supported. A repeated
// column defined up to the level just above its elements reads as an empty
// vector; anything less defined reads as null.
func DecodeParquet(r io.ReaderAt, size int64, sess *session.Session) (*Dataset, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet data: %w", err)
	}

	schema := pf.Schema()
	paths := schema.Columns()
	leaves := make([]parquetLeaf, len(paths))
	for i, path := range paths {
		leaf, ok := schema.Lookup(path...)
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedParquetColumn, path)
		}
		kind, ok := leafKind(leaf.Node.Type())
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedParquetColumn, path)
		}
		repeated := leaf.MaxRepetitionLevel > 0
		if repeated && kind != frame.KindFloat64 && kind != frame.KindInt64 {
			return nil, fmt.Errorf("%w: repeated %s column %v", ErrUnsupportedParquetColumn, kind, path)
		}
		if repeated {
			kind = frame.KindVector
		} else if len(path) > 1 {
			return nil, fmt.Errorf("%w: nested column %v", ErrUnsupportedParquetColumn, path)
		}
		leaves[i] = parquetLeaf{name: path[0], kind: kind, repeated: repeated, maxDef: leaf.MaxDefinitionLevel}
	}

	values := make([][]any, len(leaves))
	buf := make([]parquet.Row, readBatchSize)
	for _, rg := range pf.RowGroups() {
		if err := readRowGroup(rg, buf, leaves, values); err != nil {
			return nil, err
		}
	}

	columns := make([]frame.Column, len(leaves))
	for i, leaf := range leaves {
		vals := values[i]
		if vals == nil {
			vals = []any{}
		}
		columns[i] = frame.Column{Name: leaf.name, Kind: leaf.kind, Values: vals}
	}
	return FromColumns(sess, columns...)
}

func readRowGroup(rg parquet.RowGroup, buf []parquet.Row, leaves []parquetLeaf, values [][]any) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			decodeParquetRow(row, leaves, values)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read parquet rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

func decodeParquetRow(row parquet.Row, leaves []parquetLeaf, values [][]any) {
	cells := make([]any, len(leaves))
	for _, v := range row {
		c := v.Column()
		if c < 0 || c >= len(leaves) {
			continue
		}
		leaf := leaves[c]
		if v.IsNull() {
			if leaf.repeated && v.DefinitionLevel() == leaf.maxDef-1 && cells[c] == nil {
				cells[c] = []float32{}
			}
			continue
		}
		if leaf.repeated {
			vec, _ := cells[c].([]float32)
			cells[c] = append(vec, vectorElement(v))
			continue
		}
		cells[c] = scalarValue(v, leaf.kind)
	}
	for i := range leaves {
		values[i] = append(values[i], cells[i])
	}
}

func vectorElement(v parquet.Value) float32 {
	switch v.Kind() {
	case parquet.Float:
		return v.Float()
	case parquet.Double:
		return float32(v.Double())
	case parquet.Int32:
		return float32(v.Int32())
	default:
		return float32(v.Int64())
	}
}

func scalarValue(v parquet.Value, kind frame.Kind) any {
	switch kind {
	case frame.KindString:
		return string(v.ByteArray())
	case frame.KindInt64:
		if v.Kind() == parquet.Int32 {
			return int64(v.Int32())
		}
		return v.Int64()
	case frame.KindFloat64:
		if v.Kind() == parquet.Float {
			return float64(v.Float())
		}
		return v.Double()
	case frame.KindBool:
		return v.Boolean()
	default:
		return nil
	}
}
