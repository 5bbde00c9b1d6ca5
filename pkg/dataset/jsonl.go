package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
	"github.com/soundprediction/textencode/pkg/frame"
	"github.com/soundprediction/textencode/pkg/session"
)

// ErrMixedColumnTypes is returned when a JSON Lines column holds values of
// incompatible types across rows.
var ErrMixedColumnTypes = errors.New("mixed value types in column")

const maxLineSize = 16 * 1024 * 1024

// JSONLOptions controls JSON Lines decoding.
type JSONLOptions struct {
	// Lenient repairs malformed lines instead of failing on them.
	Lenient bool
}

// ReadJSONL reads a JSON Lines file into a dataset bound to sess.
func ReadJSONL(path string, sess *session.Session, opts JSONLOptions) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return DecodeJSONL(f, sess, opts)
}

// DecodeJSONL reads one JSON object per line. Columns appear in order of
// first occurrence, missing keys become nulls. Numbers become int64 columns
// when every value is integral, float64 otherwise. Arrays of numbers become
// vector columns.
func DecodeJSONL(r io.Reader, sess *session.Session, opts JSONLOptions) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var (
		records []map[string]any
		lineNo  int
	)
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		record, err := decodeLine(line, opts.Lenient)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read JSON lines: %w", err)
	}

	return FromRecords(sess, records)
}

// FromRecords builds a dataset from decoded JSON objects using the same
// column rules as DecodeJSONL. Numbers must be json.Number values, as
// produced by a json.Decoder with UseNumber.
func FromRecords(sess *session.Session, records []map[string]any) (*Dataset, error) {
	names := columnOrder(records)

	columns := make([]frame.Column, 0, len(names))
	for _, name := range names {
		col, err := buildColumn(name, records)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return FromColumns(sess, columns...)
}

func decodeLine(line []byte, lenient bool) (map[string]any, error) {
	record, err := unmarshalRecord(line)
	if err == nil || !lenient {
		return record, err
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(line))
	if repairErr != nil {
		return nil, fmt.Errorf("failed to repair JSON: %w", err)
	}
	return unmarshalRecord([]byte(repaired))
}

func unmarshalRecord(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("invalid JSON object: got %s", bytes.TrimSpace(data))
	}
	return record, nil
}

// columnOrder orders keys by the line that first contains them. Keys first
// seen on the same line are sorted by name.
func columnOrder(records []map[string]any) []string {
	firstLine := make(map[string]int)
	for i, rec := range records {
		for key := range rec {
			if _, ok := firstLine[key]; !ok {
				firstLine[key] = i
			}
		}
	}
	ordered := make([]string, 0, len(firstLine))
	for i, rec := range records {
		var keys []string
		for key := range rec {
			if firstLine[key] == i {
				keys = append(keys, key)
			}
		}
		slices.Sort(keys)
		ordered = append(ordered, keys...)
	}
	return ordered
}

func buildColumn(name string, records []map[string]any) (frame.Column, error) {
	kind := frame.Kind("")
	for _, rec := range records {
		k, ok := jsonKind(rec[name])
		if !ok {
			continue
		}
		switch {
		case kind == "":
			kind = k
		case kind == frame.KindInt64 && k == frame.KindFloat64:
			kind = frame.KindFloat64
		case kind == frame.KindFloat64 && k == frame.KindInt64:
		case kind != k:
			return frame.Column{}, fmt.Errorf("%w: %q has %s and %s", ErrMixedColumnTypes, name, kind, k)
		}
	}
	if kind == "" {
		kind = frame.KindString
	}

	values := make([]any, len(records))
	for i, rec := range records {
		v, err := convertJSON(rec[name], kind)
		if err != nil {
			return frame.Column{}, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		values[i] = v
	}
	return frame.Column{Name: name, Kind: kind, Values: values}, nil
}

func jsonKind(v any) (frame.Kind, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return frame.KindString, true
	case bool:
		return frame.KindBool, true
	case json.Number:
		if _, err := t.Int64(); err == nil {
			return frame.KindInt64, true
		}
		return frame.KindFloat64, true
	case []any:
		return frame.KindVector, true
	default:
		return frame.Kind(fmt.Sprintf("%T", v)), true
	}
}

func convertJSON(v any, kind frame.Kind) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case frame.KindString:
		return v.(string), nil
	case frame.KindBool:
		return v.(bool), nil
	case frame.KindInt64:
		return v.(json.Number).Int64()
	case frame.KindFloat64:
		return v.(json.Number).Float64()
	case frame.KindVector:
		items := v.([]any)
		vec := make([]float32, len(items))
		for i, item := range items {
			num, ok := item.(json.Number)
			if !ok {
				return nil, fmt.Errorf("vector element %d is %T", i, item)
			}
			f, err := strconv.ParseFloat(num.String(), 32)
			if err != nil {
				return nil, err
			}
			vec[i] = float32(f)
		}
		return vec, nil
	default:
		return nil, fmt.Errorf("unsupported JSON value %T", v)
	}
}

// WriteJSONL writes ds to path as JSON Lines.
func WriteJSONL(path string, ds *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeJSONL(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// EncodeJSONL writes one JSON object per row to w.
func EncodeJSONL(w io.Writer, ds *Dataset) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	fr := ds.Frame()
	for i := 0; i < fr.NumRows(); i++ {
		row, err := fr.Row(i)
		if err != nil {
			return err
		}
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i, err)
		}
	}
	return bw.Flush()
}
