package dto

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors
var (
	ErrEmptyRows      = errors.New("rows cannot be empty")
	ErrEmptyInputCol  = errors.New("input_col cannot be empty")
	ErrEmptyOutputCol = errors.New("output_col cannot be empty")
	ErrEmptyModelID   = errors.New("model_id cannot be empty")
	ErrSameColumns    = errors.New("input_col and output_col must differ")
)

// MaxColumnNameLength bounds column names to prevent abuse
const MaxColumnNameLength = 256

// EncodeRequest is the body of POST /api/v1/encode. Rows are JSON objects;
// numbers are decoded as json.Number.
type EncodeRequest struct {
	Rows      []map[string]any `json:"rows"`
	InputCol  string           `json:"input_col"`
	OutputCol string           `json:"output_col"`
	ModelID   string           `json:"model_id"`
	BatchSize *int             `json:"batch_size,omitempty"`
}

// Validate checks required fields. maxRows <= 0 disables the row limit.
func (r *EncodeRequest) Validate(maxRows int) error {
	if len(r.Rows) == 0 {
		return ErrEmptyRows
	}
	if maxRows > 0 && len(r.Rows) > maxRows {
		return fmt.Errorf("rows count %d exceeds maximum (%d)", len(r.Rows), maxRows)
	}
	if strings.TrimSpace(r.InputCol) == "" {
		return ErrEmptyInputCol
	}
	if strings.TrimSpace(r.OutputCol) == "" {
		return ErrEmptyOutputCol
	}
	if len(r.InputCol) > MaxColumnNameLength || len(r.OutputCol) > MaxColumnNameLength {
		return fmt.Errorf("column name exceeds maximum length (%d)", MaxColumnNameLength)
	}
	if r.InputCol == r.OutputCol {
		return ErrSameColumns
	}
	if strings.TrimSpace(r.ModelID) == "" {
		return ErrEmptyModelID
	}
	return nil
}

// Field describes one column of a response.
type Field struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// EncodeResponse carries the encoded rows.
type EncodeResponse struct {
	SessionID  string           `json:"session_id"`
	NumRows    int              `json:"num_rows"`
	Schema     []Field          `json:"schema"`
	Rows       []map[string]any `json:"rows"`
	DurationMS int64            `json:"duration_ms"`
}
