package frame

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound indicates the requested column does not exist in the frame.
	ErrColumnNotFound = errors.New("column not found")

	// ErrColumnLength indicates a column does not have the same number of rows as the frame.
	ErrColumnLength = errors.New("column length mismatch")

	// ErrColumnType indicates a column does not have the expected kind.
	ErrColumnType = errors.New("unexpected column type")

	// ErrDuplicateColumn indicates two columns share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
)

// ColumnError carries the column name alongside one of the sentinel errors.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error {
	return e.Err
}

func columnError(name string, err error) error {
	return &ColumnError{Column: name, Err: err}
}
