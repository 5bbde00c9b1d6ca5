package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParam indicates a stage parameter is missing or out of range.
	ErrInvalidParam = errors.New("invalid stage parameter")

	// ErrOutputColumnExists indicates the output column is already present in the input frame.
	ErrOutputColumnExists = errors.New("output column already exists")
)

// ParamError describes which stage parameter was rejected.
type ParamError struct {
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%v: %s %s", ErrInvalidParam, e.Param, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParam
}

// BatchError reports the batch that failed and the rows it covered.
type BatchError struct {
	Batch int
	Start int
	End   int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (rows %d-%d): %v", e.Batch, e.Start, e.End-1, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
