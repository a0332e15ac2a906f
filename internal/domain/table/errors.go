package table

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMissingField    = errors.New("missing field")
	ErrValueConversion = errors.New("value conversion failed")
	ErrInvalidTable    = errors.New("invalid table")
)

// MissingFieldError reports a field name that is not part of a table's columns.
type MissingFieldError struct {
	Field   string
	Columns []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %q not found in columns %q", e.Field, e.Columns)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// ConversionError reports a cell that should be numeric but is not.
// Row is the row index within the table that was being coerced.
type ConversionError struct {
	Field string
	Row   int
	Value Value
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("field %q row %d: cannot convert %q to a number", e.Field, e.Row, Text(e.Value))
}

func (e *ConversionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValueConversion}
	}
	return []error{ErrValueConversion, e.Err}
}
