package errors

import "fmt"

// ParseError wraps a specific error with context about where it occurred.
type ParseError struct {
	Line   int
	Record []string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d: %v (record: %v)", e.Line, e.Err, e.Record)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError reports an input that violates the engine's contract.
// Index is the position of the offending element, or -1 when not applicable.
type ValidationError struct {
	Field string
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s[%d]: %v", e.Field, e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NotReadyError is returned by inference calls made before a demand model
// has been published.
type NotReadyError struct {
	Operation string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: demand model not ready", e.Operation)
}

// Define specific error types for better error handling
var (
	ErrInvalidFieldCount = fmt.Errorf("invalid field count")
	ErrInvalidTimestamp  = fmt.Errorf("invalid timestamp")
	ErrInvalidCount      = fmt.Errorf("invalid count")
	ErrEmptyRecord       = fmt.Errorf("empty record")

	ErrNegativeStaff  = fmt.Errorf("negative staff count")
	ErrUnknownRole    = fmt.Errorf("unknown role")
	ErrShiftBounds    = fmt.Errorf("shift ends before it starts")
	ErrNonMonotonic   = fmt.Errorf("timestamps not strictly increasing")
	ErrLengthMismatch = fmt.Errorf("sequence lengths differ")
	ErrMisaligned     = fmt.Errorf("timestamps not aligned")
	ErrOutOfRange     = fmt.Errorf("value out of range")
	ErrUnknownStore   = fmt.Errorf("unknown store driver")
)
