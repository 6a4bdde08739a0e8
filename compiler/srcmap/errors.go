package srcmap

import "fmt"

// ValueError is returned by position queries given out-of-domain arguments.
type ValueError struct {
	Line   int
	Column int
}

func (e *ValueError) Error() string {
	if e.Line < 1 {
		return fmt.Sprintf("line numbers must be >= 1, got %d", e.Line)
	}
	return fmt.Sprintf("column numbers must be >= 0, got %d", e.Column)
}

// MergeError is returned by AddMap and Extend when the input is of no known
// shape.
type MergeError struct {
	Input Input
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("could not merge source maps, input of unknown kind %T", e.Input)
}

// DecodeError is returned when an encoded source map can't be decoded.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("failed to decode source map: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }
