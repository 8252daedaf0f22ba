package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnsupported is returned for operations or formats the engine lacks.
var ErrUnsupported = errors.New("not supported by the image engine")

// Error is a failure raised by the engine.
type Error struct {
	Op  string
	Err error

	// Decode is set when pixel data could not be decoded.
	Decode bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as an engine failure of op.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// NewDecodeError wraps a pixel decoding failure.
func NewDecodeError(op string, err error) *Error {
	return &Error{Op: op, Decode: true, Err: err}
}

// CheckContext returns an engine error when ctx is done.
func CheckContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return NewError(op, err)
	}
	return nil
}

// IsDecodeError reports whether err is a pixel decoding failure.
func IsDecodeError(err error) bool {
	var engineErr *Error
	return errors.As(err, &engineErr) && engineErr.Decode
}
