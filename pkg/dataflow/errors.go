package dataflow

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned when an analysis asks for a solver configuration
// this package does not implement.
var ErrUnsupported = errors.New("unsupported analysis configuration")

// ErrBackwardUnsupported is returned when solving a backward analysis.
var ErrBackwardUnsupported = fmt.Errorf("%w: backward solving is not implemented", ErrUnsupported)

// InvariantError reports a violated internal contract, e.g. an operator the
// evaluator does not know or a lattice value outside the defined kinds. It
// indicates malformed input from the IR producer and is never recoverable.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "dataflow invariant violated: " + e.Msg
}

// Invariant aborts the running analysis with an *InvariantError. Solve turns
// the panic back into an error.
func Invariant(format string, args ...interface{}) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}

// recoverInvariant converts an *InvariantError panic into *err and re-panics
// on anything else.
func recoverInvariant(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*InvariantError); ok {
		*err = ie
		return
	}
	panic(r)
}

// Guard runs fn and returns any invariant violation it raised as an error.
func Guard(fn func()) (err error) {
	defer recoverInvariant(&err)
	fn()
	return nil
}
