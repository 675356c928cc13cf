package run

import (
	"errors"
	"fmt"
)

//ErrPanic marks errors that were produced from a recovered panic.
var ErrPanic = errors.New("panic")

//WithError runs fn and turns a panic inside it into an error wrapping ErrPanic.
func WithError(fn func() error) (err error) {
	defer recoverInto(&err)
	return fn()
}

//AsyncWithError runs fn in its own goroutine. The channel receives exactly one value and is never closed.
func AsyncWithError(fn func() error) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- WithError(fn)
	}()
	return errCh
}

func recoverInto(err *error) {
	p := recover()
	if p == nil {
		return
	}
	if perr, ok := p.(error); ok {
		*err = fmt.Errorf("%w: %w", ErrPanic, perr)
	} else {
		*err = fmt.Errorf("%w: %v", ErrPanic, p)
	}
}
