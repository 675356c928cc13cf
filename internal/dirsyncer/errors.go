package dirsyncer

import (
	"errors"
	"fmt"
)

var (
	//ErrIO marks per-entry filesystem failures. They are recorded, never fatal for a tick.
	ErrIO = errors.New("i/o failure")
	//ErrComparison marks files whose contents could not be compared. Such files get copied.
	ErrComparison = errors.New("cannot compare contents")
	//ErrSchedulerStopped is returned when a stopped scheduler is asked to run again.
	ErrSchedulerStopped = errors.New("scheduler is stopped")
	//ErrSchedulerStarted is returned by Start on a scheduler whose loop is already running.
	ErrSchedulerStarted = errors.New("scheduler is already started")
)

//ConfigurationError reports a root directory that cannot be synchronized at all.
//At startup it is fatal; during the scheduled run it makes the tick skip.
type ConfigurationError struct {
	Root string // "source" or "replica"
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s root %q is unusable: %v", e.Root, e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func IsConfigurationError(err error) bool {
	var cErr *ConfigurationError
	return errors.As(err, &cErr)
}

func ioError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
