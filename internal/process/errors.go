package process

import "errors"

var (
	// ErrInvalidConfig is returned when the runner has no binary to start.
	ErrInvalidConfig = errors.New("invalid process config")

	// ErrTimedOut is returned when the command did not finish before Timeout.
	ErrTimedOut = errors.New("process timed out")

	// ErrExitStatus is returned when the command exited with a non-zero code.
	ErrExitStatus = errors.New("process exited with non-zero status")
)
