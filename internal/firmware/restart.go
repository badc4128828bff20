package firmware

import (
	"context"
	"errors"
)

// Restarter restarts the node. Restart may return; the trigger treats the
// call as terminal either way.
type Restarter interface {
	Restart()
}

// ProcessRestarter ends the running process by cancelling its root context
// with ErrRestartRequested. main checks RestartRequested and exits with a
// restart status.
type ProcessRestarter struct {
	cancel context.CancelCauseFunc
}

// NewProcessRestarter wraps the cancel function of the application context.
func NewProcessRestarter(cancel context.CancelCauseFunc) *ProcessRestarter {
	return &ProcessRestarter{cancel: cancel}
}

// Restart cancels the application context.
func (r *ProcessRestarter) Restart() {
	r.cancel(ErrRestartRequested)
}

// RestartRequested reports whether ctx ended because of a restart request.
func RestartRequested(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), ErrRestartRequested)
}
