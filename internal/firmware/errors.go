package firmware

import "errors"

var (
	// ErrPersistence is returned when the update-pending flag could not be
	// stored durably. The restart is aborted.
	ErrPersistence = errors.New("firmware flag persistence failed")

	// ErrRestartRequested is the context cause set by ProcessRestarter.
	ErrRestartRequested = errors.New("restart requested for firmware update")
)
