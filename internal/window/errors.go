package window

import "errors"

// ErrUnknownState is returned when an integer code does not map to a State.
var ErrUnknownState = errors.New("window: unknown state code")
