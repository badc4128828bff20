package event

import "errors"

// ErrEncoding is returned when an event cannot be serialized within the
// payload limit.
var ErrEncoding = errors.New("event: encoding failed")
