package connection

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by Publish when no live session exists, and by
// EnsureConnected or Connect when called from a handler on a dead link.
var ErrNotConnected = errors.New("connection: not connected")

// errReconnectInHandler is returned when a message handler asks for a
// reconnect while the link is down.
var errReconnectInHandler = fmt.Errorf("%w: reconnect refused inside message handler", ErrNotConnected)
