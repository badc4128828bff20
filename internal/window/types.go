package window

import "fmt"

// State is the physical state of the window as reported by the sensor logic.
type State int

// Known window states. The integer values are the on-wire codes.
const (
	Closed  State = 0
	Opened  State = 1
	Opening State = 2
	Closing State = 3
	Error   State = 4
)

// stateKeys maps each state to its translation catalog key.
var stateKeys = map[State]string{
	Closed:  "closed",
	Opened:  "opened",
	Opening: "opening",
	Closing: "closing",
	Error:   "error",
}

// Code returns the integer code written to transition payloads.
func (s State) Code() int {
	return int(s)
}

// Short returns the short on-wire code, e.g. "S00" for Closed.
func (s State) Short() string {
	return fmt.Sprintf("S%02d", int(s))
}

// Key returns the translation catalog key for the state.
// Unknown states return an empty key, which never matches a catalog entry.
func (s State) Key() string {
	return stateKeys[s]
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	_, ok := stateKeys[s]
	return ok
}

// String implements fmt.Stringer.
func (s State) String() string {
	if key := s.Key(); key != "" {
		return key
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState converts an integer code to a State.
func ParseState(code int) (State, error) {
	s := State(code)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownState, code)
	}
	return s, nil
}

// StatusCode is the value of the "status" field in status events.
type StatusCode string

// StatusOnline is announced on every successful (re)connect.
const StatusOnline StatusCode = "S00"

// ErrorCode is the value of the "error" field in error events.
type ErrorCode string

// Error codes published on the error topic.
const (
	// ErrorSensorFault is reported by the sensor logic for an unreadable state.
	ErrorSensorFault ErrorCode = "E001"

	// ErrorEncoding is published with the fixed-layout fallback payload when
	// an event could not be encoded.
	ErrorEncoding ErrorCode = "E002"

	// ErrorFirmwareFlag is published when the update-pending flag could not
	// be persisted and the restart was aborted.
	ErrorFirmwareFlag ErrorCode = "E003"
)

// Position describes where the sensor is mounted.
// Window is a position code resolved through the translation catalog;
// Floor and Room are free text and published as-is.
type Position struct {
	Window string
	Floor  string
	Room   string
}

// Identity is the immutable per-device provisioning data.
type Identity struct {
	// WindowID is the unique node identifier. It doubles as the MQTT username.
	WindowID string

	// Language selects the catalog language for transition descriptions.
	Language string

	// TopicRoot is prepended to every topic suffix.
	TopicRoot string

	// Position is the mounting position published with transitions.
	Position Position
}
