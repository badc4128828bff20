package event

import "github.com/nerrad567/windowsensor/internal/window"

// Transition is one state change as handed over by the sensor logic.
// It is immutable once built and encoded exactly once.
type Transition struct {
	Timestamp int64
	WindowID  string
	From      window.State
	To        window.State
}

type statusPayload struct {
	Timestamp int64  `json:"timestamp"`
	WindowID  string `json:"windowID"`
	Status    string `json:"status"`
}

type errorPayload struct {
	Timestamp int64  `json:"timestamp"`
	WindowID  string `json:"windowID"`
	Error     string `json:"error"`
}

type transitionPayload struct {
	Timestamp   int64                       `json:"timestamp"`
	WindowID    string                      `json:"windowID"`
	FromState   int                         `json:"fromState"`
	ToState     int                         `json:"toState"`
	Description map[string]descriptionEntry `json:"description,omitempty"`
}

type descriptionEntry struct {
	Properties *propertiesText `json:"properties,omitempty"`
	Position   *positionText   `json:"position,omitempty"`
}

type propertiesText struct {
	FromState string `json:"fromState"`
	ToState   string `json:"toState"`
}

type positionText struct {
	Window string `json:"window"`
	Floor  string `json:"floor"`
	Room   string `json:"room"`
}
