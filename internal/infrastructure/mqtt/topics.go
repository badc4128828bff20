package mqtt

import "strings"

// Topic suffixes appended to the configured root.
const (
	SuffixStatus         = "status"
	SuffixStateUpdate    = "stateupdate"
	SuffixFirmwareUpdate = "firmwareupdate"
	SuffixError          = "error"
)

// Topics builds fully-qualified topics from a configured root.
// Topics are built fresh on every call and never cached.
//
//	topics := mqtt.Topics{Root: "/windowSensor/"}
//	topics.Status() // "/windowSensor/status"
type Topics struct {
	Root string
}

// Build joins the root and suffix with exactly one separator.
// An empty root yields the suffix unchanged.
func (t Topics) Build(suffix string) string {
	if t.Root == "" {
		return suffix
	}
	return strings.TrimRight(t.Root, "/") + "/" + strings.TrimLeft(suffix, "/")
}

// Status returns the status topic, also used as the Last Will topic.
//
// Example: /windowSensor/status
func (t Topics) Status() string {
	return t.Build(SuffixStatus)
}

// StateUpdate returns the topic for state transition events.
//
// Example: /windowSensor/stateupdate
func (t Topics) StateUpdate() string {
	return t.Build(SuffixStateUpdate)
}

// FirmwareUpdate returns the control topic that triggers update mode.
//
// Example: /windowSensor/firmwareupdate
func (t Topics) FirmwareUpdate() string {
	return t.Build(SuffixFirmwareUpdate)
}

// Error returns the topic for error events.
//
// Example: /windowSensor/error
func (t Topics) Error() string {
	return t.Build(SuffixError)
}
