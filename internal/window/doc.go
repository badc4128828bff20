// Package window defines the identity and state vocabulary of a window sensor node.
//
// A node is provisioned with a DeviceIdentity (window ID, topic root,
// language and mounting position). The physical open/closed detection lives
// outside this module; it hands transitions to the publisher as
// (from, to) State pairs. Nothing in this package mutates state at runtime.
//
// # Wire Codes
//
// Each State has an integer code (used in transition payloads), a short code
// ("S00".."S04") and a catalog key used for localized descriptions:
//
//	window.Opened.Code()   // 1
//	window.Opened.Short()  // "S01"
//	window.Opened.Key()    // "opened"
package window
