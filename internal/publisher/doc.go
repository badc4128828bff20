// Package publisher emits the node's status, state-update and error events.
//
// Every publish is retained and at-most-once: a failed publish is logged
// with its topic and returned, never queued or retried. When the node is
// offline the publisher first blocks in the connection manager's
// reconnect loop.
package publisher
