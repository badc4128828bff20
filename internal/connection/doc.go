// Package connection owns the node's broker session and its reconnection loop.
//
// The Manager is the only holder of the live session. Publisher and the
// firmware trigger reach the broker exclusively through its methods.
//
// # Reconnection
//
// EnsureConnected loops until a session is established:
//
//	for !connected {
//	    connect()                  // fresh session, random client ID, LWT
//	    on failure: log, wait DelayPolicy.Next(attempt), retry
//	    on success: subscribe control topics, announce, service inbound
//	}
//
// There is no retry cap. The default policy is a fixed 5 second delay;
// ExponentialDelay can be substituted without touching the loop.
//
// # Ordering
//
// On every successful (re)connect the registered subscriptions are restored
// before the announce hook runs, so a retained control message is queued
// before the status announcement is published.
//
// # Concurrency
//
// The Manager is driven by a single goroutine. Handlers run on that goroutine
// inside Service; they may publish through the Manager. While a handler runs,
// EnsureConnected and Connect return ErrNotConnected instead of dialling, so
// a dropped link is only ever redialled by the outer loop.
package connection
