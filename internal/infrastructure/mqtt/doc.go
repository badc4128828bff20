// Package mqtt provides the broker session used by the window sensor node.
//
// This package manages:
//   - A single broker session per connect attempt (no library auto-reconnect)
//   - Last Will and Testament (LWT) announcing "<windowID>: Connection lost!"
//   - Retained publishing with QoS validation
//   - Subscriptions feeding a bounded inbound queue
//   - Topic construction from the configured root
//
// # Architecture
//
// Reconnection is owned by the connection package, not by paho. Each attempt
// dials a fresh Session; a Session that lost its link is closed and replaced,
// never revived. Inbound messages are queued by the paho callback goroutine
// and drained by the caller's single loop, so handlers never run concurrently
// with publishes.
//
//	connection.Manager → Dialer.Dial → Session ↔ Broker
//
// # Security Considerations
//
//   - The username is always the window ID; the password is a shared secret
//   - Transport is plain TCP on port 1883 (TLS is out of scope for the node)
//
// # Usage
//
//	dialer := mqtt.NewDialer(cfg.MQTT, identity.WindowID, topics)
//	session, err := dialer.Dial(ctx, "windowsensor-1a2b3c4d")
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
//
//	err = session.Subscribe(topics.FirmwareUpdate(), 1)
//	err = session.Publish(topics.Status(), payload, 1, true)
package mqtt
