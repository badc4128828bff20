package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/windowsensor/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for a connect attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish/subscribe acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 15 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// willQoS is the QoS of the Last Will message.
	willQoS = 2
)

// buildClientOptions creates paho options for a single connect attempt.
//
// Library auto-reconnect and connect-retry are disabled: the connection
// package decides when to dial again.
func buildClientOptions(cfg config.MQTTConfig, username, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(clientID)

	opts.SetUsername(username)
	if cfg.Auth.Password != "" {
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetOrderMatters(true)

	return opts
}

// configureLWT registers the Last Will published by the broker when it
// detects an unclean disconnect.
//
// Topic: <root>/status
// QoS: 2
// Retained: true
func configureLWT(opts *pahomqtt.ClientOptions, willTopic, windowID string) {
	opts.SetWill(willTopic, ConnectionLostPayload(windowID), willQoS, true)
}

// ConnectionLostPayload returns the Last Will payload for a window ID.
func ConnectionLostPayload(windowID string) string {
	return windowID + ": Connection lost!"
}
