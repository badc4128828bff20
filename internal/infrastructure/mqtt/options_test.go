package mqtt

import (
	"testing"

	"github.com/nerrad567/windowsensor/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:           "127.0.0.1",
			Port:           1883,
			ClientIDPrefix: "windowsensor-test-",
		},
		Auth: config.MQTTAuthConfig{
			Password: "shared-secret",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			DelaySeconds: 1,
			PollWindowMS: 50,
		},
	}
}

func TestBuildClientOptions(t *testing.T) {
	opts := buildClientOptions(testConfig(), "window-0", "windowsensor-test-1a2b")

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != "windowsensor-test-1a2b" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "windowsensor-test-1a2b")
	}
	if opts.Username != "window-0" {
		t.Errorf("Username = %q, want window ID", opts.Username)
	}
	if opts.Password != "shared-secret" {
		t.Error("Password not set from config")
	}
	if opts.AutoReconnect {
		t.Error("AutoReconnect = true, reconnection must be left to the caller")
	}
	if opts.ConnectRetry {
		t.Error("ConnectRetry = true, each Dial must be a single attempt")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig(), "window-0", "id")
	configureLWT(opts, "/windowSensor/status", "window-0")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false")
	}
	if opts.WillTopic != "/windowSensor/status" {
		t.Errorf("WillTopic = %q, want status topic", opts.WillTopic)
	}
	if string(opts.WillPayload) != "window-0: Connection lost!" {
		t.Errorf("WillPayload = %q, want %q", opts.WillPayload, "window-0: Connection lost!")
	}
	if opts.WillQos != 2 {
		t.Errorf("WillQos = %d, want 2", opts.WillQos)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}
}
