package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// offlineSession returns a session whose paho client was never connected.
func offlineSession() *Session {
	opts := buildClientOptions(testConfig(), "window-0", "offline")
	return &Session{
		client:  pahomqtt.NewClient(opts),
		inbound: make(chan Message, inboundQueueSize),
	}
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestSession_PublishValidation(t *testing.T) {
	s := offlineSession()

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{name: "empty topic", topic: "", qos: 1, want: ErrInvalidTopic},
		{name: "invalid qos", topic: "t", qos: 3, want: ErrInvalidQoS},
		{name: "oversized payload", topic: "t", payload: make([]byte, maxPayloadSize+1), qos: 1, want: ErrPublishFailed},
		{name: "not connected", topic: "t", payload: []byte("{}"), qos: 1, want: ErrNotConnected},
		{name: "empty payload reaches connection check", topic: "t", qos: 1, want: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Publish(tt.topic, tt.payload, tt.qos, true)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSession_SubscribeValidation(t *testing.T) {
	s := offlineSession()

	if err := s.Subscribe("", 1); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := s.Subscribe("t", 5); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos=5) error = %v, want ErrInvalidQoS", err)
	}
	if err := s.Subscribe("t", 1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestSession_EnqueueDropsWhenFull(t *testing.T) {
	logger := &recordingLogger{}
	s := offlineSession()
	s.logger = logger

	for i := 0; i < inboundQueueSize+3; i++ {
		s.enqueue(Message{Topic: fmt.Sprintf("t/%d", i)})
	}

	if got := s.Dropped(); got != 3 {
		t.Errorf("Dropped() = %d, want 3", got)
	}
	if len(logger.warns) != 3 {
		t.Errorf("logged %d warnings, want 3", len(logger.warns))
	}

	first := <-s.Messages()
	if first.Topic != "t/0" {
		t.Errorf("first queued topic = %q, want t/0", first.Topic)
	}
}

func TestSession_MarkLost(t *testing.T) {
	s := offlineSession()
	s.connected = true

	cause := errors.New("link down")
	s.markLost(cause)

	if s.IsConnected() {
		t.Error("IsConnected() = true after markLost")
	}
	if !errors.Is(s.LastError(), cause) {
		t.Errorf("LastError() = %v, want %v", s.LastError(), cause)
	}
}

func TestSession_CloseNil(t *testing.T) {
	s := &Session{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on empty session error = %v, want nil", err)
	}
}

func TestDialer_DialRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1 // Nothing listens here

	d := NewDialer(cfg, "window-0", Topics{Root: "/windowSensor/"})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err := d.Dial(ctx, "windowsensor-test-refused")
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Dial() error = %v, want ErrConnectionFailed", err)
	}
}

func TestWaitToken_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pending := &neverToken{done: make(chan struct{})}
	err := waitToken(ctx, pending, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("waitToken() error = %v, want context.Canceled", err)
	}
}

func TestWaitToken_Timeout(t *testing.T) {
	pending := &neverToken{done: make(chan struct{})}
	err := waitToken(context.Background(), pending, 10*time.Millisecond)
	if !errors.Is(err, errTimeout) {
		t.Errorf("waitToken() error = %v, want errTimeout", err)
	}
}

func TestAwaitConnect_AbortsPendingAttempt(t *testing.T) {
	tests := []struct {
		name    string
		ctx     func() context.Context
		timeout time.Duration
		want    error
	}{
		{
			name:    "timeout",
			ctx:     context.Background,
			timeout: 10 * time.Millisecond,
			want:    errTimeout,
		},
		{
			name: "context cancelled",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			timeout: time.Minute,
			want:    context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &disconnectRecorder{}
			err := awaitConnect(tt.ctx(), client, &neverToken{done: make(chan struct{})}, tt.timeout)
			if !errors.Is(err, tt.want) {
				t.Errorf("awaitConnect() error = %v, want %v", err, tt.want)
			}
			if client.disconnects != 1 {
				t.Errorf("Disconnect calls = %d, want 1", client.disconnects)
			}
		})
	}
}

func TestAwaitConnect_CompletedLeavesClient(t *testing.T) {
	client := &disconnectRecorder{}
	done := make(chan struct{})
	close(done)

	if err := awaitConnect(context.Background(), client, &neverToken{done: done}, time.Minute); err != nil {
		t.Errorf("awaitConnect() error = %v", err)
	}
	if client.disconnects != 0 {
		t.Errorf("Disconnect calls = %d, want 0", client.disconnects)
	}
}

// disconnectRecorder counts Disconnect calls; other Client methods are unused.
type disconnectRecorder struct {
	pahomqtt.Client
	disconnects int
}

func (c *disconnectRecorder) Disconnect(uint) { c.disconnects++ }

// neverToken is a pahomqtt.Token that never completes.
type neverToken struct {
	done chan struct{}
}

func (t *neverToken) Wait() bool                     { <-t.done; return true }
func (t *neverToken) WaitTimeout(time.Duration) bool { return false }
func (t *neverToken) Done() <-chan struct{}          { return t.done }
func (t *neverToken) Error() error                   { return nil }
