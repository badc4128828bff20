package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/windowsensor/internal/infrastructure/config"
)

// inboundQueueSize bounds messages buffered between paho and the caller's loop.
const inboundQueueSize = 16

// Message is an inbound message received on a subscribed topic.
type Message struct {
	Topic   string
	Payload []byte
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

// Session is one broker session. It is created by Dialer.Dial and is not
// reused after the link drops; callers dial a new one instead.
//
// Thread Safety:
//   - All methods are safe for concurrent use; paho delivers inbound
//     messages and connection-lost events on its own goroutines.
type Session struct {
	client   pahomqtt.Client
	clientID string
	inbound  chan Message
	logger   Logger

	dropped atomic.Uint64

	mu        sync.RWMutex
	connected bool
	lastErr   error
}

// Dialer creates sessions for one device identity.
type Dialer struct {
	cfg      config.MQTTConfig
	windowID string
	topics   Topics
	logger   Logger
}

// NewDialer returns a Dialer that authenticates as windowID and registers
// the Last Will on topics.Status().
func NewDialer(cfg config.MQTTConfig, windowID string, topics Topics) *Dialer {
	return &Dialer{cfg: cfg, windowID: windowID, topics: topics}
}

// SetLogger sets the logger handed to every session this dialer creates.
func (d *Dialer) SetLogger(logger Logger) {
	d.logger = logger
}

// Dial performs a single connect attempt with the given client ID.
//
// The Last Will is part of the CONNECT packet, so it is registered with the
// broker exactly when the attempt succeeds.
//
// Returns:
//   - *Session: Connected session
//   - error: Wraps ErrConnectionFailed with the broker return code on failure
func (d *Dialer) Dial(ctx context.Context, clientID string) (*Session, error) {
	opts := buildClientOptions(d.cfg, d.windowID, clientID)
	configureLWT(opts, d.topics.Status(), d.windowID)

	s := &Session{
		clientID: clientID,
		inbound:  make(chan Message, inboundQueueSize),
		logger:   d.logger,
	}

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.markLost(err)
	})

	s.client = pahomqtt.NewClient(opts)
	token := s.client.Connect()
	if err := awaitConnect(ctx, s.client, token, defaultConnectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if err := token.Error(); err != nil {
		if ct, ok := token.(*pahomqtt.ConnectToken); ok {
			return nil, fmt.Errorf("%w: rc=%d: %w", ErrConnectionFailed, ct.ReturnCode(), err)
		}
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()

	return s, nil
}

// ClientID returns the client identifier this session connected with.
func (s *Session) ClientID() string {
	return s.clientID
}

// IsConnected reports whether the session still holds a live link.
func (s *Session) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected && s.client.IsConnected()
}

// LastError returns why the link dropped, or nil while connected.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Messages returns the inbound queue. It is never closed.
func (s *Session) Messages() <-chan Message {
	return s.inbound
}

// Dropped returns how many inbound messages were discarded because the
// queue was full.
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// Close disconnects cleanly, so the broker does not publish the Last Will.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}

	if s.client.IsConnected() {
		s.client.Disconnect(defaultDisconnectQuiesce)
	}

	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()

	return nil
}

func (s *Session) markLost(err error) {
	s.mu.Lock()
	s.connected = false
	s.lastErr = err
	s.mu.Unlock()
}

// enqueue hands an inbound message to the caller's loop without blocking paho.
func (s *Session) enqueue(msg Message) {
	select {
	case s.inbound <- msg:
	default:
		s.dropped.Add(1)
		if s.logger != nil {
			s.logger.Warn("MQTT inbound queue full, message dropped",
				"topic", msg.Topic,
				"dropped_total", s.dropped.Load(),
			)
		}
	}
}

// awaitConnect waits for the CONNECT token. On timeout or cancellation the
// attempt is aborted, so a late CONNACK cannot leave an orphan session
// holding the Last Will.
func awaitConnect(ctx context.Context, client pahomqtt.Client, token pahomqtt.Token, timeout time.Duration) error {
	if err := waitToken(ctx, token, timeout); err != nil {
		client.Disconnect(0)
		return err
	}
	return nil
}

// errTimeout marks a token that did not complete in time.
var errTimeout = errors.New("operation timed out")

// waitToken blocks until the token completes, the timeout passes or ctx ends.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %v", errTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
