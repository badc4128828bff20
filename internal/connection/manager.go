package connection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/windowsensor/internal/infrastructure/mqtt"
)

// Defaults used when Config leaves a field empty.
const (
	defaultDelay          = 5 * time.Second
	defaultPollWindow     = 100 * time.Millisecond
	defaultClientIDPrefix = "windowsensor-"

	// clientIDSuffixLen is the number of random hex characters in a client ID.
	clientIDSuffixLen = 8
)

// Session is one live broker session. Implemented by *mqtt.Session.
type Session interface {
	ClientID() string
	IsConnected() bool
	LastError() error
	Dropped() uint64
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte) error
	Messages() <-chan mqtt.Message
	Close() error
}

// DialFunc opens a new session with the given client ID.
type DialFunc func(ctx context.Context, clientID string) (Session, error)

// Handler processes one inbound message.
type Handler func(ctx context.Context, msg mqtt.Message) error

// Config configures a Manager.
type Config struct {
	// ClientIDPrefix is prepended to a random suffix on every attempt.
	ClientIDPrefix string

	// Delay is the wait policy between failed attempts. Defaults to FixedDelay(5s).
	Delay DelayPolicy

	// PollWindow bounds how long Service drains inbound messages.
	PollWindow time.Duration

	// QoS is used for control topic subscriptions.
	QoS byte

	// Topics resolves handler suffixes. With an empty root a suffix is used
	// as the full topic.
	Topics mqtt.Topics
}

type route struct {
	suffix  string
	handler Handler
}

// Manager owns the single broker session.
//
// Thread Safety:
//   - Not safe for concurrent use; drive it from one goroutine.
type Manager struct {
	dial   DialFunc
	cfg    Config
	logger *slog.Logger

	session Session
	lastErr error

	// dropped is the session's drop count at the last report.
	dropped uint64

	// servicing is set while a handler runs; reconnects are refused then.
	servicing bool

	// routes in registration order; restored in this order on every connect.
	routes []route

	announce func(ctx context.Context) error

	sleep    func(ctx context.Context, d time.Duration) error
	clientID func() string
}

// NewManager returns a Manager that opens sessions with dial.
func NewManager(dial DialFunc, cfg Config, logger *slog.Logger) *Manager {
	if cfg.Delay == nil {
		cfg.Delay = FixedDelay(defaultDelay)
	}
	if cfg.PollWindow <= 0 {
		cfg.PollWindow = defaultPollWindow
	}
	if cfg.ClientIDPrefix == "" {
		cfg.ClientIDPrefix = defaultClientIDPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		dial:   dial,
		cfg:    cfg,
		logger: logger,
		sleep:  sleepContext,
	}
	m.clientID = m.randomClientID
	return m
}

// Handle registers handler for messages on the topic built from suffix and
// subscribes to it on every successful connect. Call before the first
// EnsureConnected.
func (m *Manager) Handle(suffix string, handler Handler) {
	m.routes = append(m.routes, route{suffix: suffix, handler: handler})
}

// SetAnnounce sets the hook run after subscriptions are restored on every
// successful connect. It must publish through Publish, not EnsureConnected.
func (m *Manager) SetAnnounce(fn func(ctx context.Context) error) {
	m.announce = fn
}

// IsConnected reports whether a live session exists.
func (m *Manager) IsConnected() bool {
	return m.session != nil && m.session.IsConnected()
}

// LastError returns the error of the most recent failed connect attempt or
// lost session.
func (m *Manager) LastError() error {
	return m.lastErr
}

// Connect performs a single connect attempt with a fresh client ID.
// Any previous session is closed first; sessions are never reused.
func (m *Manager) Connect(ctx context.Context) error {
	if m.servicing {
		return errReconnectInHandler
	}
	m.dropSession()

	clientID := m.clientID()
	session, err := m.dial(ctx, clientID)
	if err != nil {
		m.lastErr = err
		return err
	}

	m.session = session
	m.lastErr = nil
	m.dropped = 0
	m.logger.Info("broker connected", "client_id", clientID)
	return nil
}

// EnsureConnected blocks until a session is established and the post-connect
// sequence has run. It retries without limit; only ctx cancellation ends it
// early.
//
// Called from a message handler while the link is down, it returns
// ErrNotConnected without dialling.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	if m.servicing && !m.IsConnected() {
		return errReconnectInHandler
	}
	for attempt := 1; !m.IsConnected(); attempt++ {
		m.noteLost()
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := m.Connect(ctx); err != nil {
			m.logger.Warn("broker connection failed",
				"attempt", attempt,
				"error", err,
				"retry_in", m.cfg.Delay.Next(attempt),
			)
			if sleepErr := m.backoff(ctx, attempt); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		if !m.afterConnect(ctx) {
			if sleepErr := m.backoff(ctx, attempt); sleepErr != nil {
				return sleepErr
			}
			continue
		}
		m.Service(ctx)
	}
	return nil
}

func (m *Manager) backoff(ctx context.Context, attempt int) error {
	return m.sleep(ctx, m.cfg.Delay.Next(attempt))
}

// afterConnect restores subscriptions then runs the announce hook.
// A failed subscription closes the session so the loop dials again instead
// of running with a stale control subscription.
func (m *Manager) afterConnect(ctx context.Context) bool {
	for _, r := range m.routes {
		topic := m.cfg.Topics.Build(r.suffix)
		if err := m.session.Subscribe(topic, m.cfg.QoS); err != nil {
			m.logger.Warn("subscribe failed, reconnecting",
				"topic", topic,
				"error", err,
			)
			m.dropSession()
			return false
		}
		m.logger.Debug("subscribed", "topic", topic)
	}

	if m.announce != nil {
		if err := m.announce(ctx); err != nil {
			m.logger.Warn("connect announcement failed", "error", err)
		}
	}
	return true
}

// Publish sends payload on the live session.
func (m *Manager) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if !m.IsConnected() {
		return ErrNotConnected
	}
	return m.session.Publish(topic, payload, qos, retained)
}

// Service drains inbound messages for the configured poll window and
// dispatches them to registered handlers.
func (m *Manager) Service(ctx context.Context) {
	if m.session == nil {
		return
	}

	timer := time.NewTimer(m.cfg.PollWindow)
	defer timer.Stop()
	defer m.reportDropped()

	inbound := m.session.Messages()
	for {
		select {
		case msg := <-inbound:
			m.dispatch(ctx, msg)
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Loop is one pass of the main loop: reconnect if needed, then service inbound.
func (m *Manager) Loop(ctx context.Context) error {
	if !m.IsConnected() {
		// EnsureConnected services inbound itself after connecting.
		return m.EnsureConnected(ctx)
	}
	m.Service(ctx)
	return nil
}

// Close closes the live session, if any.
func (m *Manager) Close() error {
	if m.session == nil {
		return nil
	}
	err := m.session.Close()
	m.session = nil
	return err
}

func (m *Manager) dispatch(ctx context.Context, msg mqtt.Message) {
	m.logger.Info("message arrived", "topic", msg.Topic, "bytes", len(msg.Payload))

	for _, r := range m.routes {
		if m.cfg.Topics.Build(r.suffix) != msg.Topic {
			continue
		}
		if err := m.invoke(ctx, r.handler, msg); err != nil {
			m.logger.Error("message handler failed",
				"topic", msg.Topic,
				"error", err,
			)
		}
		return
	}
	m.logger.Debug("no handler for topic", "topic", msg.Topic)
}

func (m *Manager) invoke(ctx context.Context, h Handler, msg mqtt.Message) error {
	m.servicing = true
	defer func() { m.servicing = false }()
	return h(ctx, msg)
}

// noteLost logs why a session that was live has dropped, then discards it.
func (m *Manager) noteLost() {
	if m.session == nil || m.session.IsConnected() {
		return
	}
	err := m.session.LastError()
	m.logger.Warn("broker connection lost",
		"client_id", m.session.ClientID(),
		"error", err,
	)
	if err != nil {
		m.lastErr = err
	}
	m.dropSession()
}

// reportDropped logs inbound messages the session discarded since the
// last report.
func (m *Manager) reportDropped() {
	if m.session == nil {
		return
	}
	n := m.session.Dropped()
	if n <= m.dropped {
		return
	}
	m.logger.Warn("inbound messages dropped, queue full",
		"client_id", m.session.ClientID(),
		"dropped", n-m.dropped,
		"dropped_total", n,
	)
	m.dropped = n
}

func (m *Manager) dropSession() {
	if m.session == nil {
		return
	}
	if err := m.session.Close(); err != nil {
		m.logger.Debug("closing stale session", "error", err)
	}
	m.session = nil
}

func (m *Manager) randomClientID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:clientIDSuffixLen]
	return fmt.Sprintf("%s%s", m.cfg.ClientIDPrefix, suffix)
}
