package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nerrad567/windowsensor/internal/event"
	"github.com/nerrad567/windowsensor/internal/infrastructure/influxdb"
	"github.com/nerrad567/windowsensor/internal/infrastructure/mqtt"
	"github.com/nerrad567/windowsensor/internal/window"
)

// Connection is the part of *connection.Manager the publisher uses.
type Connection interface {
	IsConnected() bool
	EnsureConnected(ctx context.Context) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// History records successfully published transitions.
// Implemented by *influxdb.Client.
type History interface {
	WriteTransition(p influxdb.TransitionPoint) error
}

// Clock returns the current time in seconds since the epoch.
type Clock func() int64

// Publisher builds and sends the node's events.
//
// Thread Safety:
//   - Not safe for concurrent use; it drives the connection manager.
type Publisher struct {
	conn     Connection
	topics   mqtt.Topics
	encoder  *event.Encoder
	identity window.Identity
	qos      byte
	logger   *slog.Logger

	clock   Clock
	history History
}

// New returns a Publisher for identity. Topics are built from
// identity.TopicRoot.
func New(conn Connection, encoder *event.Encoder, identity window.Identity, qos byte, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:     conn,
		topics:   mqtt.Topics{Root: identity.TopicRoot},
		encoder:  encoder,
		identity: identity,
		qos:      qos,
		logger:   logger,
		clock:    func() int64 { return time.Now().Unix() },
	}
}

// SetClock replaces the timestamp source.
func (p *Publisher) SetClock(clock Clock) {
	p.clock = clock
}

// SetHistory enables the transition history mirror.
func (p *Publisher) SetHistory(h History) {
	p.history = h
}

// Announce publishes the online status on the live session without
// reconnecting. It is the connection manager's post-connect hook.
func (p *Publisher) Announce(_ context.Context) error {
	return p.sendStatus()
}

// PublishStatus publishes the online status. When offline it reconnects,
// and the reconnect itself announces the status.
func (p *Publisher) PublishStatus(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return p.conn.EnsureConnected(ctx)
	}
	return p.sendStatus()
}

// PublishStateUpdate publishes one transition on the stateupdate topic.
// On encoding failure the E002 fallback is published on the error topic
// and the encoding error is returned.
func (p *Publisher) PublishStateUpdate(ctx context.Context, from, to window.State) error {
	if err := p.ensure(ctx); err != nil {
		return err
	}

	t := event.Transition{
		Timestamp: p.clock(),
		WindowID:  p.identity.WindowID,
		From:      from,
		To:        to,
	}

	payload, err := p.encoder.EncodeTransition(t, p.identity.Language)
	if err != nil {
		return p.fallback(t.Timestamp, err)
	}

	if err := p.send(p.topics.StateUpdate(), payload); err != nil {
		return err
	}
	p.record(t)
	return nil
}

// PublishError publishes an error event.
func (p *Publisher) PublishError(ctx context.Context, code window.ErrorCode) error {
	if err := p.ensure(ctx); err != nil {
		return err
	}

	ts := p.clock()
	payload, err := p.encoder.EncodeError(ts, p.identity.WindowID, code)
	if err != nil {
		return p.fallback(ts, err)
	}
	return p.send(p.topics.Error(), payload)
}

func (p *Publisher) ensure(ctx context.Context) error {
	if p.conn.IsConnected() {
		return nil
	}
	return p.conn.EnsureConnected(ctx)
}

func (p *Publisher) sendStatus() error {
	ts := p.clock()
	payload, err := p.encoder.EncodeStatus(ts, p.identity.WindowID, window.StatusOnline)
	if err != nil {
		return p.fallback(ts, err)
	}
	return p.send(p.topics.Status(), payload)
}

// fallback publishes the fixed-layout E002 error and returns cause.
func (p *Publisher) fallback(ts int64, cause error) error {
	p.logger.Error("event encoding failed, publishing fallback",
		"window_id", p.identity.WindowID,
		"error", cause,
	)
	payload := event.Fallback(ts, p.identity.WindowID, window.ErrorEncoding)
	if err := p.send(p.topics.Error(), payload); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (p *Publisher) send(topic string, payload []byte) error {
	if err := p.conn.Publish(topic, payload, p.qos, true); err != nil {
		p.logger.Warn("publish failed, event dropped",
			"topic", topic,
			"bytes", len(payload),
			"error", err,
		)
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	p.logger.Debug("published", "topic", topic, "bytes", len(payload))
	return nil
}

func (p *Publisher) record(t event.Transition) {
	if p.history == nil {
		return
	}
	err := p.history.WriteTransition(influxdb.TransitionPoint{
		WindowID:  t.WindowID,
		Floor:     p.identity.Position.Floor,
		Room:      p.identity.Position.Room,
		FromState: t.From.Code(),
		ToState:   t.To.Code(),
		Timestamp: time.Unix(t.Timestamp, 0),
	})
	if err != nil {
		p.logger.Debug("history write skipped", "error", err)
	}
}
