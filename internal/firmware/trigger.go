package firmware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nerrad567/windowsensor/internal/audit"
	"github.com/nerrad567/windowsensor/internal/infrastructure/mqtt"
	"github.com/nerrad567/windowsensor/internal/window"
)

// State is the trigger's position in its two-state machine.
type State int

const (
	// StateIdle waits for a control message.
	StateIdle State = iota

	// StatePendingRestart is terminal: the flag is stored and a restart
	// was requested.
	StatePendingRestart
)

// String returns the lowercase state name.
func (s State) String() string {
	if s == StatePendingRestart {
		return "pending_restart"
	}
	return "idle"
}

// Publisher sends the clearing message on the control topic.
// Implemented by *connection.Manager.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// ErrorReporter publishes an error event. Implemented by *publisher.Publisher.
type ErrorReporter interface {
	PublishError(ctx context.Context, code window.ErrorCode) error
}

// AuditLog records firmware activity. Implemented by *audit.SQLiteRepository.
type AuditLog interface {
	Create(ctx context.Context, entry *audit.Entry) error
}

// Trigger reacts to firmware-update control messages.
//
// Thread Safety:
//   - Not safe for concurrent use; driven from the connection manager's
//     dispatch on the main goroutine.
type Trigger struct {
	store     FlagStore
	pub       Publisher
	restarter Restarter
	topics    mqtt.Topics
	qos       byte
	logger    *slog.Logger

	reporter ErrorReporter
	auditLog AuditLog
	state    State
}

// NewTrigger returns an Idle trigger. The clearing message goes to
// topics.FirmwareUpdate().
func NewTrigger(store FlagStore, pub Publisher, restarter Restarter, topics mqtt.Topics, qos byte, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{
		store:     store,
		pub:       pub,
		restarter: restarter,
		topics:    topics,
		qos:       qos,
		logger:    logger,
		state:     StateIdle,
	}
}

// SetErrorReporter sets where persistence failures are reported as E003.
func (t *Trigger) SetErrorReporter(r ErrorReporter) {
	t.reporter = r
}

// SetAuditLog enables the audit trail.
func (t *Trigger) SetAuditLog(a AuditLog) {
	t.auditLog = a
}

// State returns the current state.
func (t *Trigger) State() State {
	return t.state
}

// HandleMessage is registered on the control topic.
//
// Any non-empty payload is accepted without inspection. Empty payloads are
// filtered on purpose: an empty retained publish is how a retained control
// message is deleted, whether by this node's own clear or by an operator,
// so it never requests an update.
func (t *Trigger) HandleMessage(ctx context.Context, msg mqtt.Message) error {
	if len(msg.Payload) == 0 {
		t.logger.Debug("ignoring empty firmware control message", "topic", msg.Topic)
		return nil
	}
	if t.state == StatePendingRestart {
		t.logger.Debug("restart already pending, ignoring control message", "topic", msg.Topic)
		return nil
	}

	t.logger.Info("firmware update requested",
		"topic", msg.Topic,
		"bytes", len(msg.Payload),
	)

	if err := t.store.SetPending(ctx, msg.Topic); err != nil {
		t.logger.Error("persisting firmware flag failed, restart aborted", "error", err)
		record(ctx, t.auditLog, t.logger, audit.ActionPersistFailed, msg.Topic, map[string]any{"error": err.Error()})
		if t.reporter != nil {
			if repErr := t.reporter.PublishError(ctx, window.ErrorFirmwareFlag); repErr != nil {
				t.logger.Warn("reporting firmware flag failure", "error", repErr)
			}
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	record(ctx, t.auditLog, t.logger, audit.ActionUpdateRequested, msg.Topic, map[string]any{"bytes": len(msg.Payload)})

	// The flag is durable at this point; a failed clear only means the
	// retained trigger may fire again after the restart.
	topic := t.topics.FirmwareUpdate()
	if err := t.pub.Publish(topic, nil, t.qos, true); err != nil {
		t.logger.Warn("clearing retained firmware trigger failed",
			"topic", topic,
			"error", err,
		)
	}

	t.state = StatePendingRestart
	t.logger.Info("restarting to apply firmware update")
	t.restarter.Restart()
	return nil
}

// record writes an audit entry when a log is configured. Failures are
// logged only.
func record(ctx context.Context, a AuditLog, logger *slog.Logger, action, source string, details map[string]any) {
	if a == nil {
		return
	}
	if err := a.Create(ctx, &audit.Entry{Action: action, Source: source, Details: details}); err != nil {
		logger.Warn("writing audit entry failed", "action", action, "error", err)
	}
}
