package firmware

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/windowsensor/internal/audit"
	"github.com/nerrad567/windowsensor/internal/infrastructure/logging"
	"github.com/nerrad567/windowsensor/internal/infrastructure/mqtt"
	"github.com/nerrad567/windowsensor/internal/window"
)

const controlTopic = "/windowSensor/firmwareupdate"

var testTopics = mqtt.Topics{Root: "/windowSensor/"}

// callLog records the order of collaborator calls across fakes.
type callLog struct {
	calls []string
}

func (l *callLog) add(s string) { l.calls = append(l.calls, s) }

type fakeStore struct {
	log     *callLog
	err     error
	pending bool
	cleared int
}

func (s *fakeStore) SetPending(context.Context, string) error {
	s.log.add("persist")
	if s.err != nil {
		return s.err
	}
	s.pending = true
	return nil
}

func (s *fakeStore) Pending(context.Context) (bool, error) { return s.pending, s.err }

func (s *fakeStore) Clear(context.Context) error {
	s.cleared++
	s.pending = false
	return nil
}

type fakePublisher struct {
	log       *callLog
	err       error
	topic     string
	payload   []byte
	retained  bool
	published int
}

func (p *fakePublisher) Publish(topic string, payload []byte, _ byte, retained bool) error {
	p.log.add("clear")
	p.topic, p.payload, p.retained = topic, payload, retained
	p.published++
	return p.err
}

type fakeRestarter struct {
	log   *callLog
	count int
}

func (r *fakeRestarter) Restart() {
	r.log.add("restart")
	r.count++
}

type fakeReporter struct {
	codes []window.ErrorCode
}

func (r *fakeReporter) PublishError(_ context.Context, code window.ErrorCode) error {
	r.codes = append(r.codes, code)
	return nil
}

type fakeAudit struct {
	actions []string
}

func (a *fakeAudit) Create(_ context.Context, e *audit.Entry) error {
	a.actions = append(a.actions, e.Action)
	return nil
}

type fixture struct {
	log       *callLog
	store     *fakeStore
	pub       *fakePublisher
	restarter *fakeRestarter
	reporter  *fakeReporter
	audit     *fakeAudit
	trigger   *Trigger
}

func newFixture() *fixture {
	log := &callLog{}
	f := &fixture{
		log:       log,
		store:     &fakeStore{log: log},
		pub:       &fakePublisher{log: log},
		restarter: &fakeRestarter{log: log},
		reporter:  &fakeReporter{},
		audit:     &fakeAudit{},
	}
	f.trigger = NewTrigger(f.store, f.pub, f.restarter, testTopics, 1, logging.Discard().Logger)
	f.trigger.SetErrorReporter(f.reporter)
	f.trigger.SetAuditLog(f.audit)
	return f
}

func controlMessage(payload string) mqtt.Message {
	return mqtt.Message{Topic: controlTopic, Payload: []byte(payload)}
}

// ============================================================================
// Persistence success
// ============================================================================

func TestTrigger_PersistClearRestartOrder(t *testing.T) {
	f := newFixture()

	if err := f.trigger.HandleMessage(context.Background(), controlMessage("1")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	want := []string{"persist", "clear", "restart"}
	if len(f.log.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", f.log.calls, want)
	}
	for i := range want {
		if f.log.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, f.log.calls[i], want[i])
		}
	}

	if f.restarter.count != 1 {
		t.Errorf("restart count = %d, want 1", f.restarter.count)
	}
	if f.trigger.State() != StatePendingRestart {
		t.Errorf("State() = %v, want %v", f.trigger.State(), StatePendingRestart)
	}
	if len(f.audit.actions) != 1 || f.audit.actions[0] != audit.ActionUpdateRequested {
		t.Errorf("audit actions = %v, want [%s]", f.audit.actions, audit.ActionUpdateRequested)
	}
	if f.pub.topic != controlTopic || len(f.pub.payload) != 0 || !f.pub.retained {
		t.Errorf("clear publish = (%q, %q, retained=%v), want empty retained on control topic",
			f.pub.topic, f.pub.payload, f.pub.retained)
	}
}

func TestTrigger_RestartsOnlyOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for range 3 {
		if err := f.trigger.HandleMessage(ctx, controlMessage("go")); err != nil {
			t.Fatalf("HandleMessage() error = %v", err)
		}
	}

	if f.restarter.count != 1 {
		t.Errorf("restart count = %d, want 1", f.restarter.count)
	}
	if f.pub.published != 1 {
		t.Errorf("clear publishes = %d, want 1", f.pub.published)
	}
}

func TestTrigger_ClearFailureStillRestarts(t *testing.T) {
	f := newFixture()
	f.pub.err = mqtt.ErrNotConnected

	if err := f.trigger.HandleMessage(context.Background(), controlMessage("1")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if f.restarter.count != 1 {
		t.Errorf("restart count = %d, want 1", f.restarter.count)
	}
}

func TestTrigger_IgnoresEmptyPayload(t *testing.T) {
	f := newFixture()

	if err := f.trigger.HandleMessage(context.Background(), controlMessage("")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(f.log.calls) != 0 {
		t.Errorf("calls = %v, want none", f.log.calls)
	}
	if f.trigger.State() != StateIdle {
		t.Errorf("State() = %v, want %v", f.trigger.State(), StateIdle)
	}
}

func TestTrigger_RetainedDeleteDoesNotBlockLaterRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// An operator deleting the retained trigger arrives as an empty payload.
	if err := f.trigger.HandleMessage(ctx, controlMessage("")); err != nil {
		t.Fatalf("HandleMessage(empty) error = %v", err)
	}
	if len(f.audit.actions) != 0 || len(f.reporter.codes) != 0 {
		t.Errorf("empty payload left a trace: audit=%v reports=%v", f.audit.actions, f.reporter.codes)
	}

	if err := f.trigger.HandleMessage(ctx, controlMessage("update")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if f.restarter.count != 1 {
		t.Errorf("restart count = %d, want 1", f.restarter.count)
	}
}

func TestTrigger_ClearsOnConfiguredRoot(t *testing.T) {
	f := newFixture()
	topics := mqtt.Topics{Root: "/house/attic/"}
	f.trigger = NewTrigger(f.store, f.pub, f.restarter, topics, 2, logging.Discard().Logger)

	msg := mqtt.Message{Topic: topics.FirmwareUpdate(), Payload: []byte("1")}
	if err := f.trigger.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if f.pub.topic != "/house/attic/firmwareupdate" {
		t.Errorf("clear topic = %q, want /house/attic/firmwareupdate", f.pub.topic)
	}
}

// ============================================================================
// Persistence failure
// ============================================================================

func TestTrigger_PersistFailureAbortsRestart(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("disk full")

	err := f.trigger.HandleMessage(context.Background(), controlMessage("1"))
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("HandleMessage() error = %v, want ErrPersistence", err)
	}

	if f.restarter.count != 0 {
		t.Errorf("restart count = %d, want 0", f.restarter.count)
	}
	if f.pub.published != 0 {
		t.Errorf("clear publishes = %d, want 0", f.pub.published)
	}
	if f.trigger.State() != StateIdle {
		t.Errorf("State() = %v, want %v", f.trigger.State(), StateIdle)
	}
	if len(f.audit.actions) != 1 || f.audit.actions[0] != audit.ActionPersistFailed {
		t.Errorf("audit actions = %v, want [%s]", f.audit.actions, audit.ActionPersistFailed)
	}
	if len(f.reporter.codes) != 1 || f.reporter.codes[0] != window.ErrorFirmwareFlag {
		t.Errorf("reported codes = %v, want [%s]", f.reporter.codes, window.ErrorFirmwareFlag)
	}

	// A later message with working storage still triggers.
	f.store.err = nil
	if err := f.trigger.HandleMessage(context.Background(), controlMessage("1")); err != nil {
		t.Fatalf("retry HandleMessage() error = %v", err)
	}
	if f.restarter.count != 1 {
		t.Errorf("restart count after retry = %d, want 1", f.restarter.count)
	}
}

func TestState_String(t *testing.T) {
	if StateIdle.String() != "idle" {
		t.Errorf("StateIdle.String() = %q", StateIdle.String())
	}
	if StatePendingRestart.String() != "pending_restart" {
		t.Errorf("StatePendingRestart.String() = %q", StatePendingRestart.String())
	}
}

func TestProcessRestarter(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	r := NewProcessRestarter(cancel)

	if RestartRequested(ctx) {
		t.Fatal("RestartRequested() = true before Restart")
	}
	r.Restart()

	<-ctx.Done()
	if !RestartRequested(ctx) {
		t.Errorf("context cause = %v, want ErrRestartRequested", context.Cause(ctx))
	}
}
