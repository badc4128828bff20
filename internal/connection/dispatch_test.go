package connection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/windowsensor/internal/event"
	"github.com/nerrad567/windowsensor/internal/firmware"
	"github.com/nerrad567/windowsensor/internal/infrastructure/logging"
	"github.com/nerrad567/windowsensor/internal/infrastructure/mqtt"
	"github.com/nerrad567/windowsensor/internal/publisher"
	"github.com/nerrad567/windowsensor/internal/translation"
	"github.com/nerrad567/windowsensor/internal/window"
)

// flappingStore fails every write and drops the broker link while doing so.
type flappingStore struct {
	drop   func()
	writes int
}

func (s *flappingStore) SetPending(context.Context, string) error {
	s.writes++
	s.drop()
	return errors.New("disk I/O error")
}

func (s *flappingStore) Pending(context.Context) (bool, error) { return false, nil }

func (s *flappingStore) Clear(context.Context) error { return nil }

type countingRestarter struct {
	restarts int
}

func (r *countingRestarter) Restart() { r.restarts++ }

// TestFirmwareTrigger_PersistFailureOnFlappingLink runs the real publisher
// and trigger against a broker that redelivers the retained control message
// on every subscribe. The failed write drops the link, so the E003 report
// finds the manager offline mid-dispatch.
func TestFirmwareTrigger_PersistFailureOnFlappingLink(t *testing.T) {
	const maxDials = 4

	identity := window.Identity{WindowID: "window-0", Language: "en", TopicRoot: "/windowSensor/"}
	topics := mqtt.Topics{Root: identity.TopicRoot}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := &callLog{}
	broker := &fakeBroker{log: log}
	broker.prepare = func(s *fakeSession) {
		s.inbound <- mqtt.Message{Topic: topics.FirmwareUpdate(), Payload: []byte("1")}
	}
	dial := func(dialCtx context.Context, clientID string) (Session, error) {
		if broker.attempts >= maxDials {
			cancel()
			return nil, context.Canceled
		}
		return broker.dial(dialCtx, clientID)
	}

	m := NewManager(dial, Config{PollWindow: 20 * time.Millisecond, QoS: 1}, logging.Discard().Logger)
	m.sleep = (&sleepRecorder{log: log}).sleep

	store := &flappingStore{drop: func() {
		broker.sessions[len(broker.sessions)-1].connected = false
	}}
	restarter := &countingRestarter{}

	enc := event.NewEncoder(translation.Default(), identity.Position)
	pub := publisher.New(m, enc, identity, 1, logging.Discard().Logger)
	m.SetAnnounce(pub.Announce)

	trigger := firmware.NewTrigger(store, m, restarter, topics, 1, logging.Discard().Logger)
	trigger.SetErrorReporter(pub)

	var depth, maxDepth, dialsInHandler int
	m.Handle(topics.FirmwareUpdate(), func(ctx context.Context, msg mqtt.Message) error {
		depth++
		if depth > maxDepth {
			maxDepth = depth
		}
		before := broker.attempts
		err := trigger.HandleMessage(ctx, msg)
		dialsInHandler += broker.attempts - before
		depth--
		return err
	})

	if err := m.EnsureConnected(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("EnsureConnected() error = %v, want context.Canceled", err)
	}

	if maxDepth != 1 {
		t.Errorf("handler nesting depth = %d, want 1", maxDepth)
	}
	if dialsInHandler != 0 {
		t.Errorf("dials from inside the handler = %d, want 0", dialsInHandler)
	}
	if broker.attempts != maxDials {
		t.Errorf("dials = %d, want %d (one per outer reconnect)", broker.attempts, maxDials)
	}
	if store.writes != maxDials {
		t.Errorf("persist attempts = %d, want one per session (%d)", store.writes, maxDials)
	}
	if restarter.restarts != 0 {
		t.Errorf("restarts = %d after failed persist, want 0", restarter.restarts)
	}
	if trigger.State() != firmware.StateIdle {
		t.Errorf("State() = %v, want idle", trigger.State())
	}
	for i, s := range broker.sessions {
		if !s.closed {
			t.Errorf("session %d left open after dropping", i)
		}
	}
}
