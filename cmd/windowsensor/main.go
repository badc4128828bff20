// windowsensor is the network-reporting process of a window open/closed
// sensor node.
//
// It keeps a session with the MQTT broker, announces liveness and state
// transitions as retained JSON events, and enters firmware-update mode
// when a message arrives on the control topic. State transitions are read
// from stdin as "<from> <to>" lines, one per physical change.
//
// Exit status 3 means a firmware update was requested; the supervisor
// restarts the process, which then runs the configured update_command.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/windowsensor/migrations"

	"github.com/nerrad567/windowsensor/internal/audit"
	"github.com/nerrad567/windowsensor/internal/connection"
	"github.com/nerrad567/windowsensor/internal/event"
	"github.com/nerrad567/windowsensor/internal/firmware"
	"github.com/nerrad567/windowsensor/internal/infrastructure/config"
	"github.com/nerrad567/windowsensor/internal/infrastructure/database"
	"github.com/nerrad567/windowsensor/internal/infrastructure/influxdb"
	"github.com/nerrad567/windowsensor/internal/infrastructure/logging"
	"github.com/nerrad567/windowsensor/internal/infrastructure/mqtt"
	"github.com/nerrad567/windowsensor/internal/process"
	"github.com/nerrad567/windowsensor/internal/publisher"
	"github.com/nerrad567/windowsensor/internal/translation"
	"github.com/nerrad567/windowsensor/internal/window"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// Default configuration file path
	defaultConfigPath = "configs/config.yaml"

	// exitRestart tells the supervisor a firmware update is pending.
	exitRestart = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	appCtx, cancel := context.WithCancelCause(ctx)

	err := run(appCtx, cancel, os.Stdin)
	restart := firmware.RestartRequested(appCtx)
	cancel(nil)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if restart {
		os.Exit(exitRestart)
	}
}

// run is the application logic, separated from main for testability.
// restart is cancelled with firmware.ErrRestartRequested when the node
// must restart; run then returns nil.
func run(ctx context.Context, restart context.CancelCauseFunc, input io.Reader) error {
	log := logging.Default()
	log.Info("starting windowsensor",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("window_id", cfg.Device.WindowID)
	log.Info("configuration loaded", "path", configPath)

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	if healthErr := db.HealthCheck(ctx); healthErr != nil {
		return fmt.Errorf("database health check: %w", healthErr)
	}
	log.Info("database ready", "path", db.Path())

	flags := firmware.NewSQLiteStore(db.DB)
	auditLog := audit.NewSQLiteRepository(db.DB)
	if applied, updErr := firmware.ApplyPending(ctx, flags, newUpdater(cfg, log), auditLog, log.Logger); updErr != nil {
		// Keep running the current firmware; the flag stays set for the next boot.
		log.Error("pending firmware update failed", "error", updErr)
	} else if applied {
		log.Info("pending firmware update applied")
	}

	catalog, err := loadCatalog(cfg, log)
	if err != nil {
		return err
	}

	identity := window.Identity{
		WindowID:  cfg.Device.WindowID,
		Language:  cfg.Device.Language,
		TopicRoot: cfg.Device.TopicRoot,
		Position: window.Position{
			Window: cfg.Device.Position.Window,
			Floor:  cfg.Device.Position.Floor,
			Room:   cfg.Device.Position.Room,
		},
	}
	topics := mqtt.Topics{Root: identity.TopicRoot}
	qos := byte(cfg.MQTT.QoS) // #nosec G115 -- validated to 0..2

	encoder := event.NewEncoder(catalog, identity.Position)
	encoder.SetOnMissing(func(missErr error) {
		log.Debug("translation missing, field omitted", "error", missErr)
	})

	dialer := mqtt.NewDialer(cfg.MQTT, identity.WindowID, topics)
	dialer.SetLogger(log)

	manager := connection.NewManager(
		func(dialCtx context.Context, clientID string) (connection.Session, error) {
			s, dialErr := dialer.Dial(dialCtx, clientID)
			if dialErr != nil {
				return nil, dialErr
			}
			return s, nil
		},
		connection.Config{
			ClientIDPrefix: cfg.MQTT.Broker.ClientIDPrefix,
			Delay:          connection.FixedDelay(cfg.GetReconnectDelay()),
			PollWindow:     cfg.GetPollWindow(),
			QoS:            qos,
			Topics:         topics,
		},
		log.Logger,
	)
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := manager.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	pub := publisher.New(manager, encoder, identity, qos, log.Logger)
	manager.SetAnnounce(pub.Announce)

	if history := connectHistory(ctx, cfg, log); history != nil {
		defer history.Close() //nolint:errcheck // Flush on shutdown is best effort
		pub.SetHistory(history)
	}

	trigger := firmware.NewTrigger(flags, manager, firmware.NewProcessRestarter(restart),
		topics, qos, log.Logger)
	trigger.SetErrorReporter(pub)
	trigger.SetAuditLog(auditLog)
	manager.Handle(mqtt.SuffixFirmwareUpdate, trigger.HandleMessage)

	log.Info("connecting to MQTT",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"topic_root", identity.TopicRoot,
	)

	transitions := readTransitions(ctx, input, log.Logger)
	for {
		select {
		case <-ctx.Done():
			return shutdown(ctx, log)
		case t, ok := <-transitions:
			if !ok {
				transitions = nil
				continue
			}
			if pubErr := pub.PublishStateUpdate(ctx, t.from, t.to); pubErr != nil && ctx.Err() == nil {
				log.Warn("state update not delivered", "from", t.from, "to", t.to, "error", pubErr)
			}
		default:
			// Blocks for the poll window, or until reconnected.
			if loopErr := manager.Loop(ctx); loopErr != nil && ctx.Err() == nil {
				log.Warn("connection loop error", "error", loopErr)
			}
		}
	}
}

// shutdown logs why ctx ended. Cancellation is a clean exit.
func shutdown(ctx context.Context, log *logging.Logger) error {
	if firmware.RestartRequested(ctx) {
		log.Info("restarting for firmware update")
		return nil
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) && !errors.Is(cause, context.DeadlineExceeded) {
		return cause
	}
	log.Info("shutdown signal received")
	return nil
}

// getConfigPath returns the config file path from environment or default.
func getConfigPath() string {
	if path := os.Getenv("WINDOWSENSOR_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func newUpdater(cfg *config.Config, log *logging.Logger) firmware.Updater {
	cmd := cfg.Firmware.UpdateCommand
	if len(cmd) == 0 {
		return nil
	}
	runner := process.NewRunner(process.Config{
		Name:    "firmware-updater",
		Binary:  cmd[0],
		Args:    cmd[1:],
		Timeout: cfg.GetUpdateTimeout(),
	})
	runner.SetLogger(log)
	return runner
}

func loadCatalog(cfg *config.Config, log *logging.Logger) (*translation.Catalog, error) {
	catalog := translation.Default()
	if cfg.Translations.File != "" {
		loaded, err := translation.LoadFile(cfg.Translations.File)
		if err != nil {
			return nil, fmt.Errorf("loading translations: %w", err)
		}
		catalog = loaded
	}

	if !catalog.HasLanguage(cfg.Device.Language) {
		log.Warn("no translations for configured language, descriptions will be omitted",
			"language", cfg.Device.Language,
			"available", catalog.Languages(),
		)
	}
	return catalog, nil
}

// connectHistory returns nil when the mirror is disabled or unreachable;
// the node keeps publishing without it.
func connectHistory(ctx context.Context, cfg *config.Config, log *logging.Logger) *influxdb.Client {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB history disabled")
		return nil
	}

	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
	if err != nil {
		log.Warn("InfluxDB unavailable, continuing without history", "error", err)
		return nil
	}
	client.SetOnError(func(writeErr error) {
		log.Error("InfluxDB write error", "error", writeErr)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client
}
