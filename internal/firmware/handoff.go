package firmware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nerrad567/windowsensor/internal/audit"
	"github.com/nerrad567/windowsensor/internal/process"
)

// sourceBoot is the audit source for boot-time hand-off entries.
const sourceBoot = "boot"

// Updater applies a pending update. Implemented by *process.Runner.
type Updater interface {
	Run(ctx context.Context) (process.Result, error)
}

// ApplyPending runs at boot. When the flag is set and an updater is
// configured it runs the updater and clears the flag on success. Without
// an updater the flag is left for an external mechanism. It reports
// whether an update was applied. auditLog may be nil.
func ApplyPending(ctx context.Context, store FlagStore, updater Updater, auditLog AuditLog, logger *slog.Logger) (bool, error) {
	pending, err := store.Pending(ctx)
	if err != nil {
		return false, fmt.Errorf("checking firmware flag: %w", err)
	}
	if !pending {
		return false, nil
	}

	if updater == nil {
		logger.Warn("firmware update pending but no update_command configured; leaving flag set")
		return false, nil
	}

	logger.Info("applying pending firmware update")
	res, err := updater.Run(ctx)
	if err != nil {
		record(ctx, auditLog, logger, audit.ActionUpdateFailed, sourceBoot, map[string]any{
			"exit_code": res.ExitCode,
			"error":     err.Error(),
		})
		return false, fmt.Errorf("running firmware updater (exit %d): %w", res.ExitCode, err)
	}

	if err := store.Clear(ctx); err != nil {
		return true, fmt.Errorf("clearing firmware flag: %w", err)
	}
	record(ctx, auditLog, logger, audit.ActionUpdateApplied, sourceBoot, map[string]any{
		"duration_ms": res.Duration.Milliseconds(),
	})
	logger.Info("firmware update applied", "duration", res.Duration)
	return true, nil
}
