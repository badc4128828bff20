// Package process runs one-shot external commands under a deadline.
//
// The node uses it for the boot-time firmware update hand-off: the
// configured updater binary is started in its own process group, its
// output is forwarded to the logger line by line, and the whole group is
// terminated (SIGTERM, then SIGKILL) if the deadline passes or the
// context is cancelled.
//
// Example usage:
//
//	r := process.NewRunner(process.Config{
//	    Name:    "updater",
//	    Binary:  "/usr/local/bin/apply-update",
//	    Args:    []string{"--reboot=false"},
//	    Timeout: 5 * time.Minute,
//	})
//	r.SetLogger(logger)
//
//	res, err := r.Run(ctx)
package process
