package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Defaults applied by NewRunner for zero values.
const (
	defaultTimeout         = 5 * time.Minute
	defaultGracefulTimeout = 10 * time.Second
)

// Config holds configuration for a one-shot command.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable.
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// Timeout bounds the whole run.
	Timeout time.Duration

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	GracefulTimeout time.Duration
}

// Result describes a finished run.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Runner starts a configured command and waits for it.
type Runner struct {
	config Config
	logger Logger
}

// NewRunner creates a runner with the given configuration.
func NewRunner(cfg Config) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.GracefulTimeout <= 0 {
		cfg.GracefulTimeout = defaultGracefulTimeout
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Binary
	}

	return &Runner{
		config: cfg,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// Run starts the command and blocks until it exits, Timeout passes or ctx
// is cancelled. A non-zero exit is reported as ErrExitStatus with the code
// in Result.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.config.Binary == "" {
		return Result{ExitCode: -1}, fmt.Errorf("%w: binary is empty", ErrInvalidConfig)
	}

	r.logger.Info("starting process",
		"name", r.config.Name,
		"binary", r.config.Binary,
		"args", r.config.Args,
	)

	cmd := exec.Command(r.config.Binary, r.config.Args...) //nolint:gosec // Binary comes from local configuration

	// Own process group so the whole tree can be signalled on timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if r.config.Env != nil {
		cmd.Env = append(os.Environ(), r.config.Env...)
	}
	if r.config.WorkDir != "" {
		cmd.Dir = r.config.WorkDir
	}

	stdout := &lineLogger{logger: r.logger, name: r.config.Name, stream: "stdout"}
	stderr := &lineLogger{logger: r.logger, name: r.config.Name, stream: "stderr"}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.config.GracefulTimeout

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("starting %s: %w", r.config.Name, err)
	}

	r.logger.Info("process started",
		"name", r.config.Name,
		"pid", cmd.Process.Pid,
	)

	exitCh := make(chan error, 1)
	go func() {
		exitCh <- cmd.Wait()
	}()

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	var waitErr, cause error
	select {
	case waitErr = <-exitCh:
	case <-timer.C:
		cause = ErrTimedOut
		waitErr = r.terminate(cmd.Process.Pid, exitCh)
	case <-ctx.Done():
		cause = ctx.Err()
		waitErr = r.terminate(cmd.Process.Pid, exitCh)
	}

	stdout.flush()
	stderr.flush()

	res := Result{ExitCode: exitCode(cmd, waitErr), Duration: time.Since(start)}

	if cause != nil {
		return res, fmt.Errorf("%s: %w", r.config.Name, cause)
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return res, fmt.Errorf("%w: %s exited with code %d", ErrExitStatus, r.config.Name, res.ExitCode)
		}
		return res, fmt.Errorf("waiting for %s: %w", r.config.Name, waitErr)
	}

	r.logger.Info("process finished",
		"name", r.config.Name,
		"duration", res.Duration,
	)
	return res, nil
}

// terminate sends SIGTERM to the process group, then SIGKILL after
// GracefulTimeout, and returns the Wait result.
func (r *Runner) terminate(pid int, exitCh <-chan error) error {
	r.logger.Warn("stopping process", "name", r.config.Name, "pid", pid)

	// Negative PID signals the process group created via Setpgid.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		r.logger.Warn("failed to send SIGTERM to process group", "name", r.config.Name, "error", err)
	}

	select {
	case err := <-exitCh:
		return err
	case <-time.After(r.config.GracefulTimeout):
		r.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", r.config.Name,
			"timeout", r.config.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		r.logger.Error("failed to kill process group", "name", r.config.Name, "error", err)
	}
	return <-exitCh
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}

// lineLogger forwards complete output lines to the logger.
type lineLogger struct {
	logger Logger
	name   string
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadBytes('\n')
		if err != nil {
			// Partial line: keep it for the next write.
			l.buf.Reset()
			l.buf.Write(line)
			break
		}
		l.emit(bytes.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(l.buf.Bytes())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line []byte) {
	l.logger.Info("process output",
		"name", l.name,
		"stream", l.stream,
		"output", string(line),
	)
}
