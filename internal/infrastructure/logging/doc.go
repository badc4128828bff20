// Package logging provides structured logging for the window sensor node.
//
// This package wraps Go's standard log/slog package so every component logs
// the same way: JSON in the field, text on a developer bench, and the
// default fields service and version on every entry.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Warn("broker connection failed", "attempt", 3, "error", err)
//
// Never log the broker password.
package logging
