// Package logging provides structured logging with per-module log level configuration.
//
// The logging system uses Go's slog package with automatic output routing:
//   - Logs to systemd journal when available (Linux systems with journald)
//   - Logs to stdout when a terminal, pipe, or file is connected
//   - Logs to both when both are available
//
// Initialize the logging system once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"session":   "debug",
//			"recording": "warn",
//		},
//	})
//
// Get a logger for your module:
//
//	logger := logging.GetLogger("session").With("key", key)
//	logger.Info("Session started", "port", port)
//
// When running under journald, filter by structured fields:
//
//	journalctl -t streamgate MODULE=session
//	journalctl -t streamgate KEY=somechannel
package logging
