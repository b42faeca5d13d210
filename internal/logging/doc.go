// Package logging provides structured logging for the WifiGuard daemon and tools.
//
// This package wraps zap logger with convenience functions for common logging
// patterns used throughout the daemon. It provides both general logging functions
// and specialized functions for mode-controller logging needs.
//
// # Log Levels
//
// The package supports standard log levels:
//   - Debug: Detailed debugging info (command output, link samples, scan results)
//   - Info: Normal operations (mode transitions, AP start/stop, reconnects)
//   - Warn: Non-fatal issues (autoconnect toggle failures, scan timeouts)
//   - Error: Serious issues (AP start failures, backend unavailable)
//
// # Structured Logging
//
// All log functions use structured fields for queryability:
//
//	logging.Info("Access point started",
//	    zap.String("ssid", "wifiguard"),
//	    zap.String("gateway", "10.41.0.1/24"),
//	)
//
// # Specialized Logging
//
// The package provides domain-specific logging functions:
//
//	logging.LogTransition("client-disconnected", "ap-starting", "disconnect threshold exceeded")
//	logging.LogCommand("nmcli device disconnect wlan0", 0, "210ms")
//
// # Configuration
//
// Initialize logging at daemon startup:
//
//	if err := logging.Initialize("info"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// CLI commands that should be silent by default use InitializeFromEnv, which
// only enables output when WIFIGUARD_LOG_LEVEL is set.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
