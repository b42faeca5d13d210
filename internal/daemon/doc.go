// Package daemon assembles and supervises the long-running process: it loads
// configuration, selects the WiFi backend, and runs the mode controller and
// the API server under one signal-aware context.
//
// The daemon is the sole owner of process lifecycle. On SIGINT/SIGTERM it
// stops the API server, waits for the controller loop to drain, and tears
// down a hosted access point so a clean exit never leaves the interface in a
// half-configured state.
package daemon
