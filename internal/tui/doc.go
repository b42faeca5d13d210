// Package tui implements the terminal monitor for a running daemon.
//
// The monitor subscribes to the daemon's /api/events websocket stream and
// renders the current mode, a degraded banner when the access point is
// failing to start, and the recent transition history. It can also request
// AP mode directly, which makes it a convenient way to put a device into
// its configuration network from an operator's laptop.
package tui
