// Package controller implements the mode state machine at the heart of the
// daemon: the decision of when the device behaves as a WiFi client and when
// it hosts its own access point.
//
// The machine has five states (client connected, client disconnected, AP
// starting, AP active, reconnecting) and a single writer: the tick loop.
// Each tick makes at most one mode decision; multi-step sequences like the
// AP teardown run to completion within the tick that decided them.
// Fallback to AP mode is guarded
// by a hysteresis threshold so a single missed poll never flaps the
// interface; the force-AP flag bypasses the threshold entirely.
//
// The controller is deliberately conservative about failure. Once it has
// committed to AP mode it never silently reverts to client mode: if the
// access point cannot be started it parks in the starting state, reports
// itself degraded, and retries every tick. On the way back to client mode,
// restore failures are logged and the sequence proceeds, because the next
// poll cycle will observe whatever link state actually resulted.
package controller
