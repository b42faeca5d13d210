// Package server serves the daemon's JSON API over HTTP.
//
// The API is the single control surface: the configuration UI on the hosted
// subnet, the operator CLI, and the monitor TUI all use it. Handlers never
// mutate mode state directly; connect and force-AP requests are enqueued
// with the mode controller and acknowledged with 202 Accepted, and the
// /api/events websocket stream pushes every subsequent state change so
// callers can watch the outcome.
//
// The one policy decision that lives here: manager-level network scans are
// refused with 503 while the access point holds the interface, because a
// scan would disrupt hosting.
package server
