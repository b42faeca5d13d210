// Package api defines the daemon's JSON wire types and provides the HTTP
// client and mDNS discovery used by the operator CLI and the monitor TUI.
//
// The request/response types here are the single source of truth for the
// wire format; the server package encodes exactly these structs.
package api
