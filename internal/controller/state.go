package controller

import "time"

// State is the mode controller's current position in the client/AP graph.
// Exactly one State exists per process, owned and written solely by the
// Controller; everything else observes it through Status snapshots.
type State int

const (
	// StateClientConnected: the interface is associated to a configured
	// network as an ordinary station.
	StateClientConnected State = iota

	// StateClientDisconnected: the link is down and the hysteresis timer
	// is running. The timestamp lives in Controller.disconnectedAt.
	StateClientDisconnected

	// StateAPStarting: the controller has committed to AP mode and is
	// bringing the access point up. The controller parks here while AP
	// start is failing and retries every tick; Status reports Degraded.
	StateAPStarting

	// StateAPActive: the access point is hosting and the controller scans
	// periodically for a known network to return to.
	StateAPActive

	// StateAPStopping: the access point is being torn down and the client
	// stack is being restored.
	StateAPStopping
)

// String returns the wire name of the state, used in the status API.
func (s State) String() string {
	switch s {
	case StateClientConnected:
		return "client-connected"
	case StateClientDisconnected:
		return "client-disconnected"
	case StateAPStarting:
		return "ap-starting"
	case StateAPActive:
		return "ap-active"
	case StateAPStopping:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// apMode reports whether the state has (or is acquiring) exclusive use of
// the interface for hosting, which makes manager-level scans unavailable.
func (s State) apMode() bool {
	return s == StateAPStarting || s == StateAPActive
}

// Status is a read-only snapshot of the controller.
type Status struct {
	// State is the current mode state.
	State State

	// SSID and IPAddress are from the most recent link sample while in
	// client mode, or the hosted network's SSID and gateway address while
	// the access point is active.
	SSID      string
	IPAddress string

	// Degraded is true while AP start is failing and being retried. The
	// status API surfaces this distinctly so an operator is not misled
	// into thinking the access point is serving.
	Degraded bool

	// Since is when the current state was entered.
	Since time.Time
}
