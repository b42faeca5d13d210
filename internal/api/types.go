package api

import "time"

// StatusResponse is the payload of GET /api/status and of every event pushed
// on the /api/events stream.
type StatusResponse struct {
	// Mode is the controller state name (client-connected, client-disconnected,
	// ap-starting, ap-active, reconnecting).
	Mode string `json:"mode"`

	// Degraded is true while the access point should be up but its start is
	// failing and being retried. Distinct from Mode: ap-starting with
	// Degraded=false is a normal transition in progress.
	Degraded bool `json:"degraded"`

	// SSID is the associated network in client mode, or the hosted SSID
	// while the access point is active.
	SSID string `json:"ssid,omitempty"`

	// IPAddress is the interface address in client mode, or the gateway
	// address while hosting.
	IPAddress string `json:"ip_address,omitempty"`

	// Since is when the current mode was entered.
	Since time.Time `json:"since"`

	// Interface is the managed wireless interface.
	Interface string `json:"interface"`

	// Manager is the detected WiFi manager (NetworkManager, wpa_supplicant).
	Manager string `json:"manager"`
}

// NetworkInfo describes one network seen in a scan.
type NetworkInfo struct {
	SSID     string `json:"ssid"`
	Signal   int    `json:"signal"`
	Security string `json:"security,omitempty"`
}

// NetworksResponse is the payload of GET /api/networks.
type NetworksResponse struct {
	Networks []NetworkInfo `json:"networks"`
}

// ConnectRequest is the body of POST /api/connect. An empty password means
// an open network.
type ConnectRequest struct {
	SSID     string `json:"ssid"`
	Password string `json:"password,omitempty"`
}

// AcceptedResponse acknowledges an asynchronous request (connect, force-ap).
// The actual mode change happens on the controller's next tick; callers poll
// /api/status or watch /api/events to observe the result.
type AcceptedResponse struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

// ErrorResponse is the body of any non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}
