package wifi

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ManagerKind identifies which WiFi manager owns the interface.
// Detected once at startup and immutable for the process lifetime; the
// daemon configuration allows a manual override for testing.
type ManagerKind int

const (
	// ManagerUnknown means no supported manager was detected.
	ManagerUnknown ManagerKind = iota
	// ManagerNetworkManager is the declarative, profile-based manager (nmcli).
	ManagerNetworkManager
	// ManagerWPASupplicant is the legacy flat-network-list manager (wpa_cli).
	ManagerWPASupplicant
)

// String returns a human-readable name for the manager kind.
func (k ManagerKind) String() string {
	switch k {
	case ManagerNetworkManager:
		return "NetworkManager"
	case ManagerWPASupplicant:
		return "wpa_supplicant"
	default:
		return "unknown"
	}
}

// LinkStatus is a fresh sample of the interface's link state.
// Samples are never cached across polls.
type LinkStatus struct {
	Connected bool
	SSID      string
	IPAddress string
}

// ConfiguredNetwork is a network known to the OS configuration store.
// WifiGuard only reads entries and toggles AutoConnect; it never deletes
// them. Creation is delegated to the AddNetwork operation on behalf of the
// configuration UI.
type ConfiguredNetwork struct {
	// Name is the SSID or connection name, depending on the manager.
	Name string
	// AutoConnect reports whether the OS will reassociate on its own.
	AutoConnect bool
}

// VisibleNetwork is a network seen in a scan.
type VisibleNetwork struct {
	SSID string
	// Signal is the manager's signal figure: percent for NetworkManager,
	// dBm for wpa_supplicant.
	Signal int
	// Security is the manager's security descriptor (e.g. "WPA2").
	Security string
}

// Backend hides the two supported WiFi managers behind one interface.
// The mode controller never branches on manager kind; manager differences
// (including the release/reclaim no-op on wpa_supplicant) are absorbed here.
//
// All operations are bounded by explicit timeouts and return typed errors
// (UnavailableError, TimeoutError, CommandError). None are fatal to the
// process; the mode controller treats any error as "assume disconnected".
type Backend interface {
	// Kind reports which manager this backend drives.
	Kind() ManagerKind

	// CurrentLink samples live link state. It fails toward disconnected:
	// a timeout or tool failure yields an error the caller maps to
	// Connected=false rather than hanging.
	CurrentLink(ctx context.Context) (LinkStatus, error)

	// ConfiguredNetworks lists networks in the OS configuration store.
	ConfiguredNetworks(ctx context.Context) ([]ConfiguredNetwork, error)

	// SetAutoConnect toggles automatic reassociation for one network.
	// Idempotent; errors are best-effort at the caller.
	SetAutoConnect(ctx context.Context, name string, enabled bool) error

	// Disconnect drops the current association without touching profiles.
	Disconnect(ctx context.Context) error

	// AddNetwork creates or updates a configured network. An empty
	// passphrase means an open network.
	AddNetwork(ctx context.Context, ssid, passphrase string) error

	// TriggerReconnect asks the manager to reassociate with whatever
	// configured network it can reach.
	TriggerReconnect(ctx context.Context) error

	// VisibleNetworks performs a manager-level scan. Not usable while the
	// interface hosts an access point; callers guard on mode.
	VisibleNetworks(ctx context.Context) ([]VisibleNetwork, error)

	// ScanForKnown checks whether any of the given SSIDs is in range using
	// a raw interface-level probe that is safe to attempt while the access
	// point is active. On drivers that cannot scan in AP mode the probe
	// fails fast and the network is reported as not in range.
	ScanForKnown(ctx context.Context, ssids []string) (string, bool, error)

	// ReleaseInterface removes the interface from client management before
	// AP mode. No-op for wpa_supplicant.
	ReleaseInterface(ctx context.Context) error

	// ReclaimInterface returns the interface to client management after
	// AP mode. No-op for wpa_supplicant.
	ReclaimInterface(ctx context.Context) error

	// BackupProfiles writes a timestamped, manually-restorable dump of the
	// configured networks to the backup directory and returns its path.
	// Called before client configuration is first modified.
	BackupProfiles(ctx context.Context) (string, error)
}

// NewBackend constructs the backend for the given manager kind.
func NewBackend(kind ManagerKind, runner Runner, iface, backupDir string, logger *zap.Logger) (Backend, error) {
	switch kind {
	case ManagerNetworkManager:
		return NewNMBackend(runner, iface, backupDir, logger), nil
	case ManagerWPASupplicant:
		return NewSupplicantBackend(runner, iface, backupDir, logger), nil
	default:
		return nil, fmt.Errorf("no supported wifi manager detected for interface %s", iface)
	}
}
