package wifi

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// NMBackend drives NetworkManager through nmcli.
type NMBackend struct {
	runner    Runner
	iface     string
	backupDir string
	logger    *zap.Logger
}

// NewNMBackend creates a NetworkManager-backed adapter for the interface.
func NewNMBackend(runner Runner, iface, backupDir string, logger *zap.Logger) *NMBackend {
	return &NMBackend{
		runner:    runner,
		iface:     iface,
		backupDir: backupDir,
		logger:    logger,
	}
}

// Kind reports ManagerNetworkManager.
func (b *NMBackend) Kind() ManagerKind {
	return ManagerNetworkManager
}

// CurrentLink samples the device state via nmcli.
func (b *NMBackend) CurrentLink(ctx context.Context) (LinkStatus, error) {
	args := []string{"-t", "-f", "GENERAL.STATE,GENERAL.CONNECTION,IP4.ADDRESS", "device", "show", b.iface}
	res, err := b.runner.Run(ctx, QueryTimeout, "nmcli", args...)
	if err != nil {
		return LinkStatus{}, err
	}
	if res.ExitCode != 0 {
		return LinkStatus{}, commandError("nmcli", args, res)
	}

	var status LinkStatus
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		switch {
		case key == "GENERAL.STATE":
			// Value looks like "100 (connected)".
			status.Connected = strings.Contains(value, "(connected)")
		case key == "GENERAL.CONNECTION":
			status.SSID = value
		case strings.HasPrefix(key, "IP4.ADDRESS"):
			// Value looks like "192.168.1.7/24"; keep the address only.
			if addr, _, ok := strings.Cut(value, "/"); ok {
				if status.IPAddress == "" {
					status.IPAddress = addr
				}
			} else if status.IPAddress == "" {
				status.IPAddress = value
			}
		}
	}

	if !status.Connected {
		// A half-configured device can report a stale connection name.
		status.SSID = ""
		status.IPAddress = ""
	}
	return status, nil
}

// ConfiguredNetworks lists wireless profiles and their autoconnect setting.
func (b *NMBackend) ConfiguredNetworks(ctx context.Context) ([]ConfiguredNetwork, error) {
	args := []string{"-t", "-f", "NAME,TYPE,AUTOCONNECT", "connection", "show"}
	res, err := b.runner.Run(ctx, QueryTimeout, "nmcli", args...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, commandError("nmcli", args, res)
	}

	var networks []ConfiguredNetwork
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := splitTerse(strings.TrimSpace(line))
		if len(fields) < 3 {
			continue
		}
		if fields[1] != "802-11-wireless" {
			continue
		}
		networks = append(networks, ConfiguredNetwork{
			Name:        fields[0],
			AutoConnect: fields[2] == "yes",
		})
	}
	return networks, nil
}

// SetAutoConnect toggles connection.autoconnect on one profile.
func (b *NMBackend) SetAutoConnect(ctx context.Context, name string, enabled bool) error {
	value := "no"
	if enabled {
		value = "yes"
	}
	args := []string{"connection", "modify", name, "connection.autoconnect", value}
	res, err := b.runner.Run(ctx, MutateTimeout, "nmcli", args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return commandError("nmcli", args, res)
	}
	return nil
}

// Disconnect drops the current association.
func (b *NMBackend) Disconnect(ctx context.Context) error {
	args := []string{"device", "disconnect", b.iface}
	res, err := b.runner.Run(ctx, MutateTimeout, "nmcli", args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return commandError("nmcli", args, res)
	}
	return nil
}

// AddNetwork creates a profile for the SSID, or updates the security settings
// of an existing one. Existing profiles are never deleted.
func (b *NMBackend) AddNetwork(ctx context.Context, ssid, passphrase string) error {
	existing, err := b.ConfiguredNetworks(ctx)
	if err != nil {
		return err
	}

	exists := false
	for _, n := range existing {
		if n.Name == ssid {
			exists = true
			break
		}
	}

	if !exists {
		args := []string{"connection", "add", "type", "wifi", "ifname", b.iface,
			"con-name", ssid, "autoconnect", "yes", "ssid", ssid}
		res, err := b.runner.Run(ctx, MutateTimeout, "nmcli", args...)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return commandError("nmcli", args, res)
		}
	}

	var args []string
	if passphrase == "" {
		args = []string{"connection", "modify", ssid, "remove", "802-11-wireless-security"}
	} else {
		args = []string{"connection", "modify", ssid,
			"wifi-sec.key-mgmt", "wpa-psk", "wifi-sec.psk", passphrase}
	}
	res, err := b.runner.Run(ctx, MutateTimeout, "nmcli", args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return commandError("nmcli", args, res)
	}

	b.logger.Info("configured network saved",
		zap.String("ssid", ssid),
		zap.Bool("secured", passphrase != ""),
	)
	return nil
}

// TriggerReconnect asks NetworkManager to bring the device up on any
// reachable configured network.
func (b *NMBackend) TriggerReconnect(ctx context.Context) error {
	args := []string{"device", "connect", b.iface}
	res, err := b.runner.Run(ctx, MutateTimeout, "nmcli", args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return commandError("nmcli", args, res)
	}
	return nil
}

// VisibleNetworks performs a rescan and lists networks in range.
func (b *NMBackend) VisibleNetworks(ctx context.Context) ([]VisibleNetwork, error) {
	args := []string{"-t", "-f", "SSID,SIGNAL,SECURITY", "device", "wifi", "list",
		"ifname", b.iface, "--rescan", "yes"}
	res, err := b.runner.Run(ctx, ScanTimeout, "nmcli", args...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, commandError("nmcli", args, res)
	}

	var networks []VisibleNetwork
	seen := make(map[string]bool)
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := splitTerse(strings.TrimSpace(line))
		if len(fields) < 3 || fields[0] == "" {
			continue
		}
		if seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		signal, _ := strconv.Atoi(fields[1])
		networks = append(networks, VisibleNetwork{
			SSID:     fields[0],
			Signal:   signal,
			Security: fields[2],
		})
	}
	return networks, nil
}

// ScanForKnown probes for the given SSIDs using a raw interface-level scan.
func (b *NMBackend) ScanForKnown(ctx context.Context, ssids []string) (string, bool, error) {
	return probeForSSIDs(ctx, b.runner, b.iface, ssids)
}

// ReleaseInterface marks the device unmanaged so NetworkManager cannot
// reassociate behind the access point's back.
func (b *NMBackend) ReleaseInterface(ctx context.Context) error {
	return b.setManaged(ctx, false)
}

// ReclaimInterface returns the device to NetworkManager control.
func (b *NMBackend) ReclaimInterface(ctx context.Context) error {
	return b.setManaged(ctx, true)
}

func (b *NMBackend) setManaged(ctx context.Context, managed bool) error {
	value := "no"
	if managed {
		value = "yes"
	}
	args := []string{"device", "set", b.iface, "managed", value}
	res, err := b.runner.Run(ctx, MutateTimeout, "nmcli", args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return commandError("nmcli", args, res)
	}
	return nil
}

// BackupProfiles dumps the profile list to a timestamped file in the backup
// directory. The dump is a manual-restoration aid, not machine-consumed.
func (b *NMBackend) BackupProfiles(ctx context.Context) (string, error) {
	args := []string{"-f", "NAME,UUID,TYPE,AUTOCONNECT", "connection", "show"}
	res, err := b.runner.Run(ctx, QueryTimeout, "nmcli", args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", commandError("nmcli", args, res)
	}
	return writeBackup(b.backupDir, "nm-profiles", res.Stdout)
}

// splitTerse splits a line of `nmcli -t` output on unescaped colons.
// Terse mode escapes literal colons in values as `\:`.
func splitTerse(line string) []string {
	var fields []string
	var current strings.Builder
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())
	return fields
}

var _ Backend = (*NMBackend)(nil)
