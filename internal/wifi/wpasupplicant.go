package wifi

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// wpaSupplicantConf is the flat network list the supplicant persists to.
// Used only for the backup artifact; all live operations go through wpa_cli.
const wpaSupplicantConf = "/etc/wpa_supplicant/wpa_supplicant.conf"

// SupplicantBackend drives wpa_supplicant through wpa_cli.
type SupplicantBackend struct {
	runner    Runner
	iface     string
	backupDir string
	logger    *zap.Logger
}

// NewSupplicantBackend creates a wpa_supplicant-backed adapter for the interface.
func NewSupplicantBackend(runner Runner, iface, backupDir string, logger *zap.Logger) *SupplicantBackend {
	return &SupplicantBackend{
		runner:    runner,
		iface:     iface,
		backupDir: backupDir,
		logger:    logger,
	}
}

// Kind reports ManagerWPASupplicant.
func (b *SupplicantBackend) Kind() ManagerKind {
	return ManagerWPASupplicant
}

// CurrentLink samples the supplicant status.
func (b *SupplicantBackend) CurrentLink(ctx context.Context) (LinkStatus, error) {
	args := []string{"-i", b.iface, "status"}
	res, err := b.runner.Run(ctx, QueryTimeout, "wpa_cli", args...)
	if err != nil {
		return LinkStatus{}, err
	}
	if res.ExitCode != 0 {
		return LinkStatus{}, commandError("wpa_cli", args, res)
	}

	var status LinkStatus
	for _, line := range strings.Split(res.Stdout, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "wpa_state":
			status.Connected = value == "COMPLETED"
		case "ssid":
			status.SSID = value
		case "ip_address":
			status.IPAddress = value
		}
	}

	if !status.Connected {
		status.SSID = ""
		status.IPAddress = ""
	}
	return status, nil
}

// ConfiguredNetworks lists the supplicant's flat network list.
// Networks flagged [DISABLED] are reported with AutoConnect=false.
func (b *SupplicantBackend) ConfiguredNetworks(ctx context.Context) ([]ConfiguredNetwork, error) {
	args := []string{"-i", b.iface, "list_networks"}
	res, err := b.runner.Run(ctx, QueryTimeout, "wpa_cli", args...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, commandError("wpa_cli", args, res)
	}

	var networks []ConfiguredNetwork
	lines := strings.Split(res.Stdout, "\n")
	for i, line := range lines {
		if i == 0 {
			// Header: "network id / ssid / bssid / flags"
			continue
		}
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) < 2 || fields[1] == "" {
			continue
		}
		flags := ""
		if len(fields) >= 4 {
			flags = fields[3]
		}
		networks = append(networks, ConfiguredNetwork{
			Name:        fields[1],
			AutoConnect: !strings.Contains(flags, "[DISABLED]"),
		})
	}
	return networks, nil
}

// networkID resolves a network name to the supplicant's numeric id.
func (b *SupplicantBackend) networkID(ctx context.Context, name string) (string, bool, error) {
	args := []string{"-i", b.iface, "list_networks"}
	res, err := b.runner.Run(ctx, QueryTimeout, "wpa_cli", args...)
	if err != nil {
		return "", false, err
	}
	if res.ExitCode != 0 {
		return "", false, commandError("wpa_cli", args, res)
	}

	lines := strings.Split(res.Stdout, "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) >= 2 && fields[1] == name {
			return fields[0], true, nil
		}
	}
	return "", false, nil
}

// expectOK runs a wpa_cli command whose success is reported as "OK" on
// stdout (wpa_cli exits zero even on FAIL).
func (b *SupplicantBackend) expectOK(ctx context.Context, args ...string) error {
	full := append([]string{"-i", b.iface}, args...)
	res, err := b.runner.Run(ctx, MutateTimeout, "wpa_cli", full...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return commandError("wpa_cli", full, res)
	}
	if !strings.Contains(res.Stdout, "OK") {
		return &CommandError{
			Command:  "wpa_cli " + strings.Join(full, " "),
			ExitCode: 0,
			Output:   res.Output(),
		}
	}
	return nil
}

// SetAutoConnect enables or disables a network in the supplicant list and
// persists the change.
func (b *SupplicantBackend) SetAutoConnect(ctx context.Context, name string, enabled bool) error {
	id, found, err := b.networkID(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("network %q not in supplicant network list", name)
	}

	verb := "disable_network"
	if enabled {
		verb = "enable_network"
	}
	if err := b.expectOK(ctx, verb, id); err != nil {
		return err
	}
	return b.expectOK(ctx, "save_config")
}

// Disconnect drops the current association.
func (b *SupplicantBackend) Disconnect(ctx context.Context) error {
	return b.expectOK(ctx, "disconnect")
}

// AddNetwork creates or updates a network in the supplicant list and
// persists it. An empty passphrase configures an open network.
func (b *SupplicantBackend) AddNetwork(ctx context.Context, ssid, passphrase string) error {
	id, found, err := b.networkID(ctx, ssid)
	if err != nil {
		return err
	}

	if !found {
		args := []string{"-i", b.iface, "add_network"}
		res, err := b.runner.Run(ctx, MutateTimeout, "wpa_cli", args...)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return commandError("wpa_cli", args, res)
		}
		id = strings.TrimSpace(res.Stdout)
		if _, convErr := strconv.Atoi(id); convErr != nil {
			return &CommandError{
				Command:  "wpa_cli -i " + b.iface + " add_network",
				ExitCode: 0,
				Output:   res.Output(),
			}
		}
		if err := b.expectOK(ctx, "set_network", id, "ssid", quoted(ssid)); err != nil {
			return err
		}
	}

	if passphrase == "" {
		if err := b.expectOK(ctx, "set_network", id, "key_mgmt", "NONE"); err != nil {
			return err
		}
	} else {
		if err := b.expectOK(ctx, "set_network", id, "psk", quoted(passphrase)); err != nil {
			return err
		}
	}

	if err := b.expectOK(ctx, "enable_network", id); err != nil {
		return err
	}
	if err := b.expectOK(ctx, "save_config"); err != nil {
		return err
	}

	b.logger.Info("configured network saved",
		zap.String("ssid", ssid),
		zap.Bool("secured", passphrase != ""),
	)
	return nil
}

// TriggerReconnect asks the supplicant to reassociate.
func (b *SupplicantBackend) TriggerReconnect(ctx context.Context) error {
	return b.expectOK(ctx, "reconnect")
}

// VisibleNetworks triggers a scan and returns the supplicant's scan results.
// The results may lag one scan cycle behind; the supplicant populates them
// asynchronously after the scan command returns.
func (b *SupplicantBackend) VisibleNetworks(ctx context.Context) ([]VisibleNetwork, error) {
	// Best-effort trigger; results are read regardless.
	_ = b.expectOK(ctx, "scan")

	args := []string{"-i", b.iface, "scan_results"}
	res, err := b.runner.Run(ctx, ScanTimeout, "wpa_cli", args...)
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, commandError("wpa_cli", args, res)
	}

	var networks []VisibleNetwork
	seen := make(map[string]bool)
	lines := strings.Split(res.Stdout, "\n")
	for i, line := range lines {
		if i == 0 {
			// Header: "bssid / frequency / signal level / flags / ssid"
			continue
		}
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) < 5 || fields[4] == "" {
			continue
		}
		if seen[fields[4]] {
			continue
		}
		seen[fields[4]] = true
		signal, _ := strconv.Atoi(fields[2])
		security := ""
		if strings.Contains(fields[3], "WPA") {
			security = "WPA"
		}
		networks = append(networks, VisibleNetwork{
			SSID:     fields[4],
			Signal:   signal,
			Security: security,
		})
	}
	return networks, nil
}

// ScanForKnown probes for the given SSIDs using a raw interface-level scan.
func (b *SupplicantBackend) ScanForKnown(ctx context.Context, ssids []string) (string, bool, error) {
	return probeForSSIDs(ctx, b.runner, b.iface, ssids)
}

// ReleaseInterface is a no-op: the supplicant is stopped around AP mode by
// the init system, not by unmanaging the device.
func (b *SupplicantBackend) ReleaseInterface(ctx context.Context) error {
	return nil
}

// ReclaimInterface is a no-op for the supplicant.
func (b *SupplicantBackend) ReclaimInterface(ctx context.Context) error {
	return nil
}

// BackupProfiles copies the supplicant configuration file to the backup
// directory. If the file is unreadable, the live network list is dumped
// instead.
func (b *SupplicantBackend) BackupProfiles(ctx context.Context) (string, error) {
	data, err := os.ReadFile(wpaSupplicantConf)
	if err == nil {
		return writeBackup(b.backupDir, "wpa-supplicant", string(data))
	}

	args := []string{"-i", b.iface, "list_networks"}
	res, runErr := b.runner.Run(ctx, QueryTimeout, "wpa_cli", args...)
	if runErr != nil {
		return "", runErr
	}
	if res.ExitCode != 0 {
		return "", commandError("wpa_cli", args, res)
	}
	return writeBackup(b.backupDir, "wpa-networks", res.Stdout)
}

// quoted wraps a value in double quotes for wpa_cli set_network, which
// requires string parameters quoted inside the argument.
func quoted(v string) string {
	return `"` + v + `"`
}

var _ Backend = (*SupplicantBackend)(nil)
