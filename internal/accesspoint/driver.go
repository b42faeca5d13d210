package accesspoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/muurk/wifiguard/internal/wifi"
)

// Helper daemon unit names. Both daemons ship with the device image; the
// driver only ever generates their configuration and starts/stops the units.
const (
	hostapdUnit = "hostapd"
	dnsmasqUnit = "dnsmasq"
)

// Config describes the access point materialized by Start. It is derived
// from persisted configuration at the moment AP mode is entered and is not
// mutable while the access point is active.
type Config struct {
	// Interface is the wireless interface that hosts the network.
	Interface string

	// SSID is the advertised network name.
	SSID string

	// Passphrase is the WPA2-PSK passphrase; empty means open network.
	Passphrase string

	// Channel is the 2.4GHz channel.
	Channel int

	// GatewayCIDR is the device's own address with prefix (e.g. "10.41.0.1/24"),
	// assigned to the interface before the daemons start.
	GatewayCIDR string

	// GatewayIP is the address part of GatewayCIDR, used in the dnsmasq
	// host mapping.
	GatewayIP string

	// DHCPRangeStart and DHCPRangeEnd bound the lease pool.
	DHCPRangeStart string
	DHCPRangeEnd   string

	// LeaseTime is the DHCP lease duration in dnsmasq syntax.
	LeaseTime string

	// Hostname is the device's hostname, mapped to the gateway address so
	// clients on the hosted network resolve it.
	Hostname string
}

// StartError indicates the access point could not be brought up.
// Step names the stage that failed (config, address, hostapd, dnsmasq).
type StartError struct {
	Step string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("failed to start access point (%s): %v", e.Step, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// StopError indicates one of the helper daemons could not be stopped.
type StopError struct {
	Unit string
	Err  error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("failed to stop access point daemon %s: %v", e.Unit, e.Err)
}

func (e *StopError) Unwrap() error {
	return e.Err
}

// Driver materializes and supervises the hosted access point: it writes the
// hostapd and dnsmasq configuration, assigns the gateway address, and starts
// and stops both daemons through the init system.
//
// Start and Stop are idempotent. The daemons are expected to be running if
// and only if the mode controller holds the interface in AP mode.
type Driver struct {
	runner      wifi.Runner
	logger      *zap.Logger
	hostapdConf string
	dnsmasqConf string

	mu      sync.Mutex
	started bool
}

// New creates a driver that writes daemon configuration to the given paths.
func New(runner wifi.Runner, hostapdConf, dnsmasqConf string, logger *zap.Logger) *Driver {
	return &Driver{
		runner:      runner,
		logger:      logger,
		hostapdConf: hostapdConf,
		dnsmasqConf: dnsmasqConf,
	}
}

// Start brings up the access point. Calling Start while the access point is
// already running is a no-op success; calling it after the daemons have died
// regenerates configuration and restarts them.
func (d *Driver) Start(ctx context.Context, cfg Config) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started && d.unitsActive(ctx) {
		d.logger.Debug("access point already running", zap.String("ssid", cfg.SSID))
		return nil
	}

	if err := d.writeConfigs(cfg); err != nil {
		return &StartError{Step: "config", Err: err}
	}

	if err := d.assignGateway(ctx, cfg); err != nil {
		return &StartError{Step: "address", Err: err}
	}

	if err := d.systemctl(ctx, "start", hostapdUnit); err != nil {
		return &StartError{Step: hostapdUnit, Err: err}
	}
	if err := d.systemctl(ctx, "start", dnsmasqUnit); err != nil {
		// Leave hostapd for Stop to clean up; a half-started AP is still
		// torn down through the normal path.
		return &StartError{Step: dnsmasqUnit, Err: err}
	}

	d.started = true
	d.logger.Info("access point started",
		zap.String("ssid", cfg.SSID),
		zap.String("gateway", cfg.GatewayCIDR),
		zap.Bool("secured", cfg.Passphrase != ""),
	)
	return nil
}

// Stop stops both daemons. Network configuration is left for the backend
// adapter to restore. Idempotent: stopping an already-stopped unit succeeds.
func (d *Driver) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	// dnsmasq first so no leases are handed out from a beaconless network.
	for _, unit := range []string{dnsmasqUnit, hostapdUnit} {
		if err := d.systemctl(ctx, "stop", unit); err != nil {
			d.logger.Error("failed to stop access point daemon",
				zap.String("unit", unit),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = &StopError{Unit: unit, Err: err}
			}
		}
	}

	d.started = false
	if firstErr == nil {
		d.logger.Info("access point stopped")
	}
	return firstErr
}

// IsRunning reports whether both helper daemons are active.
func (d *Driver) IsRunning(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unitsActive(ctx)
}

func (d *Driver) unitsActive(ctx context.Context) bool {
	for _, unit := range []string{hostapdUnit, dnsmasqUnit} {
		res, err := d.runner.Run(ctx, wifi.QueryTimeout, "systemctl", "is-active", "--quiet", unit)
		if err != nil || res.ExitCode != 0 {
			return false
		}
	}
	return true
}

func (d *Driver) writeConfigs(cfg Config) error {
	hostapd, err := renderHostapdConf(cfg)
	if err != nil {
		return err
	}
	dnsmasq, err := renderDnsmasqConf(cfg)
	if err != nil {
		return err
	}

	if err := writeConfFile(d.hostapdConf, hostapd); err != nil {
		return err
	}
	return writeConfFile(d.dnsmasqConf, dnsmasq)
}

func (d *Driver) assignGateway(ctx context.Context, cfg Config) error {
	steps := [][]string{
		{"addr", "replace", cfg.GatewayCIDR, "dev", cfg.Interface},
		{"link", "set", cfg.Interface, "up"},
	}
	for _, args := range steps {
		res, err := d.runner.Run(ctx, wifi.MutateTimeout, "ip", args...)
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return fmt.Errorf("ip %v failed (exit code %d): %s", args, res.ExitCode, res.Output())
		}
	}
	return nil
}

func (d *Driver) systemctl(ctx context.Context, verb, unit string) error {
	res, err := d.runner.Run(ctx, wifi.MutateTimeout, "systemctl", verb, unit)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("systemctl %s %s failed (exit code %d): %s", verb, unit, res.ExitCode, res.Output())
	}
	return nil
}

func writeConfFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
