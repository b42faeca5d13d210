package config

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the daemon looks for its configuration file when no
// --config flag is given.
const DefaultPath = "/etc/wifiguard/config.yaml"

// Load reads the configuration file at path and merges it over the defaults.
// If the file does not exist, the defaults are returned unchanged so the
// daemon can run without any configuration file at all.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("interface must not be empty")
	}

	switch c.Manager {
	case ManagerAuto, ManagerNetworkManager, ManagerWPASupplicant:
	default:
		return fmt.Errorf("unknown manager override %q (valid: %q, %q)",
			c.Manager, ManagerNetworkManager, ManagerWPASupplicant)
	}

	if c.Poll.IntervalSeconds <= 0 {
		return fmt.Errorf("poll.interval_seconds must be positive, got %d", c.Poll.IntervalSeconds)
	}
	if c.Poll.DisconnectThresholdSeconds <= 0 {
		return fmt.Errorf("poll.disconnect_threshold_seconds must be positive, got %d", c.Poll.DisconnectThresholdSeconds)
	}
	if c.Poll.APScanIntervalSeconds <= 0 {
		return fmt.Errorf("poll.ap_scan_interval_seconds must be positive, got %d", c.Poll.APScanIntervalSeconds)
	}
	if c.Poll.SettleSeconds < 0 {
		return fmt.Errorf("poll.settle_seconds must not be negative, got %d", c.Poll.SettleSeconds)
	}
	if c.Poll.DisconnectThresholdSeconds < c.Poll.IntervalSeconds {
		return fmt.Errorf("poll.disconnect_threshold_seconds (%d) must be at least poll.interval_seconds (%d)",
			c.Poll.DisconnectThresholdSeconds, c.Poll.IntervalSeconds)
	}

	if c.AP.SSID == "" {
		return fmt.Errorf("ap.ssid must not be empty")
	}
	if len(c.AP.SSID) > 32 {
		return fmt.Errorf("ap.ssid must be at most 32 bytes, got %d", len(c.AP.SSID))
	}
	if c.AP.Passphrase != "" && (len(c.AP.Passphrase) < 8 || len(c.AP.Passphrase) > 63) {
		return fmt.Errorf("ap.passphrase must be 8-63 characters for WPA2-PSK, got %d", len(c.AP.Passphrase))
	}
	if c.AP.Channel < 1 || c.AP.Channel > 14 {
		return fmt.Errorf("ap.channel must be 1-14, got %d", c.AP.Channel)
	}

	gwIP, gwNet, err := net.ParseCIDR(c.AP.Gateway)
	if err != nil {
		return fmt.Errorf("ap.gateway must be CIDR notation (e.g. 10.41.0.1/24): %w", err)
	}
	if gwIP.To4() == nil {
		return fmt.Errorf("ap.gateway must be an IPv4 address, got %s", gwIP)
	}

	rangeStart := net.ParseIP(c.AP.DHCPRangeStart)
	if rangeStart == nil {
		return fmt.Errorf("ap.dhcp_range_start is not a valid IP: %q", c.AP.DHCPRangeStart)
	}
	rangeEnd := net.ParseIP(c.AP.DHCPRangeEnd)
	if rangeEnd == nil {
		return fmt.Errorf("ap.dhcp_range_end is not a valid IP: %q", c.AP.DHCPRangeEnd)
	}
	if !gwNet.Contains(rangeStart) || !gwNet.Contains(rangeEnd) {
		return fmt.Errorf("dhcp range %s-%s must fall inside the gateway subnet %s",
			c.AP.DHCPRangeStart, c.AP.DHCPRangeEnd, gwNet)
	}
	if c.AP.LeaseTime == "" {
		return fmt.Errorf("ap.lease_time must not be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}

	if c.Paths.ForceFlag == "" {
		return fmt.Errorf("paths.force_flag must not be empty")
	}
	if c.Paths.BackupDir == "" {
		return fmt.Errorf("paths.backup_dir must not be empty")
	}
	if c.Paths.HostapdConf == "" {
		return fmt.Errorf("paths.hostapd_conf must not be empty")
	}
	if c.Paths.DnsmasqConf == "" {
		return fmt.Errorf("paths.dnsmasq_conf must not be empty")
	}

	return nil
}

// GatewayIP returns the gateway address without the prefix length.
// Validate must have been called first; on a malformed gateway this returns
// an empty string.
func (c *Config) GatewayIP() string {
	ip, _, err := net.ParseCIDR(c.AP.Gateway)
	if err != nil {
		return ""
	}
	return ip.String()
}
