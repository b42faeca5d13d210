package config

import "time"

// Manager override values accepted in the configuration file. An empty string
// means the WiFi manager is auto-detected at startup.
const (
	ManagerAuto           = ""
	ManagerNetworkManager = "networkmanager"
	ManagerWPASupplicant  = "wpa_supplicant"
)

// Config is the daemon configuration, loaded from a YAML file.
// All polling and hysteresis values are configurable rather than hard-coded;
// the defaults are documented starting points, not load-tested optima.
type Config struct {
	// Interface is the wireless interface the daemon manages (e.g., "wlan0").
	// The daemon manages exactly one interface.
	Interface string `yaml:"interface"`

	// Manager optionally overrides WiFi manager auto-detection.
	// Valid values: "" (auto), "networkmanager", "wpa_supplicant".
	Manager string `yaml:"manager,omitempty"`

	// LogLevel sets the daemon log level (debug, info, warn, error).
	// Empty means silent unless WIFIGUARD_LOG_LEVEL is set.
	LogLevel string `yaml:"log_level,omitempty"`

	Poll   PollConfig   `yaml:"poll"`
	AP     APConfig     `yaml:"ap"`
	Server ServerConfig `yaml:"server"`
	Paths  PathsConfig  `yaml:"paths"`
}

// PollConfig holds the polling and hysteresis policy, in seconds.
type PollConfig struct {
	// IntervalSeconds is how often link state is sampled while in client mode.
	IntervalSeconds int `yaml:"interval_seconds"`

	// DisconnectThresholdSeconds is how long the link must stay down before
	// the daemon falls back to access point mode. A single missed poll must
	// not flap the interface into AP mode.
	DisconnectThresholdSeconds int `yaml:"disconnect_threshold_seconds"`

	// APScanIntervalSeconds is how often the daemon scans for a known
	// network while the access point is active.
	APScanIntervalSeconds int `yaml:"ap_scan_interval_seconds"`

	// SettleSeconds is how long to wait for the client stack to reassociate
	// after leaving AP mode, before re-sampling the link.
	SettleSeconds int `yaml:"settle_seconds"`
}

// APConfig describes the hosted access point.
// These values are read when AP mode is entered and are not mutable while
// the access point is active.
type APConfig struct {
	// SSID is the network name the device advertises.
	SSID string `yaml:"ssid"`

	// Passphrase is the WPA2-PSK passphrase. Empty means an open network.
	Passphrase string `yaml:"passphrase,omitempty"`

	// Channel is the 2.4GHz channel to beacon on (1-14).
	Channel int `yaml:"channel"`

	// Gateway is the device's own address on the hosted subnet, in CIDR
	// notation (e.g., "10.41.0.1/24").
	Gateway string `yaml:"gateway"`

	// DHCPRangeStart and DHCPRangeEnd bound the lease pool handed to
	// clients that join the hosted network. Both must fall inside the
	// gateway subnet.
	DHCPRangeStart string `yaml:"dhcp_range_start"`
	DHCPRangeEnd   string `yaml:"dhcp_range_end"`

	// LeaseTime is the DHCP lease duration in dnsmasq syntax (e.g., "12h").
	LeaseTime string `yaml:"lease_time"`
}

// ServerConfig describes the daemon's HTTP API.
type ServerConfig struct {
	// Address is the listen address (empty = all interfaces).
	Address string `yaml:"address,omitempty"`

	// Port is the API port. The configuration UI is reachable at
	// http://<gateway-address>:<port>/ while the access point is active.
	Port int `yaml:"port"`

	// MDNS enables zeroconf advertisement of the API so operator tools can
	// find the daemon without knowing its address.
	MDNS bool `yaml:"mdns"`
}

// PathsConfig holds filesystem paths used by the daemon.
type PathsConfig struct {
	// ForceFlag is the path of the force-AP flag file. It must live in a
	// directory that survives reboots - not a tmpfs location that is
	// cleared at boot.
	ForceFlag string `yaml:"force_flag"`

	// BackupDir is where timestamped network profile backups are written
	// before client configuration is ever modified.
	BackupDir string `yaml:"backup_dir"`

	// HostapdConf is where the generated hostapd configuration is written.
	HostapdConf string `yaml:"hostapd_conf"`

	// DnsmasqConf is where the generated dnsmasq configuration is written.
	DnsmasqConf string `yaml:"dnsmasq_conf"`
}

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		Interface: "wlan0",
		Manager:   ManagerAuto,
		Poll: PollConfig{
			IntervalSeconds:            30,
			DisconnectThresholdSeconds: 120,
			APScanIntervalSeconds:      60,
			SettleSeconds:              5,
		},
		AP: APConfig{
			SSID:           "wifiguard",
			Channel:        6,
			Gateway:        "10.41.0.1/24",
			DHCPRangeStart: "10.41.0.50",
			DHCPRangeEnd:   "10.41.0.150",
			LeaseTime:      "12h",
		},
		Server: ServerConfig{
			Port: 8080,
			MDNS: true,
		},
		Paths: PathsConfig{
			ForceFlag:   "/var/lib/wifiguard/force-ap",
			BackupDir:   "/var/lib/wifiguard/backups",
			HostapdConf: "/etc/hostapd/hostapd.conf",
			DnsmasqConf: "/etc/dnsmasq.d/wifiguard.conf",
		},
	}
}

// PollInterval returns the client-mode poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalSeconds) * time.Second
}

// DisconnectThreshold returns the disconnect hysteresis threshold as a duration.
func (c *Config) DisconnectThreshold() time.Duration {
	return time.Duration(c.Poll.DisconnectThresholdSeconds) * time.Second
}

// APScanInterval returns the AP-mode scan interval as a duration.
func (c *Config) APScanInterval() time.Duration {
	return time.Duration(c.Poll.APScanIntervalSeconds) * time.Second
}

// SettleWait returns the post-reconnect settle wait as a duration.
func (c *Config) SettleWait() time.Duration {
	return time.Duration(c.Poll.SettleSeconds) * time.Second
}
