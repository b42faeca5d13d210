// Wifiguard-daemon keeps a single-interface embedded device reachable over
// WiFi. It monitors client connectivity and falls back to hosting a local
// access point (hostapd + dnsmasq) when no configured network is reachable,
// then returns to client mode when a known network reappears.
//
// Usage:
//
//	wifiguard-daemon run [flags]
//
// See 'wifiguard-daemon run --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiguard/internal/config"
	"github.com/muurk/wifiguard/internal/daemon"
	"github.com/muurk/wifiguard/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wifiguard-daemon",
	Short: "WiFi connectivity fallback daemon",
	Long: `A connectivity fallback daemon for embedded devices with one wireless interface.

The daemon polls the WiFi link and, after a sustained disconnect, switches
the interface to hosting a local access point where the device's
configuration UI stays reachable. When a configured network comes back in
range, it tears the access point down and reassociates.

Note: For inspecting and controlling a running daemon, use the separate
'wifiguard-ctl' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// Run command and flags
var (
	configPath string
	logLevel   string
	ifaceName  string
	manager    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the daemon",
	Long: `Start the connectivity fallback daemon.

The daemon reads its configuration file, detects whether the interface is
managed by NetworkManager or wpa_supplicant, and then runs until SIGINT or
SIGTERM. Command-line flags override the corresponding file settings.`,
	Example: `  # Start with the default configuration file
  wifiguard-daemon run

  # Start with a custom configuration and verbose logging
  wifiguard-daemon run --config ./wifiguard.yaml --log-level debug

  # Manage a different interface, skipping manager auto-detection
  wifiguard-daemon run --interface wlan1 --manager wpa_supplicant`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "Path to the configuration file")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the configured level")
	runCmd.Flags().StringVar(&ifaceName, "interface", "", "Wireless interface to manage; overrides the configured interface")
	runCmd.Flags().StringVar(&manager, "manager", "", "WiFi manager override (networkmanager, wpa_supplicant); default auto-detect")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	return daemon.Run(daemon.Options{
		ConfigPath: configPath,
		LogLevel:   logLevel,
		Interface:  ifaceName,
		Manager:    manager,
	})
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifiguard-daemon %s (commit: %s)\n", version.Version, version.Commit)
	},
}
