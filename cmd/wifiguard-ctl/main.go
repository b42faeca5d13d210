// Wifiguard-ctl is the operator utility for a running wifiguard daemon.
//
// It talks to the daemon's HTTP API: inspecting mode status, scanning for
// networks, configuring a network to join, forcing access point mode, and
// watching mode transitions live in a terminal monitor. Daemons can be
// found automatically via mDNS discovery.
//
// Usage:
//
//	wifiguard-ctl [command] [flags]
//
// See 'wifiguard-ctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiguard/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wifiguard-ctl",
	Short: "WiFi fallback daemon control utility",
	Long: `A utility for inspecting and controlling a running wifiguard daemon.

The daemon is addressed with --host and --port. When --host is omitted,
the utility discovers daemons on the local network via mDNS and uses the
first one found. While a device is hosting its access point, join that
network and the daemon is reachable at the gateway address.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifiguard-ctl %s (commit: %s)\n", version.Version, version.Commit)
	},
}
