package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/wifiguard/internal/api"
	"github.com/muurk/wifiguard/internal/tui"
)

// Command flags
var (
	daemonHost   string
	daemonPort   int
	outputFormat string
	scanTimeout  int
	password     string
	openNetwork  bool
)

func init() {
	// Common flags for daemon commands (persistent on root)
	rootCmd.PersistentFlags().StringVar(&daemonHost, "host", "", "Daemon address (skips mDNS discovery)")
	rootCmd.PersistentFlags().IntVar(&daemonPort, "port", api.DefaultPort, "Daemon API port")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format (text, json)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(networksCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(forceAPCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(monitorCmd)
}

// getClient resolves the target daemon, via flag or mDNS discovery.
func getClient() (*api.Client, error) {
	if daemonHost != "" {
		return api.NewClient(daemonHost, daemonPort), nil
	}

	fmt.Fprintln(os.Stderr, "No --host given, discovering daemons via mDNS...")
	daemons, err := api.Discover(context.Background(), api.DefaultScanTimeout)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	if len(daemons) == 0 {
		return nil, fmt.Errorf("no daemons found; specify --host, or join the device's access point and use its gateway address")
	}
	if len(daemons) > 1 {
		fmt.Fprintf(os.Stderr, "Found %d daemons, using %s (%s)\n", len(daemons), daemons[0].Name, daemons[0].IP)
	}
	return daemons[0].Client(), nil
}

// statusCmd shows the daemon's current mode
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's current mode",
	Long: `Display the daemon's current mode, the associated or hosted network,
and how long the mode has been held. A degraded marker means the access
point should be up but its start is failing and being retried.`,
	Example: `  # Status of a known daemon
  wifiguard-ctl status --host 192.168.1.50

  # Status as JSON for scripting
  wifiguard-ctl status --host 192.168.1.50 --format json`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if outputFormat == "json" {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Mode:      %s\n", status.Mode)
	if status.Degraded {
		fmt.Printf("           DEGRADED: access point start is failing and being retried\n")
	}
	fmt.Printf("Interface: %s\n", status.Interface)
	fmt.Printf("Manager:   %s\n", status.Manager)
	if status.SSID != "" {
		fmt.Printf("SSID:      %s\n", status.SSID)
	}
	if status.IPAddress != "" {
		fmt.Printf("Address:   %s\n", status.IPAddress)
	}
	fmt.Printf("Since:     %s (%s ago)\n",
		status.Since.Format(time.RFC3339),
		time.Since(status.Since).Round(time.Second))
	return nil
}

// networksCmd scans for visible networks
var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "Scan for visible WiFi networks",
	Long: `Ask the daemon to scan for visible networks.

Scanning is refused while the device hosts its access point, because a
scan would disrupt hosting; the daemon answers with an explicit error in
that case.`,
	Example: `  # List visible networks
  wifiguard-ctl networks --host 192.168.1.50

  # JSON output
  wifiguard-ctl networks --host 192.168.1.50 --format json`,
	RunE: runNetworks,
}

func runNetworks(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	networks, err := client.Networks()
	if err != nil {
		return fmt.Errorf("failed to scan: %w", err)
	}

	if outputFormat == "json" {
		data, err := json.MarshalIndent(networks, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(networks) == 0 {
		fmt.Println("No networks visible.")
		return nil
	}
	fmt.Printf("Found %d network(s):\n\n", len(networks))
	for _, n := range networks {
		security := n.Security
		if security == "" {
			security = "open"
		}
		fmt.Printf("  %-32s  signal %3d  %s\n", n.SSID, n.Signal, security)
	}
	return nil
}

// connectCmd configures a network and asks the daemon to join it
var connectCmd = &cobra.Command{
	Use:   "connect <ssid>",
	Short: "Configure a network and connect to it",
	Long: `Add (or update) a configured network on the device and ask the daemon
to associate with it. If the device is currently hosting its access point,
the daemon tears the access point down first.

The passphrase is prompted for interactively unless --password or --open
is given. The request is asynchronous: watch 'status' or 'monitor' for
the outcome. Note that connecting from the device's own access point
disconnects you once the access point goes down.`,
	Example: `  # Connect to a WPA2 network, prompting for the passphrase
  wifiguard-ctl connect HomeWifi --host 10.41.0.1

  # Connect to an open network
  wifiguard-ctl connect CafeGuest --open --host 10.41.0.1`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&password, "password", "", "Network passphrase (prompted for if omitted)")
	connectCmd.Flags().BoolVar(&openNetwork, "open", false, "Connect to an open network (no passphrase)")
}

func runConnect(cmd *cobra.Command, args []string) error {
	ssid := args[0]

	if !openNetwork && password == "" {
		fmt.Printf("Passphrase for %s: ", ssid)
		entered, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		password = string(entered)
	}
	if openNetwork {
		password = ""
	}

	client, err := getClient()
	if err != nil {
		return err
	}
	if err := client.Connect(ssid, password); err != nil {
		return fmt.Errorf("connect request failed: %w", err)
	}

	fmt.Printf("Connect request for %q accepted.\n", ssid)
	fmt.Println("The daemon will associate on its next cycle; check 'status' for the outcome.")
	return nil
}

// forceAPCmd forces the daemon into access point mode
var forceAPCmd = &cobra.Command{
	Use:   "force-ap",
	Short: "Force the daemon into access point mode",
	Long: `Raise the daemon's force-AP flag, switching the device to access point
mode immediately regardless of connectivity. The flag survives reboots,
so the request is honored even if the device restarts before acting on it.`,
	Example: `  wifiguard-ctl force-ap --host 192.168.1.50`,
	RunE: runForceAP,
}

func runForceAP(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	if err := client.ForceAP(); err != nil {
		return fmt.Errorf("force-AP request failed: %w", err)
	}

	fmt.Println("Access point mode requested.")
	fmt.Println("Note: if you are connected through the device's client network, you will lose it.")
	return nil
}

// discoverCmd finds daemons on the local network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover daemons on the local network",
	Long: `Discover running daemons via mDNS/DNS-SD and display their addresses.

Devices advertise while the daemon runs, in both client and access point
mode, so discovery works from either side.`,
	Example: `  # Default 5-second scan
  wifiguard-ctl discover

  # Longer scan for slow networks
  wifiguard-ctl discover --timeout 15`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Discovering daemons (timeout: %ds)...\n\n", scanTimeout)

	daemons, err := api.Discover(context.Background(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if len(daemons) == 0 {
		fmt.Println("No daemons found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the device is powered on and the daemon is running")
		fmt.Println("  - Check that mDNS is enabled in the daemon configuration")
		fmt.Println("  - If the device is hosting its access point, join that network first")
		fmt.Println("  - Use --host to address the daemon directly if discovery fails")
		return nil
	}

	fmt.Printf("Found %d daemon(s):\n\n", len(daemons))
	for i, d := range daemons {
		fmt.Printf("%d. %s\n", i+1, d.Name)
		fmt.Printf("   Address: %s:%d\n", d.IP, d.Port)
		if d.Hostname != "" {
			fmt.Printf("   Host:    %s\n", d.Hostname)
		}
		fmt.Println()
	}

	fmt.Println("Use 'wifiguard-ctl status --host <ip>' to inspect a daemon")
	return nil
}

// monitorCmd watches mode transitions live
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch mode transitions live",
	Long: `Open a terminal monitor that subscribes to the daemon's event stream
and renders mode transitions as they happen, including the degraded
state while an access point start is being retried.`,
	Example: `  wifiguard-ctl monitor --host 192.168.1.50`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}
	return tui.Run(client)
}
