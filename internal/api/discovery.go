package api

import (
	"context"
	"fmt"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type the daemon advertises.
	ServiceType = "_wifiguard._tcp"

	// ServiceDomain is the mDNS domain (typically "local.").
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for daemon discovery.
	DefaultScanTimeout = 5 * time.Second
)

// Daemon is a daemon instance found via mDNS.
type Daemon struct {
	// Name is the advertised instance name, normally the device hostname.
	Name string

	// Hostname is the mDNS hostname.
	Hostname string

	// IP is the daemon's address, IPv4 preferred.
	IP string

	// Port is the API port.
	Port int

	// DiscoveredAt is when the advertisement was received.
	DiscoveredAt time.Time
}

// Client returns an API client for the discovered daemon.
func (d *Daemon) Client() *Client {
	return NewClient(d.IP, d.Port)
}

// Discover browses the local network for daemons until the timeout expires
// and returns everything found. An empty result is not an error.
func Discover(ctx context.Context, timeout time.Duration) ([]*Daemon, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	daemons := make([]*Daemon, 0)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			if daemon := parseServiceEntry(entry); daemon != nil {
				daemons = append(daemons, daemon)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	<-done

	return daemons, nil
}

// parseServiceEntry converts a zeroconf service entry to a Daemon.
// Returns nil for entries without a usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Daemon {
	var ip string
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" && len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Daemon{
		Name:         entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		DiscoveredAt: time.Now(),
	}
}
