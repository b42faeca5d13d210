// Package accesspoint materializes and supervises the hosted WiFi access point.
//
// The access point is provided by two helper daemons that ship with the
// device image: hostapd (beaconing and authentication) and dnsmasq (DHCP and
// DNS on the hosted subnet). This package generates their configuration from
// templates, assigns the static gateway address to the interface, and drives
// both daemons through the init system.
//
// Start and Stop are idempotent, so the mode controller can re-enter AP mode
// (e.g. on a force request while already hosting) without duplicate daemons
// or spurious errors. While the access point is active, clients on the
// hosted subnet receive leases from the configured pool and the device's own
// hostname resolves to the gateway address, where the configuration UI is
// served.
package accesspoint
