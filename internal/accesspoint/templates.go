package accesspoint

import (
	"bytes"
	"fmt"
	"text/template"
)

// hostapdTemplate is the beacon/auth daemon configuration. With no
// passphrase the network is open; otherwise WPA2-PSK.
const hostapdTemplate = `# Generated by wifiguard - do not edit, changes are overwritten
interface={{.Interface}}
driver=nl80211
ssid={{.SSID}}
hw_mode=g
channel={{.Channel}}
macaddr_acl=0
auth_algs=1
ignore_broadcast_ssid=0
{{- if .Passphrase}}
wpa=2
wpa_passphrase={{.Passphrase}}
wpa_key_mgmt=WPA-PSK
wpa_pairwise=CCMP
rsn_pairwise=CCMP
{{- end}}
`

// dnsmasqTemplate is the DHCP+DNS daemon configuration. The lease pool is
// scoped to the hosted subnet and the device's own hostname resolves to the
// gateway address so clients can reach the configuration UI by name.
const dnsmasqTemplate = `# Generated by wifiguard - do not edit, changes are overwritten
interface={{.Interface}}
bind-interfaces
domain-needed
bogus-priv
dhcp-range={{.DHCPRangeStart}},{{.DHCPRangeEnd}},{{.LeaseTime}}
address=/{{.Hostname}}/{{.GatewayIP}}
address=/{{.Hostname}}.local/{{.GatewayIP}}
`

// renderHostapdConf renders the hostapd configuration for the given AP config.
func renderHostapdConf(cfg Config) (string, error) {
	return renderTemplate("hostapd", hostapdTemplate, cfg)
}

// renderDnsmasqConf renders the dnsmasq configuration for the given AP config.
func renderDnsmasqConf(cfg Config) (string, error) {
	return renderTemplate("dnsmasq", dnsmasqTemplate, cfg)
}

func renderTemplate(name, tmpl string, cfg Config) (string, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, cfg); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}
