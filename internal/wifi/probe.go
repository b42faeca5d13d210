package wifi

import (
	"context"
	"strings"
)

// probeForSSIDs runs a raw `iw` scan on the interface and reports the first
// of the wanted SSIDs found in range.
//
// Unlike the manager-level scans, this probe is attempted while the interface
// hosts an access point. Drivers that cannot scan in AP mode fail the command
// quickly; the caller treats the returned error as "nothing in range" so the
// device simply stays in AP mode rather than flapping or blocking.
func probeForSSIDs(ctx context.Context, runner Runner, iface string, ssids []string) (string, bool, error) {
	if len(ssids) == 0 {
		return "", false, nil
	}

	args := []string{"dev", iface, "scan"}
	res, err := runner.Run(ctx, ProbeTimeout, "iw", args...)
	if err != nil {
		return "", false, err
	}
	if res.ExitCode != 0 {
		return "", false, commandError("iw", args, res)
	}

	visible := parseIWSSIDs(res.Stdout)
	for _, want := range ssids {
		if visible[want] {
			return want, true, nil
		}
	}
	return "", false, nil
}

// parseIWSSIDs extracts the SSID lines from `iw dev <iface> scan` output.
// Lines look like "\tSSID: HomeWifi".
func parseIWSSIDs(output string) map[string]bool {
	ssids := make(map[string]bool)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if name, found := strings.CutPrefix(line, "SSID: "); found && name != "" {
			ssids[name] = true
		}
	}
	return ssids
}
