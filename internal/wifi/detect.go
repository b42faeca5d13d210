package wifi

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Detect determines which WiFi manager is actively managing the interface.
// NetworkManager wins if nmcli reports the interface in any managed state;
// otherwise a responding wpa_cli control socket selects the supplicant.
// The result is determined once at startup and cached by the caller for the
// process lifetime.
func Detect(ctx context.Context, runner Runner, iface string, logger *zap.Logger) ManagerKind {
	if nmManagesInterface(ctx, runner, iface, logger) {
		logger.Info("detected WiFi manager", zap.String("manager", ManagerNetworkManager.String()))
		return ManagerNetworkManager
	}

	if supplicantResponds(ctx, runner, iface, logger) {
		logger.Info("detected WiFi manager", zap.String("manager", ManagerWPASupplicant.String()))
		return ManagerWPASupplicant
	}

	logger.Warn("no supported WiFi manager detected",
		zap.String("interface", iface),
	)
	return ManagerUnknown
}

func nmManagesInterface(ctx context.Context, runner Runner, iface string, logger *zap.Logger) bool {
	res, err := runner.Run(ctx, QueryTimeout, "nmcli", "-t", "-f", "DEVICE,STATE", "device", "status")
	if err != nil {
		logger.Debug("nmcli not usable for detection", zap.Error(err))
		return false
	}
	if res.ExitCode != 0 {
		return false
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := splitTerse(strings.TrimSpace(line))
		if len(fields) < 2 || fields[0] != iface {
			continue
		}
		// An unmanaged interface is listed but not under NM control.
		return fields[1] != "unmanaged"
	}
	return false
}

func supplicantResponds(ctx context.Context, runner Runner, iface string, logger *zap.Logger) bool {
	res, err := runner.Run(ctx, QueryTimeout, "wpa_cli", "-i", iface, "status")
	if err != nil {
		logger.Debug("wpa_cli not usable for detection", zap.Error(err))
		return false
	}
	return res.ExitCode == 0
}
