// Package wifi adapts the two supported WiFi managers behind one interface.
//
// Embedded images ship with either NetworkManager (declarative, profile
// based, driven via nmcli) or bare wpa_supplicant (flat network list, driven
// via wpa_cli). Detect inspects the system once at startup; the resulting
// Backend hides every manager difference from the mode controller, including
// the release/reclaim operations that only exist for NetworkManager.
//
// # Shell-out boundary
//
// Every external invocation goes through Runner, which bounds it with an
// explicit timeout and converts failures into typed errors:
//
//   - UnavailableError: the tool is not installed
//   - TimeoutError: the bounded timeout was exceeded
//   - CommandError: nonzero exit, raw output attached
//
// Callers above this package never see raw exit codes. All errors are
// non-fatal by contract; the mode controller maps any of them to "assume
// disconnected", failing toward AP fallback rather than staying dark.
//
// # Usage
//
//	runner := wifi.NewExecRunner(logger)
//	kind := wifi.Detect(ctx, runner, "wlan0", logger)
//	backend, err := wifi.NewBackend(kind, runner, "wlan0", backupDir, logger)
//	if err != nil {
//	    return err
//	}
//	link, err := backend.CurrentLink(ctx)
package wifi
