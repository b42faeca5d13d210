package wifi

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func supplicantForTest(respond func(string) (Result, error)) (*SupplicantBackend, *fakeRunner) {
	runner := &fakeRunner{respond: respond}
	return NewSupplicantBackend(runner, "wlan0", "/tmp/backups", zap.NewNop()), runner
}

const supplicantNetworkList = "network id / ssid / bssid / flags\n" +
	"0\tHomeWifi\tany\t[CURRENT]\n" +
	"1\tCoffeeShop\tany\t[DISABLED]\n"

func TestSupplicantCurrentLinkConnected(t *testing.T) {
	backend, _ := supplicantForTest(func(cmdline string) (Result, error) {
		return Result{Stdout: "bssid=aa:bb:cc:dd:ee:ff\n" +
			"ssid=HomeWifi\n" +
			"wpa_state=COMPLETED\n" +
			"ip_address=192.168.1.7\n"}, nil
	})

	link, err := backend.CurrentLink(context.Background())
	if err != nil {
		t.Fatalf("CurrentLink() error = %v", err)
	}
	if !link.Connected {
		t.Error("CurrentLink().Connected = false, want true")
	}
	if link.SSID != "HomeWifi" {
		t.Errorf("CurrentLink().SSID = %q, want HomeWifi", link.SSID)
	}
	if link.IPAddress != "192.168.1.7" {
		t.Errorf("CurrentLink().IPAddress = %q, want 192.168.1.7", link.IPAddress)
	}
}

func TestSupplicantCurrentLinkScanning(t *testing.T) {
	backend, _ := supplicantForTest(func(cmdline string) (Result, error) {
		return Result{Stdout: "wpa_state=SCANNING\nssid=HomeWifi\n"}, nil
	})

	link, err := backend.CurrentLink(context.Background())
	if err != nil {
		t.Fatalf("CurrentLink() error = %v", err)
	}
	if link.Connected {
		t.Error("CurrentLink().Connected = true during SCANNING, want false")
	}
	if link.SSID != "" {
		t.Errorf("CurrentLink().SSID = %q, want empty while not associated", link.SSID)
	}
}

func TestSupplicantConfiguredNetworks(t *testing.T) {
	backend, _ := supplicantForTest(func(cmdline string) (Result, error) {
		return Result{Stdout: supplicantNetworkList}, nil
	})

	networks, err := backend.ConfiguredNetworks(context.Background())
	if err != nil {
		t.Fatalf("ConfiguredNetworks() error = %v", err)
	}
	if len(networks) != 2 {
		t.Fatalf("ConfiguredNetworks() returned %d, want 2", len(networks))
	}
	if networks[0].Name != "HomeWifi" || !networks[0].AutoConnect {
		t.Errorf("networks[0] = %+v, want HomeWifi enabled", networks[0])
	}
	if networks[1].Name != "CoffeeShop" || networks[1].AutoConnect {
		t.Errorf("networks[1] = %+v, want CoffeeShop disabled", networks[1])
	}
}

func TestSupplicantSetAutoConnect(t *testing.T) {
	backend, runner := supplicantForTest(func(cmdline string) (Result, error) {
		if strings.Contains(cmdline, "list_networks") {
			return Result{Stdout: supplicantNetworkList}, nil
		}
		return Result{Stdout: "OK\n"}, nil
	})

	if err := backend.SetAutoConnect(context.Background(), "CoffeeShop", true); err != nil {
		t.Fatalf("SetAutoConnect() error = %v", err)
	}

	var enabled, saved bool
	for _, call := range runner.calls {
		if strings.Contains(call, "enable_network 1") {
			enabled = true
		}
		if strings.Contains(call, "save_config") {
			saved = true
		}
	}
	if !enabled {
		t.Error("SetAutoConnect() never enabled network 1")
	}
	if !saved {
		t.Error("SetAutoConnect() never persisted with save_config")
	}
}

func TestSupplicantSetAutoConnectUnknownNetwork(t *testing.T) {
	backend, _ := supplicantForTest(func(cmdline string) (Result, error) {
		return Result{Stdout: supplicantNetworkList}, nil
	})

	if err := backend.SetAutoConnect(context.Background(), "NoSuchNetwork", false); err == nil {
		t.Error("SetAutoConnect() on unknown network should fail")
	}
}

func TestSupplicantExpectOKFail(t *testing.T) {
	backend, _ := supplicantForTest(func(cmdline string) (Result, error) {
		return Result{Stdout: "FAIL\n"}, nil
	})

	err := backend.Disconnect(context.Background())
	if err == nil {
		t.Fatal("Disconnect() with FAIL response should error")
	}
	if _, ok := err.(*CommandError); !ok {
		t.Errorf("error type = %T, want *CommandError", err)
	}
}

func TestSupplicantAddNetworkNew(t *testing.T) {
	backend, runner := supplicantForTest(func(cmdline string) (Result, error) {
		switch {
		case strings.Contains(cmdline, "list_networks"):
			return Result{Stdout: "network id / ssid / bssid / flags\n"}, nil
		case strings.HasSuffix(cmdline, "add_network"):
			return Result{Stdout: "2\n"}, nil
		default:
			return Result{Stdout: "OK\n"}, nil
		}
	})

	if err := backend.AddNetwork(context.Background(), "HomeWifi", "secret123"); err != nil {
		t.Fatalf("AddNetwork() error = %v", err)
	}

	joined := strings.Join(runner.calls, "\n")
	for _, want := range []string{
		`set_network 2 ssid "HomeWifi"`,
		`set_network 2 psk "secret123"`,
		"enable_network 2",
		"save_config",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("AddNetwork() missing command %q in:\n%s", want, joined)
		}
	}
}

func TestSupplicantAddNetworkOpen(t *testing.T) {
	backend, runner := supplicantForTest(func(cmdline string) (Result, error) {
		switch {
		case strings.Contains(cmdline, "list_networks"):
			return Result{Stdout: supplicantNetworkList}, nil
		default:
			return Result{Stdout: "OK\n"}, nil
		}
	})

	if err := backend.AddNetwork(context.Background(), "CoffeeShop", ""); err != nil {
		t.Fatalf("AddNetwork() error = %v", err)
	}

	joined := strings.Join(runner.calls, "\n")
	if !strings.Contains(joined, "set_network 1 key_mgmt NONE") {
		t.Errorf("open network should set key_mgmt NONE, got:\n%s", joined)
	}
	if strings.Contains(joined, "add_network") {
		t.Error("AddNetwork() must not re-add an existing network")
	}
}

func TestSupplicantReleaseReclaimAreNoOps(t *testing.T) {
	backend, runner := supplicantForTest(nil)

	if err := backend.ReleaseInterface(context.Background()); err != nil {
		t.Errorf("ReleaseInterface() error = %v, want nil", err)
	}
	if err := backend.ReclaimInterface(context.Background()); err != nil {
		t.Errorf("ReclaimInterface() error = %v, want nil", err)
	}
	if len(runner.calls) != 0 {
		t.Errorf("release/reclaim ran %d commands, want 0", len(runner.calls))
	}
}

func TestSupplicantVisibleNetworks(t *testing.T) {
	backend, _ := supplicantForTest(func(cmdline string) (Result, error) {
		if strings.Contains(cmdline, "scan_results") {
			return Result{Stdout: "bssid / frequency / signal level / flags / ssid\n" +
				"aa:bb:cc:dd:ee:ff\t2437\t-41\t[WPA2-PSK-CCMP][ESS]\tHomeWifi\n" +
				"11:22:33:44:55:66\t2412\t-70\t[ESS]\tCoffeeShop\n"}, nil
		}
		return Result{Stdout: "OK\n"}, nil
	})

	networks, err := backend.VisibleNetworks(context.Background())
	if err != nil {
		t.Fatalf("VisibleNetworks() error = %v", err)
	}
	if len(networks) != 2 {
		t.Fatalf("VisibleNetworks() returned %d, want 2", len(networks))
	}
	if networks[0].SSID != "HomeWifi" || networks[0].Signal != -41 || networks[0].Security != "WPA" {
		t.Errorf("networks[0] = %+v", networks[0])
	}
	if networks[1].Security != "" {
		t.Errorf("networks[1].Security = %q, want open", networks[1].Security)
	}
}
