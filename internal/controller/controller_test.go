package controller

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiguard/internal/accesspoint"
	"github.com/muurk/wifiguard/internal/config"
	"github.com/muurk/wifiguard/internal/forceflag"
	"github.com/muurk/wifiguard/internal/wifi"
)

// fakeBackend is an in-memory wifi.Backend the tests script.
type fakeBackend struct {
	mu       sync.Mutex
	link     wifi.LinkStatus
	linkErr  error
	networks []wifi.ConfiguredNetwork
	netErr   error
	visible  []string
	scanErr  error
	released bool
	backups  int
	calls    []string
}

func (f *fakeBackend) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Kind() wifi.ManagerKind { return wifi.ManagerNetworkManager }

func (f *fakeBackend) CurrentLink(ctx context.Context) (wifi.LinkStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("current-link")
	if f.linkErr != nil {
		return wifi.LinkStatus{}, f.linkErr
	}
	return f.link, nil
}

func (f *fakeBackend) ConfiguredNetworks(ctx context.Context) ([]wifi.ConfiguredNetwork, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.netErr != nil {
		return nil, f.netErr
	}
	return append([]wifi.ConfiguredNetwork(nil), f.networks...), nil
}

func (f *fakeBackend) SetAutoConnect(ctx context.Context, name string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if enabled {
		f.record("autoconnect-on " + name)
	} else {
		f.record("autoconnect-off " + name)
	}
	for i := range f.networks {
		if f.networks[i].Name == name {
			f.networks[i].AutoConnect = enabled
		}
	}
	return nil
}

func (f *fakeBackend) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("disconnect")
	f.link = wifi.LinkStatus{}
	return nil
}

func (f *fakeBackend) AddNetwork(ctx context.Context, ssid, passphrase string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("add-network " + ssid)
	f.networks = append(f.networks, wifi.ConfiguredNetwork{Name: ssid, AutoConnect: true})
	return nil
}

func (f *fakeBackend) TriggerReconnect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("reconnect")
	return nil
}

func (f *fakeBackend) VisibleNetworks(ctx context.Context) ([]wifi.VisibleNetwork, error) {
	return nil, nil
}

func (f *fakeBackend) ScanForKnown(ctx context.Context, ssids []string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("scan-for-known")
	if f.scanErr != nil {
		return "", false, f.scanErr
	}
	for _, want := range ssids {
		for _, seen := range f.visible {
			if want == seen {
				return want, true, nil
			}
		}
	}
	return "", false, nil
}

func (f *fakeBackend) ReleaseInterface(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("release")
	f.released = true
	return nil
}

func (f *fakeBackend) ReclaimInterface(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("reclaim")
	f.released = false
	return nil
}

func (f *fakeBackend) BackupProfiles(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("backup")
	f.backups++
	return "/tmp/profiles.backup", nil
}

func (f *fakeBackend) setLink(link wifi.LinkStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.link = link
}

func (f *fakeBackend) autoConnect(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.networks {
		if n.Name == name {
			return n.AutoConnect
		}
	}
	return false
}

func (f *fakeBackend) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// fakeAP is an in-memory access point driver. startErrs is consumed one
// entry per Start call; a nil entry (or an exhausted slice) means success.
type fakeAP struct {
	mu         sync.Mutex
	running    bool
	startErrs  []error
	startCalls int
	stopCalls  int
}

func (f *fakeAP) Start(ctx context.Context, cfg accesspoint.Config) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if len(f.startErrs) > 0 {
		err := f.startErrs[0]
		f.startErrs = f.startErrs[1:]
		if err != nil {
			return err
		}
	}
	f.running = true
	return nil
}

func (f *fakeAP) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	f.running = false
	return nil
}

func (f *fakeAP) IsRunning(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeAP) kill() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeAP) starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestController(t *testing.T, backend *fakeBackend, ap *fakeAP) (*Controller, *fakeClock) {
	t.Helper()
	cfg := config.Default()
	flag := forceflag.New(filepath.Join(t.TempDir(), "force-ap"))
	c := New(cfg, backend, ap, flag, zap.NewNop())

	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c.now = clock.now
	c.sleep = func(ctx context.Context, d time.Duration) {}
	return c, clock
}

func connectedLink() wifi.LinkStatus {
	return wifi.LinkStatus{Connected: true, SSID: "home", IPAddress: "192.168.1.20"}
}

func TestStaysConnectedAcrossPolls(t *testing.T) {
	backend := &fakeBackend{link: connectedLink()}
	ap := &fakeAP{}
	c, clock := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	for i := 0; i < 3; i++ {
		clock.advance(30 * time.Second)
		c.Tick(ctx)
	}

	if got := c.State(); got != StateClientConnected {
		t.Errorf("State() = %v after 3 connected polls, want %v", got, StateClientConnected)
	}
	if ap.starts() != 0 {
		t.Errorf("access point started %d times while connected, want 0", ap.starts())
	}
}

func TestDisconnectHysteresis(t *testing.T) {
	backend := &fakeBackend{}
	ap := &fakeAP{}
	c, clock := newTestController(t, backend, ap)
	ctx := context.Background()

	// Disconnected from the start; Init anchors the hysteresis timer.
	c.Init(ctx)
	if got := c.State(); got != StateClientDisconnected {
		t.Fatalf("State() = %v at startup, want %v", got, StateClientDisconnected)
	}

	// Polls inside the threshold window must not trip AP mode.
	for _, offset := range []time.Duration{30, 60, 90, 119} {
		clock.t = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Add(offset * time.Second)
		c.Tick(ctx)
		if got := c.State(); got != StateClientDisconnected {
			t.Fatalf("State() = %v at t=%ds, want still %v", got, offset, StateClientDisconnected)
		}
	}

	clock.t = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC).Add(121 * time.Second)
	c.Tick(ctx)
	if got := c.State(); got != StateAPActive {
		t.Errorf("State() = %v at t=121s, want %v", got, StateAPActive)
	}
	if !backend.released {
		t.Error("interface was not released before starting the access point")
	}
}

func TestBriefOutageDoesNotTripAP(t *testing.T) {
	backend := &fakeBackend{link: connectedLink()}
	ap := &fakeAP{}
	c, clock := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)

	backend.setLink(wifi.LinkStatus{})
	clock.advance(30 * time.Second)
	c.Tick(ctx)
	if got := c.State(); got != StateClientDisconnected {
		t.Fatalf("State() = %v after one missed poll, want %v", got, StateClientDisconnected)
	}

	backend.setLink(connectedLink())
	clock.advance(30 * time.Second)
	c.Tick(ctx)
	if got := c.State(); got != StateClientConnected {
		t.Errorf("State() = %v after recovery, want %v", got, StateClientConnected)
	}
	if ap.starts() != 0 {
		t.Errorf("access point started %d times during a brief outage, want 0", ap.starts())
	}
}

func TestForceFlagBypassesThreshold(t *testing.T) {
	backend := &fakeBackend{link: connectedLink()}
	ap := &fakeAP{}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if err := c.flag.Create(); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	c.Tick(ctx)

	if got := c.State(); got != StateAPActive {
		t.Errorf("State() = %v after force flag tick, want %v", got, StateAPActive)
	}
	if c.flag.Requested() {
		t.Error("force flag still present after being honored")
	}
}

func TestForceFlagWhileAPActiveIsNoOp(t *testing.T) {
	backend := &fakeBackend{}
	ap := &fakeAP{}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)
	if got := c.State(); got != StateAPActive {
		t.Fatalf("State() = %v, want %v", got, StateAPActive)
	}
	startsBefore := ap.starts()

	// A second force request while hosting must consume the flag without
	// touching the daemons.
	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("second RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)

	if got := c.State(); got != StateAPActive {
		t.Errorf("State() = %v after redundant force, want %v", got, StateAPActive)
	}
	if c.flag.Requested() {
		t.Error("redundant force flag was not consumed")
	}
	if ap.starts() != startsBefore {
		t.Errorf("redundant force restarted the access point (%d starts, was %d)", ap.starts(), startsBefore)
	}
}

func TestAPStartFailsTwiceThenSucceeds(t *testing.T) {
	backend := &fakeBackend{}
	ap := &fakeAP{startErrs: []error{
		errors.New("hostapd refused"),
		errors.New("hostapd refused"),
	}}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}

	// First tick: initial attempt plus the immediate retry, both failing.
	c.Tick(ctx)
	if got := c.State(); got != StateAPStarting {
		t.Fatalf("State() = %v after two failed starts, want parked %v", got, StateAPStarting)
	}
	if !c.Status().Degraded {
		t.Error("Status().Degraded = false while AP start is failing")
	}
	if ap.starts() != 2 {
		t.Fatalf("Start called %d times on first tick, want 2 (attempt + immediate retry)", ap.starts())
	}

	// Parked state keeps retrying; the third attempt succeeds.
	c.Tick(ctx)
	if got := c.State(); got != StateAPActive {
		t.Errorf("State() = %v after successful retry, want %v", got, StateAPActive)
	}
	if c.Status().Degraded {
		t.Error("Status().Degraded = true after the access point came up")
	}
}

func TestConnectWhileAPStartRetryingClearsDegraded(t *testing.T) {
	backend := &fakeBackend{}
	ap := &fakeAP{startErrs: []error{
		errors.New("hostapd refused"),
		errors.New("hostapd refused"),
	}}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)
	if got := c.State(); got != StateAPStarting {
		t.Fatalf("State() = %v after two failed starts, want parked %v", got, StateAPStarting)
	}
	if !c.Status().Degraded {
		t.Fatal("Status().Degraded = false while AP start is failing")
	}

	// An operator connect request abandons the failing AP; the degraded
	// indicator belongs to the AP start and must not follow us back.
	backend.setLink(connectedLink())
	if err := c.Connect("cafe", "espresso1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.Tick(ctx)

	if got := c.State(); got != StateClientConnected {
		t.Fatalf("State() = %v after connect from a failing AP start, want %v", got, StateClientConnected)
	}
	if c.Status().Degraded {
		t.Error("Status().Degraded = true after returning to client mode")
	}
}

func TestRoundTripRestoresClientConfiguration(t *testing.T) {
	backend := &fakeBackend{
		link: connectedLink(),
		networks: []wifi.ConfiguredNetwork{
			{Name: "home", AutoConnect: true},
			{Name: "office", AutoConnect: true},
			{Name: "guest", AutoConnect: false},
		},
	}
	ap := &fakeAP{}
	c, clock := newTestController(t, backend, ap)
	ctx := context.Background()

	var transitions []State
	c.OnChange(func(st Status) { transitions = append(transitions, st.State) })

	c.Init(ctx)
	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)
	if got := c.State(); got != StateAPActive {
		t.Fatalf("State() = %v after force, want %v", got, StateAPActive)
	}

	if backend.backups != 1 {
		t.Errorf("BackupProfiles called %d times entering AP mode, want 1", backend.backups)
	}
	for _, name := range []string{"home", "office"} {
		if backend.autoConnect(name) {
			t.Errorf("autoconnect still enabled for %q while hosting", name)
		}
	}

	// Home comes back in range; the periodic probe should trigger the return.
	backend.mu.Lock()
	backend.visible = []string{"home"}
	backend.link = connectedLink()
	backend.mu.Unlock()
	clock.advance(60 * time.Second)
	c.Tick(ctx)

	if got := c.State(); got != StateClientConnected {
		t.Fatalf("State() = %v after known network returned, want %v", got, StateClientConnected)
	}
	if ap.stopCalls != 1 {
		t.Errorf("Stop called %d times on the way back, want 1", ap.stopCalls)
	}
	if backend.released {
		t.Error("interface not reclaimed for client management")
	}
	for _, name := range []string{"home", "office"} {
		if !backend.autoConnect(name) {
			t.Errorf("autoconnect not restored for %q", name)
		}
	}
	if backend.autoConnect("guest") {
		t.Error("autoconnect enabled for guest, which never had it")
	}
	if backend.callCount("reconnect") == 0 {
		t.Error("no reconnect trigger issued after AP teardown")
	}

	// The machine must pass through the teardown state, never jump
	// ap-active to client directly.
	sawStopping := false
	for i, st := range transitions {
		if st == StateAPStopping {
			sawStopping = true
		}
		if st == StateClientConnected && i > 0 && transitions[i-1] == StateAPActive {
			t.Error("transitioned ap-active directly to client-connected")
		}
	}
	if !sawStopping {
		t.Errorf("transition sequence %v never entered %v", transitions, StateAPStopping)
	}
}

func TestKnownNetworkScanFailureStaysInAP(t *testing.T) {
	backend := &fakeBackend{
		networks: []wifi.ConfiguredNetwork{{Name: "home", AutoConnect: true}},
		scanErr:  errors.New("scan not supported in AP mode"),
	}
	ap := &fakeAP{}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)
	c.Tick(ctx)

	if got := c.State(); got != StateAPActive {
		t.Errorf("State() = %v with failing probe, want to remain %v", got, StateAPActive)
	}
}

func TestAPDaemonDeathTriggersRestart(t *testing.T) {
	backend := &fakeBackend{}
	ap := &fakeAP{}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)
	startsBefore := ap.starts()

	ap.kill()
	c.Tick(ctx)

	if ap.starts() != startsBefore+1 {
		t.Errorf("Start called %d times after daemon death, want %d", ap.starts(), startsBefore+1)
	}
	if got := c.State(); got != StateAPActive {
		t.Errorf("State() = %v after restart, want %v", got, StateAPActive)
	}
}

func TestConnectRequestWhileHostingExitsAP(t *testing.T) {
	backend := &fakeBackend{}
	ap := &fakeAP{}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)

	backend.setLink(connectedLink())
	if err := c.Connect("cafe", "espresso1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.Tick(ctx)

	if backend.callCount("add-network cafe") != 1 {
		t.Error("connect request did not add the network")
	}
	if ap.stopCalls != 1 {
		t.Errorf("Stop called %d times after connect request, want 1", ap.stopCalls)
	}
	if got := c.State(); got != StateClientConnected {
		t.Errorf("State() = %v after connect from AP mode, want %v", got, StateClientConnected)
	}
}

func TestConnectRequestWhileClientReconnects(t *testing.T) {
	backend := &fakeBackend{link: connectedLink()}
	ap := &fakeAP{}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if err := c.Connect("cafe", "espresso1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c.Tick(ctx)

	if backend.callCount("add-network cafe") != 1 {
		t.Error("connect request did not add the network")
	}
	if backend.callCount("reconnect") == 0 {
		t.Error("connect request did not trigger reassociation")
	}
	if ap.starts() != 0 {
		t.Error("connect request in client mode touched the access point")
	}
}

func TestLinkSampleErrorTreatedAsDisconnected(t *testing.T) {
	backend := &fakeBackend{link: connectedLink()}
	ap := &fakeAP{}
	c, clock := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	backend.mu.Lock()
	backend.linkErr = &wifi.TimeoutError{Command: "nmcli device show", Timeout: wifi.QueryTimeout}
	backend.mu.Unlock()

	clock.advance(30 * time.Second)
	c.Tick(ctx)

	if got := c.State(); got != StateClientDisconnected {
		t.Errorf("State() = %v when link sampling times out, want %v", got, StateClientDisconnected)
	}
}

func TestShutdownRestoresClientMode(t *testing.T) {
	backend := &fakeBackend{}
	ap := &fakeAP{}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)

	c.Shutdown(ctx)

	if ap.stopCalls != 1 {
		t.Errorf("Stop called %d times on shutdown, want 1", ap.stopCalls)
	}
	if backend.callCount("reclaim") == 0 {
		t.Error("interface not reclaimed on shutdown")
	}
}

func TestStatusSnapshots(t *testing.T) {
	backend := &fakeBackend{link: connectedLink()}
	ap := &fakeAP{}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	st := c.Status()
	if st.State != StateClientConnected || st.SSID != "home" || st.IPAddress != "192.168.1.20" {
		t.Errorf("client Status() = %+v", st)
	}

	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)
	st = c.Status()
	if st.State != StateAPActive || st.SSID != "wifiguard" || st.IPAddress != "10.41.0.1" {
		t.Errorf("AP Status() = %+v", st)
	}
	if !c.APModeActive() {
		t.Error("APModeActive() = false while hosting")
	}
}

func TestPollIntervalFollowsState(t *testing.T) {
	backend := &fakeBackend{link: connectedLink()}
	ap := &fakeAP{}
	c, _ := newTestController(t, backend, ap)
	ctx := context.Background()

	c.Init(ctx)
	if got := c.PollInterval(); got != 30*time.Second {
		t.Errorf("client PollInterval() = %v, want 30s", got)
	}

	if err := c.RequestForceAP(); err != nil {
		t.Fatalf("RequestForceAP() error = %v", err)
	}
	c.Tick(ctx)
	if got := c.PollInterval(); got != 60*time.Second {
		t.Errorf("AP PollInterval() = %v, want 60s", got)
	}
}
