package controller

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiguard/internal/accesspoint"
	"github.com/muurk/wifiguard/internal/config"
	"github.com/muurk/wifiguard/internal/forceflag"
	"github.com/muurk/wifiguard/internal/logging"
	"github.com/muurk/wifiguard/internal/wifi"
)

// commandQueueSize bounds pending external requests. The queue exists so the
// HTTP handlers never touch controller state directly; they enqueue and the
// tick loop, the single writer, executes.
const commandQueueSize = 8

// APDriver is the slice of the access point driver the controller needs.
type APDriver interface {
	Start(ctx context.Context, cfg accesspoint.Config) error
	Stop(ctx context.Context) error
	IsRunning(ctx context.Context) bool
}

type commandKind int

const (
	commandConnect commandKind = iota
	commandReconnect
)

type command struct {
	kind       commandKind
	ssid       string
	passphrase string
}

// Controller is the mode state machine. It decides when the device acts as a
// WiFi client and when it hosts its own access point, and drives the backend
// adapter and AP driver accordingly.
//
// All state mutation happens on the tick loop. External actors (HTTP
// handlers, the CLI via the API) either enqueue a command or raise the force
// flag; both are picked up on the next tick. Status() is the only concurrent
// read path and returns a snapshot.
type Controller struct {
	cfg     *config.Config
	backend wifi.Backend
	ap      APDriver
	flag    *forceflag.Flag
	logger  *zap.Logger

	// now and sleep are injected so tests can drive the hysteresis clock
	// and skip the settle wait.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	commands chan command
	wake     chan struct{}

	onChange func(Status)

	mu             sync.RWMutex
	state          State
	since          time.Time
	degraded       bool
	link           wifi.LinkStatus
	disconnectedAt time.Time

	// disabled records which networks had autoconnect on before AP mode,
	// so the round trip back to client restores exactly those.
	disabled []string
}

// New creates a controller. Call Init before the first Tick.
func New(cfg *config.Config, backend wifi.Backend, ap APDriver, flag *forceflag.Flag, logger *zap.Logger) *Controller {
	return &Controller{
		cfg:     cfg,
		backend: backend,
		ap:      ap,
		flag:    flag,
		logger:  logger,
		now:     time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		},
		commands: make(chan command, commandQueueSize),
		wake:     make(chan struct{}, 1),
	}
}

// OnChange registers a callback invoked (from the tick loop) after every
// state transition. Set before Run; used by the server to push events.
func (c *Controller) OnChange(fn func(Status)) {
	c.onChange = fn
}

// Init samples the link once and seeds the initial state. A pending force
// flag is honored by the first Tick, not here.
func (c *Controller) Init(ctx context.Context) {
	link, err := c.backend.CurrentLink(ctx)
	if err != nil {
		c.logger.Warn("initial link sample failed, assuming disconnected", zap.Error(err))
	}
	c.mu.Lock()
	c.link = link
	c.since = c.now()
	if link.Connected {
		c.state = StateClientConnected
	} else {
		c.state = StateClientDisconnected
		c.disconnectedAt = c.now()
	}
	c.mu.Unlock()

	c.logger.Info("mode controller initialized",
		zap.String("state", c.State().String()),
		zap.String("manager", c.backend.Kind().String()),
		zap.String("interface", c.cfg.Interface),
	)
}

// Run executes the tick loop until ctx is cancelled. The poll cadence depends
// on the current state; enqueued commands and force requests wake the loop
// early so they are not delayed by a full interval.
func (c *Controller) Run(ctx context.Context) {
	for {
		c.Tick(ctx)

		timer := time.NewTimer(c.PollInterval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-c.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Tick advances the state machine by one step. Exported for tests; Run calls
// it on every wakeup.
func (c *Controller) Tick(ctx context.Context) {
	if c.drainCommands(ctx) {
		return
	}

	// The force flag preempts everything, including an active AP (where
	// honoring it is a no-op re-entry). Consumed only after the transition
	// has been committed, so a crash in between re-triggers on restart.
	if c.flag.Requested() {
		c.logger.Info("force-AP flag detected", zap.String("path", c.flag.Path()))
		c.enterAP(ctx, "force flag")
		if err := c.flag.Consume(); err != nil {
			c.logger.Error("failed to consume force-AP flag", zap.Error(err))
		}
		return
	}

	switch c.State() {
	case StateClientConnected:
		c.tickClient(ctx)
	case StateClientDisconnected:
		c.tickDisconnected(ctx)
	case StateAPStarting:
		c.startAP(ctx)
	case StateAPActive:
		c.tickAP(ctx)
	case StateAPStopping:
		// Transient within exitAP; if observed here a previous exit was
		// interrupted, so finish the return to client.
		c.settleIntoClient(ctx)
	}
}

// PollInterval returns the wait before the next tick for the current state.
func (c *Controller) PollInterval() time.Duration {
	switch c.State() {
	case StateAPActive:
		return c.cfg.APScanInterval()
	case StateAPStarting:
		// Retry cadence while AP start keeps failing.
		return c.cfg.PollInterval()
	default:
		return c.cfg.PollInterval()
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns a snapshot for the status API.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		State:    c.state,
		Degraded: c.degraded,
		Since:    c.since,
	}
	switch c.state {
	case StateAPActive:
		st.SSID = c.cfg.AP.SSID
		st.IPAddress = c.cfg.GatewayIP()
	case StateClientConnected:
		st.SSID = c.link.SSID
		st.IPAddress = c.link.IPAddress
	}
	return st
}

// APModeActive reports whether the interface is held (or being acquired) for
// hosting. The server refuses manager-level scans while this is true.
func (c *Controller) APModeActive() bool {
	return c.State().apMode()
}

// Connect enqueues a request to add (or update) a configured network and
// reassociate, switching out of AP mode if necessary. Returns an error only
// if the controller is too busy to accept the request.
func (c *Controller) Connect(ssid, passphrase string) error {
	select {
	case c.commands <- command{kind: commandConnect, ssid: ssid, passphrase: passphrase}:
		c.wakeLoop()
		return nil
	default:
		return fmt.Errorf("controller busy, connect request for %q rejected", ssid)
	}
}

// RequestForceAP raises the force-AP flag and wakes the loop. The flag file
// is the protocol: external scripts that create the file directly get exactly
// the same behavior, minus the early wakeup.
func (c *Controller) RequestForceAP() error {
	if err := c.flag.Create(); err != nil {
		return err
	}
	c.wakeLoop()
	return nil
}

// Shutdown tears down a hosted access point and returns the interface to
// client management so the device is reachable again after the daemon exits.
func (c *Controller) Shutdown(ctx context.Context) {
	if !c.State().apMode() {
		return
	}
	c.logger.Info("shutting down with access point active, restoring client mode")
	if err := c.ap.Stop(ctx); err != nil {
		c.logger.Error("failed to stop access point on shutdown", zap.Error(err))
	}
	c.restoreClientStack(ctx)
}

func (c *Controller) wakeLoop() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) drainCommands(ctx context.Context) bool {
	select {
	case cmd := <-c.commands:
		c.execute(ctx, cmd)
		return true
	default:
		return false
	}
}

func (c *Controller) execute(ctx context.Context, cmd command) {
	switch cmd.kind {
	case commandConnect:
		c.logger.Info("connect requested", zap.String("ssid", cmd.ssid))
		if err := c.backend.AddNetwork(ctx, cmd.ssid, cmd.passphrase); err != nil {
			c.logger.Error("failed to add network",
				zap.String("ssid", cmd.ssid),
				zap.Error(err),
			)
			return
		}
		if c.State().apMode() {
			c.exitAP(ctx, "connect request for "+cmd.ssid)
			return
		}
		if err := c.backend.TriggerReconnect(ctx); err != nil {
			c.logger.Warn("reconnect after adding network failed", zap.Error(err))
		}
		c.tickClient(ctx)
	case commandReconnect:
		if err := c.backend.TriggerReconnect(ctx); err != nil {
			c.logger.Warn("reconnect request failed", zap.Error(err))
		}
	}
}

func (c *Controller) tickClient(ctx context.Context) {
	link := c.sampleLink(ctx)
	if link.Connected {
		return
	}
	c.mu.Lock()
	c.disconnectedAt = c.now()
	c.mu.Unlock()
	c.setState(StateClientDisconnected, "link lost")
}

func (c *Controller) tickDisconnected(ctx context.Context) {
	link := c.sampleLink(ctx)
	if link.Connected {
		c.setState(StateClientConnected, "link restored")
		return
	}

	c.mu.RLock()
	down := c.now().Sub(c.disconnectedAt)
	c.mu.RUnlock()
	if down < c.cfg.DisconnectThreshold() {
		c.logger.Debug("still disconnected, below threshold",
			zap.Duration("down", down),
			zap.Duration("threshold", c.cfg.DisconnectThreshold()),
		)
		return
	}
	c.enterAP(ctx, fmt.Sprintf("disconnected for %s", down.Round(time.Second)))
}

func (c *Controller) tickAP(ctx context.Context) {
	if !c.ap.IsRunning(ctx) {
		c.logger.Warn("access point daemons died, restarting")
		if err := c.ap.Start(ctx, c.apConfig()); err != nil {
			c.logger.Error("access point restart failed", zap.Error(err))
			c.setDegraded(true)
			c.setState(StateAPStarting, "access point daemons died")
			return
		}
	}

	names := c.knownNetworkNames(ctx)
	if len(names) == 0 {
		return
	}
	ssid, found, err := c.backend.ScanForKnown(ctx, names)
	if err != nil {
		// Scanning while hosting is best-effort; a failed probe means we
		// stay in AP mode until the next interval.
		c.logger.Debug("known-network probe failed", zap.Error(err))
		return
	}
	if !found {
		return
	}
	c.logger.Info("configured network back in range", zap.String("ssid", ssid))
	c.exitAP(ctx, "known network in range: "+ssid)
}

// enterAP commits to AP mode: it snapshots and disables client configuration,
// releases the interface, and starts the access point. Entering while already
// hosting is a cheap no-op.
func (c *Controller) enterAP(ctx context.Context, reason string) {
	if c.State() == StateAPActive && c.ap.IsRunning(ctx) {
		c.logger.Debug("AP mode requested while already active", zap.String("reason", reason))
		return
	}

	switch c.State() {
	case StateAPStarting:
		// Already committed; just retry the start.
	case StateAPActive:
		// Hosting but the daemons are gone. Client configuration was
		// already snapshotted and disabled on the way in, so repeating
		// prepareForAP would clobber the restore list.
		c.setState(StateAPStarting, reason)
	default:
		c.setState(StateAPStarting, reason)
		c.prepareForAP(ctx)
	}
	c.startAP(ctx)
}

// prepareForAP takes the interface away from the client stack. Every step is
// best-effort: a failure here must never strand the device without the AP, so
// failures are logged and the sequence continues.
func (c *Controller) prepareForAP(ctx context.Context) {
	if path, err := c.backend.BackupProfiles(ctx); err != nil {
		c.logger.Warn("network profile backup failed", zap.Error(err))
	} else {
		c.logger.Info("network profiles backed up", zap.String("path", path))
	}

	networks, err := c.backend.ConfiguredNetworks(ctx)
	if err != nil {
		c.logger.Warn("could not list configured networks before AP mode", zap.Error(err))
	}
	var disabled []string
	for _, n := range networks {
		if !n.AutoConnect {
			continue
		}
		if err := c.backend.SetAutoConnect(ctx, n.Name, false); err != nil {
			c.logger.Warn("failed to disable autoconnect",
				zap.String("network", n.Name),
				zap.Error(err),
			)
			continue
		}
		disabled = append(disabled, n.Name)
	}
	c.mu.Lock()
	c.disabled = disabled
	c.mu.Unlock()

	if err := c.backend.Disconnect(ctx); err != nil {
		c.logger.Warn("disconnect before AP mode failed", zap.Error(err))
	}
	if err := c.backend.ReleaseInterface(ctx); err != nil {
		c.logger.Warn("failed to release interface from client management", zap.Error(err))
	}
}

// startAP attempts to bring the access point up: once, with one immediate
// retry. On failure the controller stays parked in StateAPStarting and
// retries on every subsequent tick. It never falls back to client mode on
// its own, because a device with a half-configured interface and no AP is
// unreachable.
func (c *Controller) startAP(ctx context.Context) {
	apCfg := c.apConfig()

	err := c.ap.Start(ctx, apCfg)
	if err != nil {
		c.logger.Error("access point start failed, retrying once", zap.Error(err))
		err = c.ap.Start(ctx, apCfg)
	}
	if err != nil {
		c.logger.Error("access point start failed again, will retry next tick", zap.Error(err))
		c.setDegraded(true)
		return
	}

	c.setDegraded(false)
	c.setState(StateAPActive, "access point up")
}

// exitAP tears down the access point and hands the interface back to the
// client stack. Reclaim failures are logged and the sequence proceeds; the
// next poll cycle judges the outcome by the link state it finds.
func (c *Controller) exitAP(ctx context.Context, reason string) {
	c.setState(StateAPStopping, reason)

	if err := c.ap.Stop(ctx); err != nil {
		c.logger.Error("access point stop failed, continuing teardown", zap.Error(err))
	}
	c.restoreClientStack(ctx)
	c.settleIntoClient(ctx)
}

func (c *Controller) restoreClientStack(ctx context.Context) {
	if err := c.backend.ReclaimInterface(ctx); err != nil {
		c.logger.Warn("failed to reclaim interface for client management", zap.Error(err))
	}

	c.mu.Lock()
	disabled := c.disabled
	c.disabled = nil
	c.mu.Unlock()
	for _, name := range disabled {
		if err := c.backend.SetAutoConnect(ctx, name, true); err != nil {
			c.logger.Warn("failed to re-enable autoconnect",
				zap.String("network", name),
				zap.Error(err),
			)
		}
	}

	if err := c.backend.TriggerReconnect(ctx); err != nil {
		c.logger.Warn("reconnect trigger failed", zap.Error(err))
	}
}

// settleIntoClient waits for the client stack to reassociate, then samples
// the link and lands in the matching client state.
func (c *Controller) settleIntoClient(ctx context.Context) {
	c.sleep(ctx, c.cfg.SettleWait())

	// The degraded indicator only describes AP start retries; it must not
	// survive the return to client mode.
	c.setDegraded(false)

	link := c.sampleLink(ctx)
	if link.Connected {
		c.setState(StateClientConnected, "reassociated after AP teardown")
		return
	}
	c.mu.Lock()
	c.disconnectedAt = c.now()
	c.mu.Unlock()
	c.setState(StateClientDisconnected, "not associated after AP teardown")
}

// knownNetworkNames lists the SSIDs worth probing for while hosting. Falls
// back to the autoconnect snapshot taken on the way into AP mode when the
// configuration store cannot be read.
func (c *Controller) knownNetworkNames(ctx context.Context) []string {
	networks, err := c.backend.ConfiguredNetworks(ctx)
	if err != nil {
		c.logger.Debug("could not list configured networks, using pre-AP snapshot", zap.Error(err))
		c.mu.RLock()
		defer c.mu.RUnlock()
		return append([]string(nil), c.disabled...)
	}
	names := make([]string, 0, len(networks))
	for _, n := range networks {
		names = append(names, n.Name)
	}
	return names
}

func (c *Controller) sampleLink(ctx context.Context) wifi.LinkStatus {
	link, err := c.backend.CurrentLink(ctx)
	if err != nil {
		// Fail toward disconnected: a backend that cannot answer is treated
		// the same as a down link.
		c.logger.Warn("link sample failed, assuming disconnected", zap.Error(err))
		link = wifi.LinkStatus{}
	}
	c.mu.Lock()
	c.link = link
	c.mu.Unlock()
	return link
}

func (c *Controller) apConfig() accesspoint.Config {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "wifiguard"
	}
	return accesspoint.Config{
		Interface:      c.cfg.Interface,
		SSID:           c.cfg.AP.SSID,
		Passphrase:     c.cfg.AP.Passphrase,
		Channel:        c.cfg.AP.Channel,
		GatewayCIDR:    c.cfg.AP.Gateway,
		GatewayIP:      c.cfg.GatewayIP(),
		DHCPRangeStart: c.cfg.AP.DHCPRangeStart,
		DHCPRangeEnd:   c.cfg.AP.DHCPRangeEnd,
		LeaseTime:      c.cfg.AP.LeaseTime,
		Hostname:       hostname,
	}
}

func (c *Controller) setDegraded(degraded bool) {
	c.mu.Lock()
	c.degraded = degraded
	c.mu.Unlock()
}

func (c *Controller) setState(next State, reason string) {
	c.mu.Lock()
	prev := c.state
	if prev == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.since = c.now()
	st := Status{
		State:    next,
		Degraded: c.degraded,
		Since:    c.since,
	}
	switch next {
	case StateAPActive:
		st.SSID = c.cfg.AP.SSID
		st.IPAddress = c.cfg.GatewayIP()
	case StateClientConnected:
		st.SSID = c.link.SSID
		st.IPAddress = c.link.IPAddress
	}
	c.mu.Unlock()

	logging.LogTransition(prev.String(), next.String(), reason)
	if c.onChange != nil {
		c.onChange(st)
	}
}
