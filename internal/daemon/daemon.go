package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wifiguard/internal/accesspoint"
	"github.com/muurk/wifiguard/internal/api"
	"github.com/muurk/wifiguard/internal/config"
	"github.com/muurk/wifiguard/internal/controller"
	"github.com/muurk/wifiguard/internal/forceflag"
	"github.com/muurk/wifiguard/internal/logging"
	"github.com/muurk/wifiguard/internal/server"
	"github.com/muurk/wifiguard/internal/version"
	"github.com/muurk/wifiguard/internal/wifi"
)

// shutdownTimeout bounds the AP teardown performed on exit.
const shutdownTimeout = 30 * time.Second

// Options are the command-line overrides applied on top of the
// configuration file.
type Options struct {
	// ConfigPath is the configuration file; empty uses config.DefaultPath.
	ConfigPath string

	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// Interface overrides the configured interface when non-empty.
	Interface string

	// Manager overrides manager auto-detection when non-empty.
	Manager string
}

// Run starts the daemon and blocks until SIGINT/SIGTERM or a fatal error.
// It owns process lifecycle: everything else runs under the context it
// cancels, and a hosted access point is torn down before returning so the
// device is never left stranded by a clean exit.
func Run(opts Options) error {
	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.Interface != "" {
		cfg.Interface = opts.Interface
	}
	if opts.Manager != "" {
		cfg.Manager = opts.Manager
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := opts.LogLevel
	if level == "" {
		level = cfg.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}
	defer logging.Sync()
	logger := logging.GetLogger()

	logger.Info("wifiguard starting",
		zap.String("version", version.Version),
		zap.String("interface", cfg.Interface),
		zap.String("config", cfgPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := wifi.NewExecRunner(logger)
	kind, err := resolveManager(ctx, cfg, runner, logger)
	if err != nil {
		return err
	}
	backend, err := wifi.NewBackend(kind, runner, cfg.Interface, cfg.Paths.BackupDir, logger)
	if err != nil {
		return err
	}
	logger.Info("wifi manager selected", zap.String("manager", kind.String()))

	apDriver := accesspoint.New(runner, cfg.Paths.HostapdConf, cfg.Paths.DnsmasqConf, logger)
	flag := forceflag.New(cfg.Paths.ForceFlag)
	ctrl := controller.New(cfg, backend, apDriver, flag, logger)
	srv := server.New(cfg, ctrl, backend, kind.String(), logger)
	ctrl.OnChange(srv.NotifyStatus)

	ctrl.Init(ctx)

	if cfg.Server.MDNS {
		mdns, err := advertise(cfg)
		if err != nil {
			// Discovery is a convenience; the daemon is still reachable by
			// address, so this is not fatal.
			logger.Warn("mDNS advertisement failed", zap.Error(err))
		} else {
			defer mdns.Shutdown()
			logger.Info("mDNS advertisement registered", zap.String("service", api.ServiceType))
		}
	}

	ctrlDone := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(ctrlDone)
	}()

	err = srv.Run(ctx)
	stop()
	<-ctrlDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	ctrl.Shutdown(shutdownCtx)

	logger.Info("wifiguard stopped")
	return err
}

// resolveManager applies the configured override or falls back to detection.
func resolveManager(ctx context.Context, cfg *config.Config, runner wifi.Runner, logger *zap.Logger) (wifi.ManagerKind, error) {
	switch cfg.Manager {
	case config.ManagerNetworkManager:
		return wifi.ManagerNetworkManager, nil
	case config.ManagerWPASupplicant:
		return wifi.ManagerWPASupplicant, nil
	case config.ManagerAuto:
		kind := wifi.Detect(ctx, runner, cfg.Interface, logger)
		if kind == wifi.ManagerUnknown {
			return kind, fmt.Errorf("no supported wifi manager detected for %s; install NetworkManager or wpa_supplicant, or set manager in the configuration", cfg.Interface)
		}
		return kind, nil
	default:
		return wifi.ManagerUnknown, fmt.Errorf("unknown manager override %q", cfg.Manager)
	}
}

func advertise(cfg *config.Config) (*zeroconf.Server, error) {
	instance, err := os.Hostname()
	if err != nil || instance == "" {
		instance = "wifiguard"
	}
	txt := []string{"version=" + version.Version}
	return zeroconf.Register(instance, api.ServiceType, api.ServiceDomain, cfg.Server.Port, txt, nil)
}
