package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiguard/internal/api"
	"github.com/muurk/wifiguard/internal/config"
	"github.com/muurk/wifiguard/internal/controller"
	"github.com/muurk/wifiguard/internal/wifi"
)

const (
	// readHeaderTimeout bounds slow clients on the hosted subnet.
	readHeaderTimeout = 5 * time.Second

	// shutdownTimeout is how long Shutdown waits for in-flight requests.
	shutdownTimeout = 5 * time.Second
)

// ModeController is the slice of the mode controller the server needs.
// Requests never mutate controller state directly; they enqueue work the
// controller's own loop executes.
type ModeController interface {
	Status() controller.Status
	APModeActive() bool
	Connect(ssid, passphrase string) error
	RequestForceAP() error
}

// Scanner performs manager-level network scans. Guarded by the server:
// scans are refused while the interface hosts the access point.
type Scanner interface {
	VisibleNetworks(ctx context.Context) ([]wifi.VisibleNetwork, error)
}

// Server serves the daemon's JSON API. It is the surface the configuration
// UI, the operator CLI, and the monitor TUI all talk to, reachable at the
// gateway address while the access point is active.
type Server struct {
	cfg     *config.Config
	ctrl    ModeController
	scanner Scanner
	manager string
	logger  *zap.Logger
	hub     *eventHub
	httpSrv *http.Server
}

// New creates a server. manager is the detected WiFi manager name, included
// in status responses.
func New(cfg *config.Config, ctrl ModeController, scanner Scanner, manager string, logger *zap.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		ctrl:    ctrl,
		scanner: scanner,
		manager: manager,
		logger:  logger,
		hub:     newEventHub(logger),
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the API routes. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/networks", s.handleNetworks)
	mux.HandleFunc("/api/connect", s.handleConnect)
	mux.HandleFunc("/api/force-ap", s.handleForceAP)
	mux.HandleFunc("/api/events", s.handleEvents)
	return mux
}

// Run serves the API until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening", zap.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return <-errCh
}

// NotifyStatus pushes a controller status change to all event subscribers.
// Wired to the controller's OnChange callback by the daemon.
func (s *Server) NotifyStatus(st controller.Status) {
	s.hub.broadcast(s.statusResponse(st))
}

func (s *Server) statusResponse(st controller.Status) api.StatusResponse {
	return api.StatusResponse{
		Mode:      st.State.String(),
		Degraded:  st.Degraded,
		SSID:      st.SSID,
		IPAddress: st.IPAddress,
		Since:     st.Since,
		Interface: s.cfg.Interface,
		Manager:   s.manager,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
