package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/wifiguard/internal/api"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.statusResponse(s.ctrl.Status()))
}

func (s *Server) handleNetworks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// A manager-level scan would yank the radio out from under hostapd, so
	// it is refused outright while the access point holds the interface.
	if s.ctrl.APModeActive() {
		writeError(w, http.StatusServiceUnavailable,
			"scanning unavailable while access point mode is active")
		return
	}

	networks, err := s.scanner.VisibleNetworks(r.Context())
	if err != nil {
		s.logger.Error("network scan failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "network scan failed: "+err.Error())
		return
	}

	resp := api.NetworksResponse{Networks: make([]api.NetworkInfo, 0, len(networks))}
	for _, n := range networks {
		resp.Networks = append(resp.Networks, api.NetworkInfo{
			SSID:     n.SSID,
			Signal:   n.Signal,
			Security: n.Security,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req api.ConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SSID == "" {
		writeError(w, http.StatusBadRequest, "ssid is required")
		return
	}
	if req.Password != "" && (len(req.Password) < 8 || len(req.Password) > 63) {
		writeError(w, http.StatusBadRequest, "password must be 8-63 characters, or empty for an open network")
		return
	}

	if err := s.ctrl.Connect(req.SSID, req.Password); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	s.logger.Info("connect request accepted", zap.String("ssid", req.SSID))
	writeJSON(w, http.StatusAccepted, api.AcceptedResponse{
		Accepted: true,
		Message:  "connecting to " + req.SSID,
	})
}

func (s *Server) handleForceAP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := s.ctrl.RequestForceAP(); err != nil {
		s.logger.Error("force-AP request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("force-AP request accepted")
	writeJSON(w, http.StatusAccepted, api.AcceptedResponse{
		Accepted: true,
		Message:  "switching to access point mode",
	})
}
