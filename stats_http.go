package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// StatsServer hosts the read-only JSON stats projection and (when an admin
// token is configured) the /admin/reload route.
type StatsServer struct {
	mgr        *SessionManager
	adminToken string
	hub        *statsWSHub
}

// NewStatsServer wires the router for mgr's stats projection.
func NewStatsServer(mgr *SessionManager, adminToken string) *StatsServer {
	return &StatsServer{
		mgr:        mgr,
		adminToken: adminToken,
		hub:        newStatsWSHub(mgr),
	}
}

// Router builds the mux router serving /, /health, /ws, and /admin/reload.
func (s *StatsServer) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.hub.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/admin/reload", requireAdminBearer(s.adminToken, s.handleReload)).Methods(http.MethodPost)
	return r
}

func (s *StatsServer) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := s.mgr.BuildStatsSnapshot()
	writeJSONResponse(w, http.StatusOK, snap)
}

func (s *StatsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.mgr.BuildHealthSnapshot()
	status := http.StatusOK
	if !h.OK {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, h)
}

// handleReload re-reads the TOML config file and applies the subset of
// fields that are safe to change without rebinding a listener: vardiff
// bounds for newly connecting miners, and (pool mode) credentials used on
// the upstream's next reconnect. Listen addresses, mode, and the admin
// token itself are fixed for the life of the process.
func (s *StatsServer) handleReload(w http.ResponseWriter, r *http.Request) {
	cfg, err := loadConfig(s.mgr.configPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mgr.ReloadVardiffConfig(cfg.Vardiff)
	if s.mgr.mode == modePool && s.mgr.upstream != nil {
		s.mgr.upstream.SetCredentials(cfg.PoolUser, cfg.PoolPass)
	}
	s.mgr.ForceCleanJobBroadcast()

	writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	data, err := fastJSONMarshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
