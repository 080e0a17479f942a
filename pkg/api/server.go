// Package api pkg/api/server.go wires the REST contract of spec.md §6 onto
// a gorilla/mux router, following the teacher's pkg/cloud/api server shape
// (a struct holding a *mux.Router plus its collaborators, CORS middleware,
// one setupRoutes call).
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/fmfleet/txmoncore/pkg/db"
	httpx "github.com/fmfleet/txmoncore/pkg/http"
	"github.com/fmfleet/txmoncore/pkg/mib"
	"github.com/fmfleet/txmoncore/pkg/models"
	"github.com/fmfleet/txmoncore/pkg/snmpsession"
)

// Poller is the subset of scheduler.Scheduler the API drives: lifecycle
// control plus the read paths backing /api/snmp/results and /status.
type Poller interface {
	Start(ctx context.Context) error
	Stop()
	Results(deviceID string, limit int) []models.DeviceResult
	ClearResults()
	DeviceStatus(id string) models.DeviceStatus
}

// counters are the plain-text /metrics gauges (see DESIGN.md for why this
// isn't prometheus/client_golang).
type counters struct {
	pollSuccess int64
	pollFailure int64
	trapsSeen   int64
}

// Server holds every collaborator the REST layer calls into. It is
// constructed once at startup and never mutated except via its own
// goroutine-safe fields.
type Server struct {
	router    *mux.Router
	store     db.Store
	poller    Poller
	sessions  *snmpsession.Manager
	mapper    *mib.Mapper
	assetsDir string

	mu      sync.Mutex
	started bool
	pollCtx context.Context
	pollCancel context.CancelFunc

	ready    atomic.Bool
	counters counters
}

// New constructs a Server and registers its routes. ready starts false;
// call SetReady(true) once storage, scheduler, and trap receiver have all
// completed startup so /healthz reports correctly (spec.md §6).
func New(store db.Store, poller Poller, sessions *snmpsession.Manager, mapper *mib.Mapper, assetsDir string) *Server {
	if assetsDir == "" {
		assetsDir = "attached_assets"
	}

	s := &Server{
		router:    mux.NewRouter(),
		store:     store,
		poller:    poller,
		sessions:  sessions,
		mapper:    mapper,
		assetsDir: assetsDir,
	}

	s.setupRoutes()

	return s
}

// Router returns the configured http.Handler, ready for http.ListenAndServe.
func (s *Server) Router() http.Handler {
	return s.router
}

// SetReady flips the liveness flag /healthz reports.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// RecordPoll updates the /metrics poll counters. Called by the scheduler's
// tick path via a callback wired at startup.
func (s *Server) RecordPoll(success bool) {
	if success {
		atomic.AddInt64(&s.counters.pollSuccess, 1)
	} else {
		atomic.AddInt64(&s.counters.pollFailure, 1)
	}
}

// RecordTrap increments the /metrics trap counter.
func (s *Server) RecordTrap() {
	atomic.AddInt64(&s.counters.trapsSeen, 1)
}

func (s *Server) setupRoutes() {
	s.router.Use(httpx.CommonMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	snmp := s.router.PathPrefix("/api/snmp").Subrouter()

	snmp.HandleFunc("/devices", s.listDevices).Methods(http.MethodGet)
	snmp.HandleFunc("/devices", s.createDevice).Methods(http.MethodPost)
	snmp.HandleFunc("/devices/{id}", s.getDevice).Methods(http.MethodGet)
	snmp.HandleFunc("/devices/{id}", s.updateDevice).Methods(http.MethodPut)
	snmp.HandleFunc("/devices/{id}", s.deleteDevice).Methods(http.MethodDelete)

	snmp.HandleFunc("/test", s.handleTest).Methods(http.MethodPost)
	snmp.HandleFunc("/walk", s.handleWalk).Methods(http.MethodPost)

	snmp.HandleFunc("/start", s.handleStart).Methods(http.MethodPost)
	snmp.HandleFunc("/stop", s.handleStop).Methods(http.MethodPost)
	snmp.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	snmp.HandleFunc("/results", s.getResults).Methods(http.MethodGet)
	snmp.HandleFunc("/results", s.clearResults).Methods(http.MethodDelete)

	snmp.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)

	snmp.HandleFunc("/transmitters", s.listTransmitters).Methods(http.MethodGet)
	snmp.HandleFunc("/transmitters", s.createTransmitter).Methods(http.MethodPost)
	snmp.HandleFunc("/transmitters/{id}", s.getTransmitter).Methods(http.MethodGet)
	snmp.HandleFunc("/transmitters/{id}", s.updateTransmitter).Methods(http.MethodPut)
	snmp.HandleFunc("/transmitters/{id}", s.deleteTransmitter).Methods(http.MethodDelete)
	snmp.HandleFunc("/transmitters/{id}/metrics/latest", s.getLatestMetrics).Methods(http.MethodGet)
	snmp.HandleFunc("/transmitters/{id}/metrics", s.getMetricsRange).Methods(http.MethodGet)

	snmp.HandleFunc("/sites", s.listSites).Methods(http.MethodGet)
	snmp.HandleFunc("/sites", s.createSite).Methods(http.MethodPost)
	snmp.HandleFunc("/sites/{id}", s.getSite).Methods(http.MethodGet)
	snmp.HandleFunc("/sites/{id}", s.updateSite).Methods(http.MethodPut)
	snmp.HandleFunc("/sites/{id}", s.deleteSite).Methods(http.MethodDelete)

	snmp.HandleFunc("/traps/latest", s.getLatestTraps).Methods(http.MethodGet)
	snmp.HandleFunc("/traps/range", s.getTrapsRange).Methods(http.MethodGet)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleMetrics renders plain-text counters, not the Prometheus exposition
// format — see DESIGN.md for why no metrics client library is imported.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	_, _ = w.Write([]byte(
		"poll_success_total " + strconv.FormatInt(atomic.LoadInt64(&s.counters.pollSuccess), 10) + "\n" +
			"poll_failure_total " + strconv.FormatInt(atomic.LoadInt64(&s.counters.pollFailure), 10) + "\n" +
			"traps_received_total " + strconv.FormatInt(atomic.LoadInt64(&s.counters.trapsSeen), 10) + "\n",
	))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	return dec.Decode(dst)
}

// requestContext bounds every handler's downstream store/session calls to
// the inbound request's lifetime, capped at 10 seconds. It derives from the
// request context, so a client that hangs up also cancels those calls.
func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 10*time.Second)
}

