// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Package server exposes the simulation engine over HTTP and
// WebSocket. The REST endpoints accept a G-code program and return the
// full report in one round trip; the WebSocket endpoint speaks
// JSON-RPC 2.0 and can stream per-move progress notifications while a
// submitted program runs.
//
// Every request simulates against a fresh engine built from the
// current profile set, so a profile reload never affects a run that is
// already in flight.
package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/config"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/energy"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/errors"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/log"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/metrics"
	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/sim"
)

const (
	serviceName = "camsim"
	apiVersion  = "1.2.0"

	modeValidate = "validate"
	modeEnergy   = "energy"

	formatGCode   = "gcode"
	formatIntents = "intents"

	// maxProgramBytes bounds the request body for program submissions.
	maxProgramBytes = 8 << 20
)

// Options configures a Server. Zero fields fall back to package
// defaults.
type Options struct {
	// Addr is the listen address for Start.
	Addr string

	// Profiles returns the profile set used to build engines. It is
	// called once per request; a hot-reload watcher plugs in directly
	// via (*config.Watcher).Current.
	Profiles func() *config.Config

	Logger  *log.Logger
	Metrics *metrics.SimMetrics

	// HistorySize bounds the in-memory run archive.
	HistorySize int
}

// Server is the camsim API server.
type Server struct {
	addr     string
	profiles func() *config.Config
	log      *log.Logger
	metrics  *metrics.SimMetrics
	history  *History

	httpServer *http.Server
	wsUpgrader websocket.Upgrader

	clientMu sync.RWMutex
	clients  map[int64]*Client
	nextID   int64

	subMu         sync.RWMutex
	subscriptions map[int64]map[string]bool

	running   atomic.Bool
	startTime time.Time
}

// New creates a server. Call Start to begin serving.
func New(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = config.DefaultAddr
	}
	if opts.Profiles == nil {
		def := config.Default()
		opts.Profiles = func() *config.Config { return def }
	}
	if opts.Logger == nil {
		opts.Logger = log.New("server")
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.GlobalMetrics()
	}
	return &Server{
		addr:     opts.Addr,
		profiles: opts.Profiles,
		log:      opts.Logger,
		metrics:  opts.Metrics,
		history:  NewHistory(opts.HistorySize),
		wsUpgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients:       make(map[int64]*Client),
		subscriptions: make(map[int64]map[string]bool),
		startTime:     time.Now(),
	}
}

// Handler returns the complete HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return s.corsMiddleware(s.recoverMiddleware(s.instrumentMiddleware(mux)))
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/simulate", s.handleSimulate)
	mux.HandleFunc("/api/energy", s.handleEnergy)
	mux.HandleFunc("/api/profiles", s.handleProfiles)
	mux.HandleFunc("/api/info", s.handleInfo)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/jsonrpc", s.handleJSONRPC)
	mux.HandleFunc("/websocket", s.handleWebSocket)
	s.history.RegisterEndpoints(mux)
}

// Start listens on the configured address and serves until Stop. The
// call blocks; it returns nil after a clean shutdown.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.ServerStateError("server already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return errors.ServerBindError(s.addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.startTime = time.Now()

	go s.statusBroadcastLoop()

	s.log.Info("listening on %s", ln.Addr())
	if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop closes every client connection and shuts the listener down.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	s.clientMu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clientMu.RUnlock()
	for _, c := range clients {
		c.Close()
	}

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// simRequest is a program submission, either a JSON document or a raw
// G-code body with options in the query string.
type simRequest struct {
	Program    string `json:"program"`
	Machine    string `json:"machine,omitempty"`
	Material   string `json:"material,omitempty"`
	Format     string `json:"format,omitempty"`
	Timeseries bool   `json:"timeseries,omitempty"`
}

func decodeSimRequest(r *http.Request) (simRequest, error) {
	var req simRequest

	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxProgramBytes))
	if err != nil {
		return req, fmt.Errorf("reading request body: %w", err)
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(body, &req); err != nil {
			return req, fmt.Errorf("decoding request: %w", err)
		}
	} else {
		q := r.URL.Query()
		req.Program = string(body)
		req.Machine = q.Get("machine")
		req.Material = q.Get("material")
		req.Format = q.Get("format")
		req.Timeseries = q.Get("timeseries") == "true" || q.Get("timeseries") == "1"
	}

	if strings.TrimSpace(req.Program) == "" {
		return req, fmt.Errorf("empty program")
	}
	return req, nil
}

// runProgram builds a fresh engine from the current profiles and
// simulates one submission.
func (s *Server) runProgram(req simRequest, mode string, onMove func(sim.Move)) (*sim.Report, error) {
	cfg := s.profiles()

	var (
		opts sim.Options
		err  error
	)
	if mode == modeEnergy {
		opts, err = cfg.EnergySimOptions(req.Machine)
	} else {
		opts, err = cfg.SimOptions(req.Machine)
	}
	if err != nil {
		return nil, err
	}
	opts.OnMove = onMove

	var model energy.Model
	if mode == modeEnergy {
		model, err = cfg.EnergyModel(req.Material)
		if err != nil {
			return nil, err
		}
	}

	eng := sim.New(opts)
	started := time.Now()

	var report *sim.Report
	switch req.Format {
	case "", formatGCode:
		report = eng.Run(req.Program)
	case formatIntents:
		intents, err := sim.ParseIntents([]byte(req.Program))
		if err != nil {
			return nil, err
		}
		report = eng.RunIntents(intents)
	default:
		return nil, fmt.Errorf("unknown format %q", req.Format)
	}

	if mode == modeEnergy {
		report.Energize(model, req.Timeseries)
	}

	s.recordRun(mode, req, report, time.Since(started))
	return report, nil
}

// recordRun feeds one finished simulation into metrics and history and
// notifies subscribed websocket clients.
func (s *Server) recordRun(mode string, req simRequest, report *sim.Report, elapsed time.Duration) {
	s.metrics.ObserveSimulation(mode, elapsed)
	s.metrics.ObserveProgram(report.Summary.MoveCount, report.Summary.TotalTime)

	kinds := make(map[string]int)
	for _, mv := range report.Moves {
		kinds[mv.Kind.String()]++
	}
	for kind, n := range kinds {
		s.metrics.AddMoves(kind, n)
	}
	for _, issue := range report.Issues {
		s.metrics.RecordIssue(issue.Severity.String())
	}
	if report.HasFatal() {
		s.metrics.RecordFatalProgram()
	}
	if report.Energy != nil {
		s.metrics.ObserveEnergy(report.Energy.TotalEnergy)
	}

	run := s.history.Add(mode, req.Machine, req.Material, report, elapsed)
	s.broadcast(topicHistory, "notify_history_changed", []any{run})
}

// REST handlers

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeSimRequest(r)
	if err != nil {
		writeJSONError(w, err, http.StatusBadRequest)
		return
	}

	report, err := s.runProgram(req, modeValidate, nil)
	if err != nil {
		writeJSONError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"result": report})
}

func (s *Server) handleEnergy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeSimRequest(r)
	if err != nil {
		writeJSONError(w, err, http.StatusBadRequest)
		return
	}

	report, err := s.runProgram(req, modeEnergy, nil)
	if err != nil {
		writeJSONError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"result": report})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"result": s.profilesResult()})
}

// profilesResult describes the currently loaded profile set.
func (s *Server) profilesResult() map[string]any {
	cfg := s.profiles()
	return map[string]any{
		"machine":          cfg.Machine,
		"material":         cfg.Material,
		"machines":         cfg.MachineNames(),
		"materials":        cfg.MaterialNames(),
		"tool_diameter_mm": cfg.Tool.Diameter,
		"engagement":       cfg.Engagement,
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"result": s.serverInfo()})
}

func (s *Server) serverInfo() map[string]any {
	s.clientMu.RLock()
	clients := len(s.clients)
	s.clientMu.RUnlock()

	return map[string]any{
		"service":           serviceName,
		"version":           apiVersion,
		"uptime_s":          time.Since(s.startTime).Seconds(),
		"websocket_clients": clients,
		"runs_recorded":     s.history.Len(),
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": apiVersion,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	io.WriteString(w, s.metrics.Gather())
}

// handleJSONRPC serves the same methods as the websocket over plain
// POST, for clients that do not hold a connection open.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req jsonRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, rpcError(rpcParseError, "Parse error"))
		return
	}

	result, rpcErr := s.dispatchMethod(req.Method, req.Params, nil)
	if rpcErr != nil {
		writeJSONRPCError(w, req.ID, rpcErr)
		return
	}
	writeJSONRPCResult(w, req.ID, result)
}

// Middleware

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if simErr := errors.RecoverPanic(); simErr != nil {
				s.log.WithError(simErr).Error("panic serving %s", r.URL.Path)
				writeJSONError(w, simErr, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) instrumentMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.metrics.RecordHTTPRequest(metricsPath(r.URL.Path), rec.status)
	})
}

// metricsPath collapses unknown paths into one label value to keep the
// metric cardinality bounded.
func metricsPath(p string) string {
	switch p {
	case "/api/simulate", "/api/energy", "/api/profiles", "/api/info",
		"/api/health", "/api/history", "/api/history/run",
		"/api/history/totals", "/api/history/reset",
		"/metrics", "/jsonrpc", "/websocket":
		return p
	}
	return "other"
}

// statusRecorder captures the response code for request metrics. It
// forwards Hijack so the websocket upgrade still works through the
// middleware chain.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.RuntimeError("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// JSON response helpers

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": err.Error(),
		},
	})
}

func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonRPCResponse{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	})
}

func writeJSONRPCError(w http.ResponseWriter, id any, rpcErr *jsonRPCError) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jsonRPCResponse{
		JSONRPC: "2.0",
		Error:   rpcErr,
		ID:      id,
	})
}
