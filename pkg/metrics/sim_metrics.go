// Simulation service metrics
//
// Counters and histograms for the camsim API server: programs
// simulated, moves and issues produced, program-scale distributions
// and Go runtime health.
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	goruntime "runtime"
	"sync"
	"time"
)

// SimMetrics holds the camsim metric set backed by one registry.
type SimMetrics struct {
	// Simulation throughput
	SimulationsTotal *Counter   // by mode: validate, energy, check
	SimDuration      *Histogram // wall-clock seconds per run, by mode
	MovesTotal       *Counter   // by kind: rapid, linear, arc_cw, arc_ccw, dwell
	IssuesTotal      *Counter   // by severity
	FatalPrograms    *Counter

	// Program-scale distributions
	ProgramMoves   *Histogram
	ProgramSeconds *Histogram // estimated execution time
	ProgramEnergy  *Histogram // joules per energy-pass program

	// Service surface
	HTTPRequests  *Counter // by path and status
	WSClients     *Gauge
	ConfigReloads *Counter // by result: ok, failed

	// Go runtime
	Uptime     *Counter
	Goroutines *Gauge
	MemHeap    *Gauge
	MemAlloc   *Gauge
	GCCycles   *Counter

	startTime time.Time
	registry  *Registry
}

// NewSimMetrics creates and registers the full metric set.
func NewSimMetrics() *SimMetrics {
	sm := &SimMetrics{
		startTime: time.Now(),
		registry:  NewRegistry(),
	}

	sm.SimulationsTotal = NewCounter("camsim_simulations_total",
		"Programs simulated, by mode")
	sm.SimDuration = NewHistogram("camsim_simulation_seconds",
		"Wall-clock time per simulation run", DefaultBuckets())
	sm.MovesTotal = NewCounter("camsim_moves_total",
		"Moves produced across all simulations, by kind")
	sm.IssuesTotal = NewCounter("camsim_issues_total",
		"Issues raised across all simulations, by severity")
	sm.FatalPrograms = NewCounter("camsim_fatal_programs_total",
		"Programs that produced at least one fatal issue")

	sm.ProgramMoves = NewHistogram("camsim_program_moves",
		"Resolved moves per simulated program",
		ExponentialBuckets(10, 10, 6))
	sm.ProgramSeconds = NewHistogram("camsim_program_duration_seconds",
		"Estimated machine execution time per program",
		ExponentialBuckets(1, 4, 8))
	sm.ProgramEnergy = NewHistogram("camsim_program_energy_joules",
		"Estimated cutting energy per energy-pass program",
		ExponentialBuckets(1, 10, 7))

	sm.HTTPRequests = NewCounter("camsim_http_requests_total",
		"API requests served, by path and status")
	sm.WSClients = NewGauge("camsim_ws_clients",
		"Connected websocket clients")
	sm.ConfigReloads = NewCounter("camsim_config_reloads_total",
		"Profile file reloads, by result")

	sm.Uptime = NewCounter("camsim_uptime_seconds_total",
		"Service uptime in seconds")
	sm.Goroutines = NewGauge("camsim_go_goroutines",
		"Active goroutines")
	sm.MemHeap = NewGauge("camsim_go_memory_heap_bytes",
		"Go heap memory in use")
	sm.MemAlloc = NewGauge("camsim_go_memory_alloc_bytes",
		"Go total memory allocated")
	sm.GCCycles = NewCounter("camsim_go_gc_cycles_total",
		"Completed garbage collection cycles")

	sm.registerAll()
	return sm
}

func (sm *SimMetrics) registerAll() {
	all := []Metric{
		sm.SimulationsTotal, sm.SimDuration, sm.MovesTotal,
		sm.IssuesTotal, sm.FatalPrograms,
		sm.ProgramMoves, sm.ProgramSeconds, sm.ProgramEnergy,
		sm.HTTPRequests, sm.WSClients, sm.ConfigReloads,
		sm.Uptime, sm.Goroutines, sm.MemHeap, sm.MemAlloc, sm.GCCycles,
	}
	for _, m := range all {
		sm.registry.MustRegister(m)
	}
}

// ObserveSimulation records one completed run.
func (sm *SimMetrics) ObserveSimulation(mode string, elapsed time.Duration) {
	sm.SimulationsTotal.Inc(Labels{"mode": mode})
	sm.SimDuration.Observe(Labels{"mode": mode}, elapsed.Seconds())
}

// AddMoves records moves of one kind produced by a run.
func (sm *SimMetrics) AddMoves(kind string, n int) {
	if n > 0 {
		sm.MovesTotal.Add(Labels{"kind": kind}, uint64(n))
	}
}

// RecordIssue records one issue by severity.
func (sm *SimMetrics) RecordIssue(severity string) {
	sm.IssuesTotal.Inc(Labels{"severity": severity})
}

// RecordFatalProgram counts a program rejected with a fatal issue.
func (sm *SimMetrics) RecordFatalProgram() {
	sm.FatalPrograms.Inc(nil)
}

// ObserveProgram records the size and estimated duration of a run.
func (sm *SimMetrics) ObserveProgram(moves int, seconds float64) {
	sm.ProgramMoves.Observe(nil, float64(moves))
	sm.ProgramSeconds.Observe(nil, seconds)
}

// ObserveEnergy records the total energy of an energy-pass run.
func (sm *SimMetrics) ObserveEnergy(joules float64) {
	sm.ProgramEnergy.Observe(nil, joules)
}

// RecordHTTPRequest counts one served API request.
func (sm *SimMetrics) RecordHTTPRequest(path string, status int) {
	sm.HTTPRequests.Inc(Labels{"path": path, "status": statusLabel(status)})
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// ClientConnected tracks a websocket client attaching.
func (sm *SimMetrics) ClientConnected() {
	sm.WSClients.Inc(nil)
}

// ClientDisconnected tracks a websocket client detaching.
func (sm *SimMetrics) ClientDisconnected() {
	sm.WSClients.Dec(nil)
}

// RecordConfigReload counts one profile reload attempt.
func (sm *SimMetrics) RecordConfigReload(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	sm.ConfigReloads.Inc(Labels{"result": result})
}

// UpdateSystemMetrics refreshes the Go runtime gauges.
func (sm *SimMetrics) UpdateSystemMetrics() {
	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)

	sm.Goroutines.Set(nil, float64(goruntime.NumGoroutine()))
	sm.MemHeap.Set(nil, float64(m.HeapAlloc))
	sm.MemAlloc.Set(nil, float64(m.Alloc))
	sm.GCCycles.Add(nil, uint64(m.NumGC)-sm.GCCycles.Get(nil))
	sm.Uptime.Add(nil, uint64(time.Since(sm.startTime).Seconds())-sm.Uptime.Get(nil))
}

// Gather refreshes runtime gauges and renders all metrics.
func (sm *SimMetrics) Gather() string {
	sm.UpdateSystemMetrics()
	return sm.registry.Gather()
}

// Registry exposes the backing registry.
func (sm *SimMetrics) Registry() *Registry {
	return sm.registry
}

var (
	globalMetrics     *SimMetrics
	globalMetricsOnce sync.Once
)

// GlobalMetrics returns the process-wide metric set, created on first
// use.
func GlobalMetrics() *SimMetrics {
	globalMetricsOnce.Do(func() {
		globalMetrics = NewSimMetrics()
	})
	return globalMetrics
}
