// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestNewSimMetrics(t *testing.T) {
	sm := NewSimMetrics()

	if sm.SimulationsTotal == nil {
		t.Error("SimulationsTotal should be initialized")
	}
	if sm.SimDuration == nil {
		t.Error("SimDuration should be initialized")
	}
	if sm.MovesTotal == nil {
		t.Error("MovesTotal should be initialized")
	}
	if sm.IssuesTotal == nil {
		t.Error("IssuesTotal should be initialized")
	}
	if sm.ProgramEnergy == nil {
		t.Error("ProgramEnergy should be initialized")
	}
	if sm.WSClients == nil {
		t.Error("WSClients should be initialized")
	}
	if sm.Registry() == nil {
		t.Error("Registry should be initialized")
	}
}

func TestObserveSimulation(t *testing.T) {
	sm := NewSimMetrics()

	sm.ObserveSimulation("validate", 50*time.Millisecond)
	sm.ObserveSimulation("validate", 70*time.Millisecond)
	sm.ObserveSimulation("energy", 10*time.Millisecond)

	if v := sm.SimulationsTotal.Get(Labels{"mode": "validate"}); v != 2 {
		t.Errorf("expected 2 validate runs, got %d", v)
	}
	if v := sm.SimulationsTotal.Get(Labels{"mode": "energy"}); v != 1 {
		t.Errorf("expected 1 energy run, got %d", v)
	}
	if snap := sm.SimDuration.GetSnapshot(Labels{"mode": "validate"}); snap.Count != 2 {
		t.Errorf("expected 2 duration samples, got %d", snap.Count)
	}
}

func TestAddMoves(t *testing.T) {
	sm := NewSimMetrics()

	sm.AddMoves("rapid", 5)
	sm.AddMoves("linear", 12)
	sm.AddMoves("arc_cw", 3)
	sm.AddMoves("dwell", 0) // no-op

	if v := sm.MovesTotal.Get(Labels{"kind": "rapid"}); v != 5 {
		t.Errorf("expected 5 rapids, got %d", v)
	}
	if v := sm.MovesTotal.Get(Labels{"kind": "linear"}); v != 12 {
		t.Errorf("expected 12 linears, got %d", v)
	}
	if v := sm.MovesTotal.Get(Labels{"kind": "dwell"}); v != 0 {
		t.Errorf("expected 0 dwells, got %d", v)
	}
}

func TestRecordIssueAndFatal(t *testing.T) {
	sm := NewSimMetrics()

	sm.RecordIssue("warning")
	sm.RecordIssue("warning")
	sm.RecordIssue("fatal")
	sm.RecordFatalProgram()

	if v := sm.IssuesTotal.Get(Labels{"severity": "warning"}); v != 2 {
		t.Errorf("expected 2 warnings, got %d", v)
	}
	if v := sm.IssuesTotal.Get(Labels{"severity": "fatal"}); v != 1 {
		t.Errorf("expected 1 fatal issue, got %d", v)
	}
	if v := sm.FatalPrograms.Get(nil); v != 1 {
		t.Errorf("expected 1 fatal program, got %d", v)
	}
}

func TestObserveProgramAndEnergy(t *testing.T) {
	sm := NewSimMetrics()

	sm.ObserveProgram(250, 95.0)
	sm.ObserveEnergy(1250.0)

	if snap := sm.ProgramMoves.GetSnapshot(nil); snap.Count != 1 || snap.Sum != 250 {
		t.Errorf("unexpected lines snapshot: %+v", snap)
	}
	if snap := sm.ProgramSeconds.GetSnapshot(nil); snap.Count != 1 || snap.Sum != 95.0 {
		t.Errorf("unexpected seconds snapshot: %+v", snap)
	}
	if snap := sm.ProgramEnergy.GetSnapshot(nil); snap.Sum != 1250.0 {
		t.Errorf("unexpected energy snapshot: %+v", snap)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	sm := NewSimMetrics()

	sm.RecordHTTPRequest("/api/simulate", 200)
	sm.RecordHTTPRequest("/api/simulate", 200)
	sm.RecordHTTPRequest("/api/simulate", 400)
	sm.RecordHTTPRequest("/api/energy", 500)

	if v := sm.HTTPRequests.Get(Labels{"path": "/api/simulate", "status": "2xx"}); v != 2 {
		t.Errorf("expected 2 ok requests, got %d", v)
	}
	if v := sm.HTTPRequests.Get(Labels{"path": "/api/simulate", "status": "4xx"}); v != 1 {
		t.Errorf("expected 1 client error, got %d", v)
	}
	if v := sm.HTTPRequests.Get(Labels{"path": "/api/energy", "status": "5xx"}); v != 1 {
		t.Errorf("expected 1 server error, got %d", v)
	}
}

func TestClientGauge(t *testing.T) {
	sm := NewSimMetrics()

	sm.ClientConnected()
	sm.ClientConnected()
	sm.ClientDisconnected()

	if v := sm.WSClients.Get(nil); v != 1 {
		t.Errorf("expected 1 client, got %f", v)
	}
}

func TestRecordConfigReload(t *testing.T) {
	sm := NewSimMetrics()

	sm.RecordConfigReload(true)
	sm.RecordConfigReload(false)
	sm.RecordConfigReload(true)

	if v := sm.ConfigReloads.Get(Labels{"result": "ok"}); v != 2 {
		t.Errorf("expected 2 ok reloads, got %d", v)
	}
	if v := sm.ConfigReloads.Get(Labels{"result": "failed"}); v != 1 {
		t.Errorf("expected 1 failed reload, got %d", v)
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	sm := NewSimMetrics()
	sm.UpdateSystemMetrics()

	if v := sm.Goroutines.Get(nil); v < 1 {
		t.Errorf("expected at least 1 goroutine, got %f", v)
	}
	if v := sm.MemHeap.Get(nil); v <= 0 {
		t.Errorf("expected positive heap usage, got %f", v)
	}

	// A second update must not double-count cumulative values.
	sm.UpdateSystemMetrics()
	if v := sm.Uptime.Get(nil); v > 1 {
		t.Errorf("uptime accumulated too fast: %d", v)
	}
}

func TestSimMetricsGather(t *testing.T) {
	sm := NewSimMetrics()
	sm.ObserveSimulation("validate", 25*time.Millisecond)
	sm.AddMoves("linear", 4)

	output := sm.Gather()

	for _, name := range []string{
		"camsim_simulations_total",
		"camsim_simulation_seconds",
		"camsim_moves_total",
		"camsim_issues_total",
		"camsim_fatal_programs_total",
		"camsim_program_moves",
		"camsim_program_duration_seconds",
		"camsim_program_energy_joules",
		"camsim_http_requests_total",
		"camsim_ws_clients",
		"camsim_config_reloads_total",
		"camsim_uptime_seconds_total",
		"camsim_go_goroutines",
	} {
		if !strings.Contains(output, "# HELP "+name) {
			t.Errorf("output missing metric %s", name)
		}
	}
	if !strings.Contains(output, `camsim_simulations_total{mode="validate"} 1`) {
		t.Error("missing validate series")
	}
	if !strings.Contains(output, `camsim_moves_total{kind="linear"} 4`) {
		t.Error("missing linear moves series")
	}
}

func TestGlobalMetrics(t *testing.T) {
	m1 := GlobalMetrics()
	m2 := GlobalMetrics()
	if m1 != m2 {
		t.Error("GlobalMetrics should return the same instance")
	}
	if m1 == nil {
		t.Fatal("GlobalMetrics returned nil")
	}
}
