// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

// Run history endpoints. The server archives a summary of every
// simulation it performs so shop dashboards can show recent activity
// without replaying programs.

package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/HanzoRazer/luthiers-toolbox-sub006/pkg/sim"
)

// DefaultHistorySize bounds the archive when Options does not.
const DefaultHistorySize = 200

// RunRecord is one archived simulation outcome.
type RunRecord struct {
	ID        string   `json:"id"`
	StartTime float64  `json:"start_time"`
	Mode      string   `json:"mode"`
	Machine   string   `json:"machine,omitempty"`
	Material  string   `json:"material,omitempty"`
	Moves     int      `json:"moves"`
	Issues    int      `json:"issues"`
	Fatal     bool     `json:"fatal"`
	CycleTime float64  `json:"cycle_time_s"`
	CutLength float64  `json:"cut_length_mm"`
	Energy    *float64 `json:"energy_j,omitempty"`
	WallTime  float64  `json:"wall_time_s"`
}

// Totals aggregates the archived runs.
type Totals struct {
	TotalRuns      int     `json:"total_runs"`
	TotalMoves     int     `json:"total_moves"`
	TotalCycleTime float64 `json:"total_cycle_time_s"`
	TotalCutLength float64 `json:"total_cut_length_mm"`
	TotalEnergy    float64 `json:"total_energy_j"`
	FatalRuns      int     `json:"fatal_runs"`
	LongestCycle   float64 `json:"longest_cycle_s"`
}

// History is a bounded, newest-first archive of simulation runs.
type History struct {
	mu    sync.RWMutex
	limit int
	runs  map[string]*RunRecord
	// Most recent runs first
	order []string
}

// NewHistory creates an archive holding at most limit runs.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return &History{
		limit: limit,
		runs:  make(map[string]*RunRecord),
	}
}

func generateRunID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Add archives one run, evicting the oldest when full.
func (h *History) Add(mode, machine, material string, report *sim.Report, elapsed time.Duration) *RunRecord {
	rec := &RunRecord{
		ID:        generateRunID(),
		StartTime: float64(time.Now().Unix()),
		Mode:      mode,
		Machine:   machine,
		Material:  material,
		Moves:     report.Summary.MoveCount,
		Issues:    report.Summary.IssueCount,
		Fatal:     report.HasFatal(),
		CycleTime: report.Summary.TotalTime,
		CutLength: report.Summary.CutDistance,
		WallTime:  elapsed.Seconds(),
	}
	if report.Energy != nil {
		e := report.Energy.TotalEnergy
		rec.Energy = &e
	}

	h.mu.Lock()
	h.runs[rec.ID] = rec
	h.order = append([]string{rec.ID}, h.order...)
	for len(h.order) > h.limit {
		last := h.order[len(h.order)-1]
		h.order = h.order[:len(h.order)-1]
		delete(h.runs, last)
	}
	h.mu.Unlock()

	return rec
}

// Get returns a run by ID.
func (h *History) Get(id string) (*RunRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.runs[id]
	if !ok {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return rec, nil
}

// List returns runs with optional filtering and pagination. The since
// and before bounds are unix seconds; zero disables them.
func (h *History) List(limit, start int, since, before float64, order string) []*RunRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var matches []*RunRecord
	for _, id := range h.order {
		rec := h.runs[id]
		if rec == nil {
			continue
		}
		if since > 0 && rec.StartTime < since {
			continue
		}
		if before > 0 && rec.StartTime > before {
			continue
		}
		matches = append(matches, rec)
	}

	if order == "asc" {
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].StartTime < matches[j].StartTime
		})
	}
	// Default is desc (most recent first), which is already the order

	if start >= len(matches) {
		matches = nil
	} else if start > 0 {
		matches = matches[start:]
	}

	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}

	return matches
}

// Len returns the number of archived runs.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.runs)
}

// Delete removes a run from the archive.
func (h *History) Delete(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.runs[id]; !ok {
		return fmt.Errorf("run not found: %s", id)
	}
	delete(h.runs, id)

	for i, other := range h.order {
		if other == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetTotals aggregates the archived runs.
func (h *History) GetTotals() *Totals {
	h.mu.RLock()
	defer h.mu.RUnlock()

	totals := &Totals{}
	for _, rec := range h.runs {
		totals.TotalRuns++
		totals.TotalMoves += rec.Moves
		totals.TotalCycleTime += rec.CycleTime
		totals.TotalCutLength += rec.CutLength
		if rec.Energy != nil {
			totals.TotalEnergy += *rec.Energy
		}
		if rec.Fatal {
			totals.FatalRuns++
		}
		if rec.CycleTime > totals.LongestCycle {
			totals.LongestCycle = rec.CycleTime
		}
	}
	return totals
}

// Reset clears the archive.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs = make(map[string]*RunRecord)
	h.order = nil
}

// RegisterEndpoints registers the history HTTP endpoints.
func (h *History) RegisterEndpoints(mux *http.ServeMux) {
	mux.HandleFunc("/api/history", h.handleList)
	mux.HandleFunc("/api/history/run", h.handleRun)
	mux.HandleFunc("/api/history/totals", h.handleTotals)
	mux.HandleFunc("/api/history/reset", h.handleReset)
}

func (h *History) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()

	limit := 50
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		limit = v
	}
	start := 0
	if v, err := strconv.Atoi(q.Get("start")); err == nil {
		start = v
	}
	var since, before float64
	if v, err := strconv.ParseFloat(q.Get("since"), 64); err == nil {
		since = v
	}
	if v, err := strconv.ParseFloat(q.Get("before"), 64); err == nil {
		before = v
	}
	order := q.Get("order")
	if order == "" {
		order = "desc"
	}

	runs := h.List(limit, start, since, before, order)

	writeJSON(w, map[string]any{
		"result": map[string]any{
			"count": h.Len(),
			"runs":  runs,
		},
	})
}

func (h *History) handleRun(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("uid")
	if id == "" {
		writeJSONError(w, fmt.Errorf("missing uid parameter"), http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := h.Get(id)
		if err != nil {
			writeJSONError(w, err, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"result": map[string]any{"run": rec}})

	case http.MethodDelete:
		if err := h.Delete(id); err != nil {
			writeJSONError(w, err, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{
			"result": map[string]any{
				"deleted_runs": []string{id},
			},
		})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *History) handleTotals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"result": map[string]any{
			"totals": h.GetTotals(),
		},
	})
}

func (h *History) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.Reset()

	writeJSON(w, map[string]any{
		"result": map[string]any{
			"totals": h.GetTotals(),
		},
	})
}
