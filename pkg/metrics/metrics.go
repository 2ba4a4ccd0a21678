// Prometheus text-format metrics
//
// Counter, Gauge and Histogram primitives with label support, gathered
// into the Prometheus exposition format for scraping. No client
// library dependency: the simulation service only ever needs to
// render the text format.
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Labels identifies one series of a metric.
type Labels map[string]string

// Key returns a canonical identity for the label set. Two sets with
// the same pairs produce the same key regardless of insertion order.
func (l Labels) Key() string {
	if len(l) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(l[k])
	}
	return sb.String()
}

// String renders the label set in exposition format, sorted.
func (l Labels) String() string {
	if len(l) == 0 {
		return ""
	}
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteString("=\"")
		sb.WriteString(escapeLabel(l[k]))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String()
}

// Clone returns an independent copy of the label set.
func (l Labels) Clone() Labels {
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

// Metric is anything the registry can expose.
type Metric interface {
	Name() string
	Write(sb *strings.Builder)
}

// Counter is a monotonically increasing value, tracked per label set.
type Counter struct {
	name   string
	help   string
	values sync.Map // Labels.Key() -> *counterValue
}

type counterValue struct {
	labels Labels
	value  uint64
}

// NewCounter returns an unregistered counter.
func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

func (c *Counter) Name() string { return c.name }
func (c *Counter) Help() string { return c.help }

// Inc increments the series by 1.
func (c *Counter) Inc(labels Labels) {
	c.Add(labels, 1)
}

// Add increments the series by delta.
func (c *Counter) Add(labels Labels, delta uint64) {
	val, _ := c.values.LoadOrStore(labels.Key(), &counterValue{labels: labels})
	atomic.AddUint64(&val.(*counterValue).value, delta)
}

// Get returns the current value of the series, 0 if never touched.
func (c *Counter) Get(labels Labels) uint64 {
	val, ok := c.values.Load(labels.Key())
	if !ok {
		return 0
	}
	return atomic.LoadUint64(&val.(*counterValue).value)
}

func (c *Counter) Write(sb *strings.Builder) {
	writeHeader(sb, c.name, c.help, "counter")
	c.values.Range(func(_, value any) bool {
		cv := value.(*counterValue)
		sb.WriteString(c.name)
		sb.WriteString(cv.labels.String())
		sb.WriteByte(' ')
		fmt.Fprintf(sb, "%d", atomic.LoadUint64(&cv.value))
		sb.WriteByte('\n')
		return true
	})
}

// Gauge is a value that moves in both directions, tracked per label
// set.
type Gauge struct {
	name   string
	help   string
	values sync.Map // Labels.Key() -> *gaugeValue
}

type gaugeValue struct {
	mu     sync.Mutex
	labels Labels
	value  float64
}

// NewGauge returns an unregistered gauge.
func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Name() string { return g.name }
func (g *Gauge) Help() string { return g.help }

// Set replaces the series value.
func (g *Gauge) Set(labels Labels, value float64) {
	gv := g.series(labels)
	gv.mu.Lock()
	gv.value = value
	gv.mu.Unlock()
}

// Add shifts the series by delta, which may be negative.
func (g *Gauge) Add(labels Labels, delta float64) {
	gv := g.series(labels)
	gv.mu.Lock()
	gv.value += delta
	gv.mu.Unlock()
}

// Inc adds 1 to the series.
func (g *Gauge) Inc(labels Labels) { g.Add(labels, 1) }

// Dec subtracts 1 from the series.
func (g *Gauge) Dec(labels Labels) { g.Add(labels, -1) }

// Get returns the current value of the series, 0 if never touched.
func (g *Gauge) Get(labels Labels) float64 {
	val, ok := g.values.Load(labels.Key())
	if !ok {
		return 0
	}
	gv := val.(*gaugeValue)
	gv.mu.Lock()
	defer gv.mu.Unlock()
	return gv.value
}

func (g *Gauge) series(labels Labels) *gaugeValue {
	val, _ := g.values.LoadOrStore(labels.Key(), &gaugeValue{labels: labels})
	return val.(*gaugeValue)
}

func (g *Gauge) Write(sb *strings.Builder) {
	writeHeader(sb, g.name, g.help, "gauge")
	g.values.Range(func(_, value any) bool {
		gv := value.(*gaugeValue)
		gv.mu.Lock()
		v := gv.value
		gv.mu.Unlock()
		sb.WriteString(g.name)
		sb.WriteString(gv.labels.String())
		sb.WriteByte(' ')
		sb.WriteString(formatFloat(v))
		sb.WriteByte('\n')
		return true
	})
}

// Histogram tracks the distribution of observations in cumulative
// buckets, tracked per label set.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	values  sync.Map // Labels.Key() -> *histogramValue
}

type histogramValue struct {
	mu      sync.Mutex
	labels  Labels
	count   uint64
	sum     float64
	buckets []uint64
}

// NewHistogram returns an unregistered histogram. Bucket bounds are
// sorted and deduplicated.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	sorted := make([]float64, len(buckets))
	copy(sorted, buckets)
	sort.Float64s(sorted)
	dedup := sorted[:0]
	for i, b := range sorted {
		if i == 0 || b != sorted[i-1] {
			dedup = append(dedup, b)
		}
	}
	return &Histogram{name: name, help: help, buckets: dedup}
}

// DefaultBuckets spans request-scale latencies, 5ms to 10s.
func DefaultBuckets() []float64 {
	return []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
}

// LinearBuckets returns count bounds starting at start, width apart.
func LinearBuckets(start, width float64, count int) []float64 {
	buckets := make([]float64, count)
	for i := 0; i < count; i++ {
		buckets[i] = start + float64(i)*width
	}
	return buckets
}

// ExponentialBuckets returns count bounds starting at start, each
// factor times the previous.
func ExponentialBuckets(start, factor float64, count int) []float64 {
	buckets := make([]float64, count)
	for i := 0; i < count; i++ {
		buckets[i] = start
		start *= factor
	}
	return buckets
}

func (h *Histogram) Name() string { return h.name }
func (h *Histogram) Help() string { return h.help }

// Observe records one value in the series.
func (h *Histogram) Observe(labels Labels, value float64) {
	val, _ := h.values.LoadOrStore(labels.Key(), &histogramValue{
		labels:  labels,
		buckets: make([]uint64, len(h.buckets)),
	})
	hv := val.(*histogramValue)
	hv.mu.Lock()
	hv.count++
	hv.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			hv.buckets[i]++
			break
		}
	}
	hv.mu.Unlock()
}

// Timer returns a function that observes the elapsed seconds when
// called.
func (h *Histogram) Timer(labels Labels) func() {
	start := time.Now()
	return func() {
		h.Observe(labels, time.Since(start).Seconds())
	}
}

// Snapshot is a point-in-time view of one histogram series. Buckets
// hold cumulative counts keyed by upper bound.
type Snapshot struct {
	Count   uint64
	Sum     float64
	Buckets map[float64]uint64
}

// GetSnapshot returns the current state of the series.
func (h *Histogram) GetSnapshot(labels Labels) Snapshot {
	val, ok := h.values.Load(labels.Key())
	if !ok {
		return Snapshot{Buckets: map[float64]uint64{}}
	}
	hv := val.(*histogramValue)
	hv.mu.Lock()
	defer hv.mu.Unlock()

	buckets := make(map[float64]uint64, len(h.buckets))
	cumulative := uint64(0)
	for i, bound := range h.buckets {
		cumulative += hv.buckets[i]
		buckets[bound] = cumulative
	}
	return Snapshot{Count: hv.count, Sum: hv.sum, Buckets: buckets}
}

func (h *Histogram) Write(sb *strings.Builder) {
	writeHeader(sb, h.name, h.help, "histogram")
	h.values.Range(func(_, value any) bool {
		hv := value.(*histogramValue)
		hv.mu.Lock()
		count := hv.count
		sum := hv.sum
		bucketCounts := make([]uint64, len(hv.buckets))
		copy(bucketCounts, hv.buckets)
		hv.mu.Unlock()

		cumulative := uint64(0)
		for i, bound := range h.buckets {
			cumulative += bucketCounts[i]
			withLE := hv.labels.Clone()
			withLE["le"] = formatFloat(bound)
			sb.WriteString(h.name)
			sb.WriteString("_bucket")
			sb.WriteString(withLE.String())
			sb.WriteByte(' ')
			fmt.Fprintf(sb, "%d", cumulative)
			sb.WriteByte('\n')
		}
		withInf := hv.labels.Clone()
		withInf["le"] = "+Inf"
		sb.WriteString(h.name)
		sb.WriteString("_bucket")
		sb.WriteString(withInf.String())
		sb.WriteByte(' ')
		fmt.Fprintf(sb, "%d", count)
		sb.WriteByte('\n')

		sb.WriteString(h.name)
		sb.WriteString("_sum")
		sb.WriteString(hv.labels.String())
		sb.WriteByte(' ')
		sb.WriteString(formatFloat(sum))
		sb.WriteByte('\n')

		sb.WriteString(h.name)
		sb.WriteString("_count")
		sb.WriteString(hv.labels.String())
		sb.WriteByte(' ')
		fmt.Fprintf(sb, "%d", count)
		sb.WriteByte('\n')
		return true
	})
}

func writeHeader(sb *strings.Builder, name, help, metricType string) {
	sb.WriteString("# HELP ")
	sb.WriteString(name)
	sb.WriteByte(' ')
	sb.WriteString(help)
	sb.WriteByte('\n')
	sb.WriteString("# TYPE ")
	sb.WriteString(name)
	sb.WriteByte(' ')
	sb.WriteString(metricType)
	sb.WriteByte('\n')
}

// Registry holds registered metrics and renders them in registration
// order, so scrapes are stable.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// Register adds a metric. Registering the same name twice is an
// error.
func (r *Registry) Register(metric Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := metric.Name()
	if _, exists := r.metrics[name]; exists {
		return fmt.Errorf("metric %q already registered", name)
	}
	r.metrics[name] = metric
	r.order = append(r.order, name)
	return nil
}

// MustRegister adds a metric and panics on a duplicate name.
func (r *Registry) MustRegister(metric Metric) {
	if err := r.Register(metric); err != nil {
		panic(err)
	}
}

// Get returns a registered metric by name, nil if absent.
func (r *Registry) Get(name string) Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.metrics[name]
}

// Gather renders all metrics in Prometheus text format.
func (r *Registry) Gather() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sb strings.Builder
	for _, name := range r.order {
		if metric, ok := r.metrics[name]; ok {
			metric.Write(&sb)
		}
	}
	return sb.String()
}
