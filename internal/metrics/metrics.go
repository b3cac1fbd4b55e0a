package metrics

import (
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter MetricType = "counter"
	Timer   MetricType = "timer"
	Gauge   MetricType = "gauge"
)

// Metric represents a single metric with its metadata
type Metric struct {
	Name        string     `json:"name"`
	Type        MetricType `json:"type"`
	Value       float64    `json:"value"`
	Description string     `json:"description,omitempty"`
	LastUpdate  time.Time  `json:"last_update"`
}

// TimerMetric stores timing information
type TimerMetric struct {
	Count   int64   `json:"count"`
	Sum     float64 `json:"sum_ms"`
	Min     float64 `json:"min_ms"`
	Max     float64 `json:"max_ms"`
	Average float64 `json:"avg_ms"`
}

// Snapshot is the JSON view served by the metrics endpoint
type Snapshot struct {
	Counters      map[string]*Metric      `json:"counters"`
	Gauges        map[string]*Metric      `json:"gauges"`
	Timers        map[string]*TimerMetric `json:"timers"`
	UptimeSeconds float64                 `json:"uptime_seconds"`
}

// Registry manages all metrics in memory
type Registry struct {
	mu        sync.RWMutex
	counters  map[string]*Metric
	timers    map[string]*TimerMetric
	gauges    map[string]*Metric
	startTime time.Time
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{
		counters:  make(map[string]*Metric),
		timers:    make(map[string]*TimerMetric),
		gauges:    make(map[string]*Metric),
		startTime: time.Now(),
	}
}

var globalRegistry = NewRegistry()

// GetRegistry returns the global registry instance
func GetRegistry() *Registry {
	return globalRegistry
}

// IncrementCounter increments a counter metric
func (r *Registry) IncrementCounter(name, description string) {
	r.AddToCounter(name, 1, description)
}

// AddToCounter adds a value to a counter metric
func (r *Registry) AddToCounter(name string, value float64, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if counter, exists := r.counters[name]; exists {
		counter.Value += value
		counter.LastUpdate = time.Now()
		return
	}
	r.counters[name] = &Metric{
		Name:        name,
		Type:        Counter,
		Value:       value,
		Description: description,
		LastUpdate:  time.Now(),
	}
}

// SetGauge sets a gauge metric to a value
func (r *Registry) SetGauge(name string, value float64, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gauge, exists := r.gauges[name]; exists {
		gauge.Value = value
		gauge.LastUpdate = time.Now()
		return
	}
	r.gauges[name] = &Metric{
		Name:        name,
		Type:        Gauge,
		Value:       value,
		Description: description,
		LastUpdate:  time.Now(),
	}
}

// RecordTimer records a duration observation
func (r *Registry) RecordTimer(name string, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms := float64(duration.Microseconds()) / 1000.0
	timer, exists := r.timers[name]
	if !exists {
		r.timers[name] = &TimerMetric{
			Count:   1,
			Sum:     ms,
			Min:     ms,
			Max:     ms,
			Average: ms,
		}
		return
	}

	timer.Count++
	timer.Sum += ms
	if ms < timer.Min {
		timer.Min = ms
	}
	if ms > timer.Max {
		timer.Max = ms
	}
	timer.Average = timer.Sum / float64(timer.Count)
}

// GetSnapshot returns a copy of all current metrics
func (r *Registry) GetSnapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Counters:      make(map[string]*Metric, len(r.counters)),
		Gauges:        make(map[string]*Metric, len(r.gauges)),
		Timers:        make(map[string]*TimerMetric, len(r.timers)),
		UptimeSeconds: time.Since(r.startTime).Seconds(),
	}
	for name, m := range r.counters {
		c := *m
		snap.Counters[name] = &c
	}
	for name, m := range r.gauges {
		g := *m
		snap.Gauges[name] = &g
	}
	for name, t := range r.timers {
		tc := *t
		snap.Timers[name] = &tc
	}
	return snap
}

// Reset clears all metrics (used by tests)
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters = make(map[string]*Metric)
	r.gauges = make(map[string]*Metric)
	r.timers = make(map[string]*TimerMetric)
	r.startTime = time.Now()
}

// Package-level helpers against the global registry

func IncrementCounter(name, description string) {
	globalRegistry.IncrementCounter(name, description)
}

func AddToCounter(name string, value float64, description string) {
	globalRegistry.AddToCounter(name, value, description)
}

func SetGauge(name string, value float64, description string) {
	globalRegistry.SetGauge(name, value, description)
}

func RecordTimer(name string, duration time.Duration) {
	globalRegistry.RecordTimer(name, duration)
}

func GetSnapshot() Snapshot {
	return globalRegistry.GetSnapshot()
}
