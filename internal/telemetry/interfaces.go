package telemetry

import (
	"log"
	"sort"
	"sync"
	"sync/atomic"
)

// Logger exposes the operator-facing text logging used by the agent.
type Logger interface {
	Printf(format string, args ...any)
}

// LoggerFunc adapts functions into the Logger interface.
type LoggerFunc func(format string, args ...any)

// Printf implements Logger for LoggerFunc.
func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// WrapLogger adapts a standard library logger to the Logger interface.
func WrapLogger(logger *log.Logger) Logger {
	return &loggerAdapter{logger: logger}
}

type loggerAdapter struct {
	logger *log.Logger
}

func (l *loggerAdapter) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// StandardLogger exposes the wrapped logger for components that need one.
func (l *loggerAdapter) StandardLogger() *log.Logger {
	if l == nil {
		return nil
	}
	return l.logger
}

// Metrics exposes the counters components report into.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

// Metric keys reported by the agent core.
const (
	MetricPulses          = "cache.pulses"
	MetricEntitiesTracked = "cache.entities_tracked"
	MetricEntitiesCreated = "cache.entities_created"
	MetricEntitiesRemoved = "cache.entities_removed"
	MetricUpdateFailures  = "cache.update_failures"
	MetricViewEvictions   = "view.evictions"
	MetricScorerRuns      = "scoring.recomputes"
	MetricPlannerRuns     = "scoring.planner_recomputes"
	MetricStatesPushed    = "behavior.pushed"
	MetricStatesPopped    = "behavior.popped"
	MetricStackDepth      = "behavior.depth"
	MetricStatesTimedOut  = "behavior.timeouts"
	MetricTicks           = "agent.ticks"
	MetricFlushes         = "locations.flushes"
)

// Counters is a concurrency-safe Metrics implementation.
type Counters struct {
	mu     sync.RWMutex
	values map[string]*atomic.Uint64
}

var _ Metrics = (*Counters)(nil)

func NewCounters() *Counters {
	return &Counters{values: make(map[string]*atomic.Uint64)}
}

func (c *Counters) counter(key string) *atomic.Uint64 {
	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok = c.values[key]; ok {
		return v
	}
	v = new(atomic.Uint64)
	c.values[key] = v
	return v
}

func (c *Counters) Add(key string, delta uint64) {
	if c == nil {
		return
	}
	c.counter(key).Add(delta)
}

func (c *Counters) Store(key string, value uint64) {
	if c == nil {
		return
	}
	c.counter(key).Store(value)
}

func (c *Counters) Load(key string) uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if v, ok := c.values[key]; ok {
		return v.Load()
	}
	return 0
}

// Snapshot copies every counter.
func (c *Counters) Snapshot() map[string]uint64 {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v.Load()
	}
	return out
}

// Keys returns the registered counter names in order.
func (c *Counters) Keys() []string {
	snapshot := c.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

// NopMetrics discards every report.
func NopMetrics() Metrics {
	return nopMetrics{}
}

// OrNop returns m, or a discarding Metrics when m is nil.
func OrNop(m Metrics) Metrics {
	if m == nil {
		return NopMetrics()
	}
	return m
}
