package metrics

// Sink is the narrow telemetry port the core depends on. Counters and
// gauges are out of scope per spec.md §1 ("Telemetry counters and lifecycle
// event emission" — external collaborator, specified only at its
// interface); this is that interface.
type Sink interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, labels map[string]string, seconds float64)
	SetGauge(name string, labels map[string]string, value float64)
}

// Noop satisfies Sink without recording anything, for tests and for any
// binary that doesn't want a Prometheus registry.
type Noop struct{}

func (Noop) IncCounter(string, map[string]string)              {}
func (Noop) ObserveLatency(string, map[string]string, float64) {}
func (Noop) SetGauge(string, map[string]string, float64)       {}
